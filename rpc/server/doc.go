// Package server implements a reference peer for the protocol. It answers
// the message types the client sends on its own and can be extended with
// handlers for further types.
//
// Default Handlers:
//
//   - ping: replies with pong
//   - echo: replies with an echo message carrying the request payload
//   - heartbeat: replies with heartbeat_ack
//   - request: replies with a response carrying the request payload
//
// Every reply carries reply_to set to the msg_id of the request. Requests of
// unknown types are answered with an error message. Messages without msg_id
// are notifications and are only logged.
//
// Usage Example:
//
//	config := common.ServerConfig{Endpoint: "127.0.0.1:9000", MaxWorkersPerConn: 4}
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport())
//
//	s.Handle("time", func(req *common.Message) *common.Message {
//	  payload, _ := json.Marshal(time.Now())
//	  return common.NewResponse(req, "time", payload)
//	})
//
//	if err := s.Serve(); err != nil {
//	  panic(err)
//	}
package server
