package server

import (
	"github.com/ValentinKolb/mcpc/rpc/common"
)

// registerDefaultHandlers installs the handlers for the message types every peer answers
func registerDefaultHandlers(s *RPCServer) {
	s.Handle(common.MsgTPing, handlePing)
	s.Handle(common.MsgTEcho, handleEcho)
	s.Handle(common.MsgTHeartbeat, handleHeartbeat)
	s.Handle(common.MsgTRequest, handleRequest)
}

func handlePing(req *common.Message) *common.Message {
	return common.NewResponse(req, common.MsgTPong, nil)
}

// handleEcho returns the payload of the request unchanged
func handleEcho(req *common.Message) *common.Message {
	if len(req.Payload) == 0 {
		return common.NewErrorResponse(req, "echo request without payload")
	}
	return common.NewResponse(req, common.MsgTEcho, req.Payload)
}

func handleHeartbeat(req *common.Message) *common.Message {
	return common.NewResponse(req, common.MsgTHeartbeatAck, nil)
}

// handleRequest answers generic requests with their own payload
func handleRequest(req *common.Message) *common.Message {
	return common.NewResponse(req, common.MsgTResponse, req.Payload)
}
