// Package client implements the high level client of the protocol on top of
// a transport.IRPCClientTransport.
//
// Key Components:
//
//   - Client: Sends correlated requests over one persistent connection and
//     offers helpers for the message types the protocol defines (Ping, Echo)
//     as well as Request for arbitrary types. Replies of type "error" are
//     converted into *common.ResponseError.
//
// Usage Example:
//
//	config := common.DefaultClientConfig()
//	c := client.NewClient(config, tcp.NewTCPClientTransport(config))
//	defer c.Close()
//
//	// Log everything the server sends on its own
//	c.SetNotificationSink(notify.Log())
//
//	rtt, err := c.Ping(ctx)
//	text, err := c.Echo(ctx, "hello")
//
// Errors:
//
//	Use errors.Is with common.ErrConnection, common.ErrTimeout and
//	common.ErrConnectionLost to tell failures apart. After the connection was
//	lost or closed the client stays closed, create a new one to reconnect.
//
// Thread Safety:
//
//	All methods can be used concurrently from multiple goroutines. Each request
//	is resolved exactly once.
package client
