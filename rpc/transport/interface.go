package transport

import (
	"context"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"time"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming messages
// This function is called by a server transport layer for every decoded frame.
// A nil response means nothing is written back (e.g. for notifications).
type ServerHandleFunc func(req *common.Message) (resp *common.Message)

// IRPCServerTransport is the interface for the server side of the protocol
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for each message received on any connection
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves connections until Close is called
	Listen(config common.ServerConfig) error
	// Addr returns the address the transport listens on, empty before Listen
	Addr() string
	// Close stops listening and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// NotificationHandleFunc receives messages from the peer that do not answer a
// pending request. It is called from the reader goroutine and must not block
// or call Close on the transport.
type NotificationHandleFunc func(msg *common.Message)

// IRPCClientTransport is the interface for a single persistent client connection
type IRPCClientTransport interface {
	// Connect opens the connection and starts the reader and heartbeat loops.
	// It is a no-op if the transport is already connected.
	Connect(ctx context.Context) error
	// SendRequest sends req and waits for the matching reply. A zero timeout uses
	// the configured request timeout. The transport connects first if needed.
	SendRequest(ctx context.Context, req *common.Message, timeout time.Duration) (*common.Message, error)
	// RegisterNotificationHandler sets the sink for unmatched messages
	RegisterNotificationHandler(handler NotificationHandleFunc)
	// State returns the current connection state
	State() ConnState
	// Close closes the connection and fails all pending requests
	Close() error
}

// --------------------------------------------------------------------------
// Connection State
// --------------------------------------------------------------------------

// ConnState is the lifecycle state of a client connection
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosing
	StateClosed
)

// String returns the string representation of a ConnState.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
