package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/notify"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")
)

// Client wraps a client transport with typed helpers for the message types
// the protocol defines. All methods are safe for concurrent use.
type Client struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// NewClient creates a client on top of t. The connection is opened lazily by
// the first request or explicitly with Connect.
func NewClient(config common.ClientConfig, t transport.IRPCClientTransport) *Client {
	return &Client{
		config:    config,
		transport: t,
	}
}

// Connect opens the connection
func (c *Client) Connect(ctx context.Context) error {
	return c.transport.Connect(ctx)
}

// SendRequest sends req and returns the raw reply. A zero timeout uses the
// configured request timeout. Replies of type "error" are returned as is.
func (c *Client) SendRequest(ctx context.Context, req *common.Message, timeout time.Duration) (*common.Message, error) {
	return c.transport.SendRequest(ctx, req, timeout)
}

// Request sends a request of msgType with payload marshalled to JSON.
// A reply of type "error" is returned as *common.ResponseError.
func (c *Client) Request(ctx context.Context, msgType common.MessageType, payload any, timeout time.Duration) (*common.Message, error) {
	req, err := common.NewRequest(msgType, payload)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, req, "", timeout)
}

// Ping sends a ping request and returns the round trip time
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := c.invoke(ctx, common.NewPingRequest(), common.MsgTPong, 0); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Echo sends text in an echo request and returns the text of the reply
func (c *Client) Echo(ctx context.Context, text string) (string, error) {
	resp, err := c.invoke(ctx, common.NewEchoRequest(text), common.MsgTEcho, 0)
	if err != nil {
		return "", err
	}

	var payload common.EchoPayload
	if err := resp.DecodePayload(&payload); err != nil {
		return "", fmt.Errorf("invalid echo reply: %w", err)
	}
	return payload.Text, nil
}

// SetNotificationSink sets the sink for messages that answer no pending
// request. A nil sink restores the default, which logs them.
func (c *Client) SetNotificationSink(sink notify.Sink) {
	c.transport.RegisterNotificationHandler(notify.HandleFunc(sink))
}

// State returns the connection state
func (c *Client) State() transport.ConnState {
	return c.transport.State()
}

// Config returns the configuration the client was created with
func (c *Client) Config() common.ClientConfig {
	return c.config
}

// Close closes the connection. Pending requests fail with common.ErrConnectionClosed.
func (c *Client) Close() error {
	return c.transport.Close()
}

// invoke sends req and checks the reply. An empty expected type accepts any
// reply that is not an error.
func (c *Client) invoke(ctx context.Context, req *common.Message, expected common.MessageType, timeout time.Duration) (*common.Message, error) {
	resp, err := c.transport.SendRequest(ctx, req, timeout)
	if err != nil {
		return nil, err
	}

	// Check if the response is an error response
	if resp.Type == common.MsgTError {
		return nil, responseError(resp)
	}

	// Check if the type of the response is the expected type
	if expected != "" && resp.Type != expected {
		return nil, fmt.Errorf("unexpected message type %s, expected %s", resp.Type, expected)
	}

	Logger.Debugf("Request %s answered by %s", req.Type, resp)
	return resp, nil
}

// responseError converts an error reply into a *common.ResponseError
func responseError(resp *common.Message) error {
	replyTo, _ := resp.ReplyToID()

	var payload common.ErrorPayload
	if err := resp.DecodePayload(&payload); err != nil || payload.Error == "" {
		return &common.ResponseError{ReplyTo: replyTo, Message: string(resp.Payload)}
	}
	return &common.ResponseError{ReplyTo: replyTo, Message: payload.Error}
}
