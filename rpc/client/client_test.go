package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/notify"
	"github.com/ValentinKolb/mcpc/rpc/server"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/ValentinKolb/mcpc/rpc/transport/tcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"net"
	"strconv"
	"testing"
	"time"
)

// newTestClient starts a server with the default handlers plus extra and
// returns a connected client
func newTestClient(t *testing.T, extra map[common.MessageType]server.HandlerFunc) (*Client, func()) {
	t.Helper()

	s := server.NewRPCServer(common.ServerConfig{
		Endpoint:          "127.0.0.1:0",
		WriteTimeout:      time.Second,
		MaxWorkersPerConn: 4,
	}, tcp.NewTCPServerTransport())
	for msgType, handler := range extra {
		s.Handle(msgType, handler)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()
	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	host, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)

	config := common.DefaultClientConfig()
	config.Host = host
	config.Port, err = strconv.Atoi(port)
	require.NoError(t, err)
	config.HeartbeatInterval = 0
	config.RequestTimeout = time.Second

	c := NewClient(config, tcp.NewTCPClientTransport(config))
	require.NoError(t, c.Connect(context.Background()))

	return c, func() {
		require.NoError(t, c.Close())
		require.NoError(t, s.Close())
		require.NoError(t, <-errCh)
	}
}

func TestPingAndEcho(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, stop := newTestClient(t, nil)
	defer stop()

	require.Equal(t, transport.StateConnected, c.State())

	rtt, err := c.Ping(context.Background())
	require.NoError(t, err)
	require.Greater(t, rtt, time.Duration(0))

	text, err := c.Echo(context.Background(), "hello mcp")
	require.NoError(t, err)
	require.Equal(t, "hello mcp", text)
}

func TestRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, stop := newTestClient(t, map[common.MessageType]server.HandlerFunc{
		"fail": func(req *common.Message) *common.Message {
			return common.NewErrorResponse(req, "no such tool")
		},
		"weird": func(req *common.Message) *common.Message {
			return common.NewResponse(req, common.MsgTError, []byte(`[1]`))
		},
		common.MsgTPing: func(req *common.Message) *common.Message {
			return common.NewResponse(req, "not_pong", nil)
		},
	})
	defer stop()

	t.Run("generic request", func(t *testing.T) {
		resp, err := c.Request(context.Background(), common.MsgTRequest, map[string]int{"n": 1}, 0)
		require.NoError(t, err)
		require.Equal(t, common.MsgTResponse, resp.Type)
		require.JSONEq(t, `{"n":1}`, string(resp.Payload))
	})

	t.Run("error reply", func(t *testing.T) {
		_, err := c.Request(context.Background(), "fail", nil, 0)

		var respErr *common.ResponseError
		require.True(t, errors.As(err, &respErr))
		require.Equal(t, "no such tool", respErr.Message)
		require.NotZero(t, respErr.ReplyTo)
	})

	t.Run("error reply without error field", func(t *testing.T) {
		_, err := c.Request(context.Background(), "weird", nil, 0)

		var respErr *common.ResponseError
		require.True(t, errors.As(err, &respErr))
		require.Equal(t, "[1]", respErr.Message)
	})

	t.Run("unexpected reply type", func(t *testing.T) {
		_, err := c.Ping(context.Background())
		require.ErrorContains(t, err, "unexpected message type")
	})

	t.Run("raw send returns error replies as is", func(t *testing.T) {
		resp, err := c.SendRequest(context.Background(), &common.Message{Type: "fail"}, 0)
		require.NoError(t, err)
		require.Equal(t, common.MsgTError, resp.Type)
	})
}

func TestNotificationSink(t *testing.T) {
	defer goleak.VerifyNone(t)

	// "subscribe" answers with a message that carries no reply_to, so the
	// request itself times out and the answer reaches the sink
	c, stop := newTestClient(t, map[common.MessageType]server.HandlerFunc{
		"subscribe": func(req *common.Message) *common.Message {
			return common.NewNotification("event", []byte(`{"seq":1}`))
		},
	})
	defer stop()

	topics := notify.NewTopics(16)
	defer topics.Close()

	sub, err := topics.Subscribe("event")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	c.SetNotificationSink(topics)

	_, err = c.Request(context.Background(), "subscribe", nil, 100*time.Millisecond)
	require.ErrorIs(t, err, common.ErrTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, common.MessageType("event"), msg.Type)
	require.JSONEq(t, `{"seq":1}`, string(msg.Payload))
}

func TestClosedClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, stop := newTestClient(t, nil)
	defer stop()

	require.NoError(t, c.Close())
	require.Equal(t, transport.StateClosed, c.State())

	_, err := c.Echo(context.Background(), "too late")
	require.ErrorIs(t, err, common.ErrConnectionClosed)
}
