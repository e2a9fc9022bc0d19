package server

import (
	"context"
	"encoding/json"
	"github.com/ValentinKolb/mcpc/rpc/codec"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/ValentinKolb/mcpc/rpc/transport/tcp"
	"github.com/ValentinKolb/mcpc/rpc/transport/unix"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// startServer runs s in the background and returns a function stopping it
func startServer(t *testing.T, s *RPCServer) func() {
	t.Helper()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	return func() {
		require.NoError(t, s.Close())
		require.NoError(t, <-errCh)
	}
}

func testServerConfig(endpoint string) common.ServerConfig {
	return common.ServerConfig{
		Endpoint:          endpoint,
		WriteTimeout:      time.Second,
		MaxWorkersPerConn: 4,
	}
}

// tcpClient connects a client transport to the tcp server s
func tcpClient(t *testing.T, s *RPCServer) transport.IRPCClientTransport {
	t.Helper()

	addr := s.Addr()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	config := common.DefaultClientConfig()
	config.Host = host
	config.Port, err = strconv.Atoi(port)
	require.NoError(t, err)
	config.HeartbeatInterval = 0

	c := tcp.NewTCPClientTransport(config)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestDefaultHandlers(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewRPCServer(testServerConfig("127.0.0.1:0"), tcp.NewTCPServerTransport())
	stop := startServer(t, s)
	defer stop()

	c := tcpClient(t, s)
	defer c.Close()

	tests := []struct {
		name     string
		req      *common.Message
		wantType common.MessageType
		payload  string
	}{
		{name: "ping", req: common.NewPingRequest(), wantType: common.MsgTPong},
		{name: "echo", req: common.NewEchoRequest("hello mcp"), wantType: common.MsgTEcho, payload: `{"text":"hello mcp"}`},
		{name: "heartbeat", req: common.NewHeartbeatRequest(), wantType: common.MsgTHeartbeatAck},
		{name: "request", req: &common.Message{Payload: json.RawMessage(`[1,2]`)}, wantType: common.MsgTResponse, payload: `[1,2]`},
		{name: "unknown type", req: &common.Message{Type: "unknown"}, wantType: common.MsgTError, payload: `{"error":"unsupported message type: unknown"}`},
		{name: "echo without payload", req: &common.Message{Type: common.MsgTEcho}, wantType: common.MsgTError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.SendRequest(context.Background(), tt.req, time.Second)
			require.NoError(t, err)
			require.Equal(t, tt.wantType, resp.Type)
			require.True(t, resp.IsReply())
			if tt.payload != "" {
				require.JSONEq(t, tt.payload, string(resp.Payload))
			}
		})
	}
}

func TestCustomHandler(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewRPCServer(testServerConfig("127.0.0.1:0"), tcp.NewTCPServerTransport())
	s.Handle("sum", func(req *common.Message) *common.Message {
		var nums []int
		if err := req.DecodePayload(&nums); err != nil {
			return common.NewErrorResponse(req, err.Error())
		}
		total := 0
		for _, n := range nums {
			total += n
		}
		payload, _ := json.Marshal(total)
		return common.NewResponse(req, "sum", payload)
	})
	s.Handle("boom", func(req *common.Message) *common.Message {
		panic("handler failure")
	})

	stop := startServer(t, s)
	defer stop()

	c := tcpClient(t, s)
	defer c.Close()

	req, err := common.NewRequest("sum", []int{1, 2, 3})
	require.NoError(t, err)

	resp, err := c.SendRequest(context.Background(), req, time.Second)
	require.NoError(t, err)
	require.Equal(t, "6", string(resp.Payload))

	// a panicking handler is answered with an error
	resp, err = c.SendRequest(context.Background(), &common.Message{Type: "boom"}, time.Second)
	require.NoError(t, err)
	require.Equal(t, common.MsgTError, resp.Type)
}

// TestRawConnection talks to the server without the client transport to check
// notifications and malformed frames
func TestRawConnection(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewRPCServer(testServerConfig("127.0.0.1:0"), tcp.NewTCPServerTransport())
	stop := startServer(t, s)
	defer stop()

	conn, err := net.Dial("tcp", s.Addr())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	// notification without msg_id, never answered
	require.NoError(t, codec.WriteFrame(conn, common.NewNotification("event", nil)))

	// malformed frame, skipped
	_, err = conn.Write(append([]byte{0, 0, 0, 3}, "{x}"...))
	require.NoError(t, err)

	ping := common.NewPingRequest()
	ping.SetMsgID(11)
	require.NoError(t, codec.WriteFrame(conn, ping))

	resp, err := codec.Decode(conn)
	require.NoError(t, err)
	require.Equal(t, common.MsgTPong, resp.Type)
	id, ok := resp.ReplyToID()
	require.True(t, ok)
	require.EqualValues(t, 11, id)
}

func TestUnixTransport(t *testing.T) {
	defer goleak.VerifyNone(t)

	socket := filepath.Join(t.TempDir(), "mcpc.sock")
	s := NewRPCServer(testServerConfig(socket), unix.NewUnixServerTransport())
	stop := startServer(t, s)
	defer stop()

	config := common.DefaultClientConfig()
	config.SocketPath = socket
	config.HeartbeatInterval = 0

	c := unix.NewUnixClientTransport(config)
	defer c.Close()

	resp, err := c.SendRequest(context.Background(), common.NewEchoRequest("über unix"), time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `{"text":"über unix"}`, string(resp.Payload))
}

func TestCloseDisconnectsClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewRPCServer(testServerConfig("127.0.0.1:0"), tcp.NewTCPServerTransport())
	stop := startServer(t, s)

	c := tcpClient(t, s)
	defer c.Close()

	_, err := c.SendRequest(context.Background(), common.NewPingRequest(), time.Second)
	require.NoError(t, err)

	stop()

	require.Eventually(t, func() bool {
		return c.State() == transport.StateClosed
	}, 2*time.Second, 10*time.Millisecond)

	_, err = c.SendRequest(context.Background(), common.NewPingRequest(), time.Second)
	require.ErrorIs(t, err, common.ErrConnection)
}
