package server

import (
	"fmt"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"os/signal"
	"runtime"
	"syscall"
)

var Logger = logger.GetLogger("server")

// HandlerFunc answers a request. Returning nil sends no reply.
type HandlerFunc func(req *common.Message) (resp *common.Message)

// NewRPCServer creates a new RPC server answering the default message types
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &RPCServer{
		config:    config,
		transport: transport,
		handlers:  xsync.NewMapOf[common.MessageType, HandlerFunc](),
	}
	registerDefaultHandlers(s)

	return s
}

// RPCServer dispatches incoming requests to a handler per message type
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	handlers  *xsync.MapOf[common.MessageType, HandlerFunc]
}

// Handle registers handler for msgType, replacing any previous handler
func (s *RPCServer) Handle(msgType common.MessageType, handler HandlerFunc) {
	s.handlers.Store(msgType, handler)
}

// Serve starts the RPC server and blocks until Close is called
func (s *RPCServer) Serve() error {
	if s.config.LogLevel != "" {
		if err := common.InitLoggers(s.config.LogLevel); err != nil {
			return err
		}
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	s.transport.RegisterHandler(s.dispatch)
	return s.transport.Listen(s.config)
}

// Addr returns the address the server listens on, empty before Serve
func (s *RPCServer) Addr() string {
	return s.transport.Addr()
}

// Close stops the server and closes all connections
func (s *RPCServer) Close() error {
	return s.transport.Close()
}

// dispatch is the transport handler. Messages without msg_id are
// notifications and never answered.
func (s *RPCServer) dispatch(req *common.Message) (resp *common.Message) {
	_, isRequest := req.ID()

	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("Handler for %s panicked: %v", req.Type, r)
			resp = nil
			if isRequest {
				resp = common.NewErrorResponse(req, fmt.Sprintf("internal error handling %s", req.Type))
			}
		}
	}()

	if !isRequest {
		Logger.Infof("Received notification: %s", req)
		return nil
	}

	handler, ok := s.handlers.Load(req.Type)
	if !ok {
		return common.NewErrorResponse(req, fmt.Sprintf("unsupported message type: %s", req.Type))
	}

	return handler(req)
}
