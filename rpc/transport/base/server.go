package base

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mcpc/rpc/codec"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sync"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig
	metrics   *serverMetrics

	mu       sync.Mutex // Protects listener and closing
	listener net.Listener
	closing  bool

	conns *xsync.MapOf[string, net.Conn] // Open connections by id
	wg    sync.WaitGroup                 // One entry per open connection
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		metrics:   newServerMetrics(connector.GetName()),
		conns:     xsync.NewMapOf[string, net.Conn](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	// minimum one worker per connection
	config.MaxWorkersPerConn = max(config.MaxWorkersPerConn, 1)
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = common.DefaultMaxFrameSize
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	t.mu.Lock()
	if t.closing {
		t.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), config.MaxWorkersPerConn)

	// Accept connections
	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		id := uuid.NewString()

		t.mu.Lock()
		if t.closing {
			t.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		t.conns.Store(id, conn)
		t.wg.Add(1)
		t.mu.Unlock()

		// Handle the connection in a goroutine
		go t.handleConnection(id, conn)
	}
}

func (t *serverTransport) Addr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	t.closing = true
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.mu.Unlock()

	t.conns.Range(func(_ string, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})
	t.wg.Wait()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection handles incoming messages for one connection
func (t *serverTransport) handleConnection(id string, conn net.Conn) {
	defer t.wg.Done()
	defer t.conns.Delete(id)
	defer conn.Close()

	t.metrics.connections.Inc()
	Logger.Infof("Accepted connection %s from %s", id, conn.RemoteAddr())

	bufferSize := t.config.SocketConf.ReadBufferSize
	if bufferSize <= 0 {
		bufferSize = common.DefaultBufferSize
	}
	decoder := codec.NewDecoder(bufio.NewReaderSize(conn, bufferSize), t.config.MaxFrameSize)

	// Create a semaphore to limit concurrent workers for this connection
	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.config.MaxWorkersPerConn)

	// Create a wait group to wait for all workers to finish
	var wg sync.WaitGroup

	// Create a mutex to protect writes to the connection
	var connMutex sync.Mutex

	// Handler function that processes messages in worker goroutines
	handleMessage := func(msg *common.Message) {
		defer func() {
			<-workerSemaphore
			wg.Done()
		}()

		handler := t.handler
		if handler == nil {
			Logger.Warningf("No handler registered, dropping %s", msg)
			return
		}

		start := time.Now()
		resp := handler(msg)
		Logger.Debugf("Processed %s on connection %s took %s", msg, id, time.Since(start))

		// Notifications are not answered
		if resp == nil {
			return
		}

		connMutex.Lock()
		defer connMutex.Unlock()

		if t.config.WriteTimeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		if err := codec.WriteFrame(conn, resp); err != nil {
			t.metrics.writeErrors.Inc()
			Logger.Errorf("Failed to write response on connection %s: %v", id, err)
		}
	}

	// Handle messages in a loop
	for {
		if t.config.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(t.config.IdleTimeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				break
			}
		}

		msg, err := decoder.Decode()

		// Case malformed frame: the stream is still in sync, skip it
		if errors.Is(err, common.ErrMalformedFrame) {
			t.metrics.malformedFrames.Inc()
			Logger.Warningf("Dropped frame on connection %s: %v", id, err)
			continue
		}

		// Case EOF: Connection closed by client
		if errors.Is(err, io.EOF) {
			Logger.Infof("Connection %s closed by client", id)
			break
		}

		// Case error: log and close connection
		if err != nil {
			if t.isClosing() {
				Logger.Debugf("Connection %s closed by server: %v", id, err)
			} else {
				Logger.Errorf("Error reading from connection %s: %v", id, err)
			}
			break
		}

		t.metrics.requests.Inc()

		// Acquire a slot in the semaphore (blocks if MaxWorkersPerConn is reached)
		workerSemaphore <- struct{}{}
		wg.Add(1)
		go handleMessage(msg)
	}

	// Wait for all workers to finish before closing the connection
	wg.Wait()
}

func (t *serverTransport) isClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closing
}
