package base

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mcpc/rpc/codec"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/valyala/bytebufferpool"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Dial establishes a single connection to the endpoint of the configuration
	Dial(ctx context.Context, config common.ClientConfig) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// Endpoint returns the address the connector dials for the configuration
	Endpoint(config common.ClientConfig) string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements a single persistent client connection
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig
	endpoint  string
	id        string // identifies the connection in log output
	metrics   *clientMetrics

	state     atomic.Int32 // transport.ConnState
	connectMu sync.Mutex   // Serializes Connect calls

	conn    net.Conn
	writeMu sync.Mutex // Protects writes to the connection
	cancel  context.CancelFunc
	loops   sync.WaitGroup // Reader and heartbeat goroutines

	registry  *registry
	nextMsgID atomic.Uint64 // Last issued msg_id, the first request gets 1
	notify    atomic.Pointer[transport.NotificationHandleFunc]

	shutdownOnce sync.Once
	closedOnce   sync.Once
	closed       chan struct{} // Closed once the transport reached StateClosed
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector, config common.ClientConfig) transport.IRPCClientTransport {
	// Set default values for unset fields
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = common.DefaultRequestTimeout
	}
	if config.HeartbeatTimeout <= 0 {
		config.HeartbeatTimeout = common.DefaultHeartbeatTimeout
	}
	if config.DialRetries < 1 {
		config.DialRetries = 1
	}
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = common.DefaultMaxFrameSize
	}

	return &clientTransport{
		connector: connector,
		config:    config,
		endpoint:  connector.Endpoint(config),
		id:        uuid.NewString(),
		metrics:   newClientMetrics(connector.GetName()),
		registry:  newRegistry(),
		closed:    make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(ctx context.Context) error {
	t.connectMu.Lock()
	defer t.connectMu.Unlock()

	switch t.State() {
	case transport.StateConnected:
		return nil
	case transport.StateClosing, transport.StateClosed:
		return t.closedError()
	}

	if !t.state.CompareAndSwap(int32(transport.StateDisconnected), int32(transport.StateConnecting)) {
		return t.closedError()
	}

	if t.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ConnectTimeout)
		defer cancel()
	}

	conn, err := t.dial(ctx)
	if err != nil {
		t.state.CompareAndSwap(int32(transport.StateConnecting), int32(transport.StateDisconnected))
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.conn = conn
	t.cancel = cancel
	t.loops.Add(2)

	// Close may have been called while dialing
	if !t.state.CompareAndSwap(int32(transport.StateConnecting), int32(transport.StateConnected)) {
		t.loops.Add(-2)
		cancel()
		_ = conn.Close()
		return t.closedError()
	}

	go t.readLoop(conn)
	go t.heartbeatLoop(loopCtx)
	go t.supervise()

	Logger.Infof("Connected to %s using %s transport (connection %s)", t.endpoint, t.connector.GetName(), t.id)
	return nil
}

func (t *clientTransport) SendRequest(ctx context.Context, req *common.Message, timeout time.Duration) (*common.Message, error) {
	if req == nil {
		return nil, errors.New("request must not be nil")
	}

	switch t.State() {
	case transport.StateClosing, transport.StateClosed:
		return nil, t.closedError()
	case transport.StateDisconnected, transport.StateConnecting:
		if err := t.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return t.roundTrip(ctx, req, timeout)
}

func (t *clientTransport) RegisterNotificationHandler(handler transport.NotificationHandleFunc) {
	if handler == nil {
		t.notify.Store(nil)
		return
	}
	t.notify.Store(&handler)
}

func (t *clientTransport) State() transport.ConnState {
	return transport.ConnState(t.state.Load())
}

func (t *clientTransport) Close() error {
	t.shutdown(common.ErrConnectionClosed)
	<-t.closed
	return nil
}

// --------------------------------------------------------------------------
// Request Handling
// --------------------------------------------------------------------------

// roundTrip writes req with a fresh msg_id and waits for its resolution.
// Every call ends in exactly one of: reply, connection failure, timeout,
// context cancellation.
func (t *clientTransport) roundTrip(ctx context.Context, req *common.Message, timeout time.Duration) (*common.Message, error) {
	if timeout <= 0 {
		timeout = t.config.RequestTimeout
	}

	msg := req.Clone()
	if msg.Type == "" {
		msg.Type = common.MsgTRequest
	}
	msgID := t.nextMsgID.Add(1)
	msg.SetMsgID(msgID)

	// Encode before registering so invalid messages never reach the registry
	frame := bytebufferpool.Get()
	defer bytebufferpool.Put(frame)

	var err error
	if frame.B, err = codec.AppendFrame(frame.B[:0], msg); err != nil {
		return nil, err
	}

	respCh, err := t.registry.register(msgID)
	if err != nil {
		return nil, err
	}
	t.metrics.requests.Inc()
	start := time.Now()

	if n, err := t.write(frame.B); err != nil {
		if !t.registry.remove(msgID) {
			// resolved by a concurrent shutdown
			return t.finish(start, <-respCh)
		}
		t.metrics.failures.Inc()
		err = fmt.Errorf("%w: failed to write %s request %d to %s: %w", common.ErrConnection, msg.Type, msgID, t.endpoint, err)

		// a partially written frame breaks the framing of the stream, a frame
		// that was not written at all leaves it intact
		if n > 0 {
			t.shutdown(fmt.Errorf("%w: %v", common.ErrConnectionLost, err))
		}
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-respCh:
		return t.finish(start, res)
	case <-timer.C:
		if t.registry.remove(msgID) {
			t.metrics.timeouts.Inc()
			return nil, fmt.Errorf("%w: no reply to %s request %d within %s", common.ErrTimeout, msg.Type, msgID, timeout)
		}
	case <-ctx.Done():
		if t.registry.remove(msgID) {
			t.metrics.failures.Inc()
			return nil, fmt.Errorf("%s request %d: %w", msg.Type, msgID, ctx.Err())
		}
	}

	// The request was resolved while the wait expired
	return t.finish(start, <-respCh)
}

// finish converts a result into the return values of roundTrip
func (t *clientTransport) finish(start time.Time, res responseResult) (*common.Message, error) {
	if res.err != nil {
		t.metrics.failures.Inc()
		return nil, res.err
	}
	t.metrics.latency.Update(time.Since(start).Seconds())
	return res.msg, nil
}

// write writes a complete frame to the connection and returns the number of
// bytes that reached the socket
func (t *clientTransport) write(frame []byte) (int, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.config.WriteTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout)); err != nil {
			return 0, err
		}
	}

	return t.conn.Write(frame)
}

// --------------------------------------------------------------------------
// Background Loops
// --------------------------------------------------------------------------

// readLoop reads frames until the connection fails or is closed and
// distributes them to waiting requests or the notification handler
func (t *clientTransport) readLoop(conn net.Conn) {
	defer t.loops.Done()

	bufferSize := t.config.SocketConf.ReadBufferSize
	if bufferSize <= 0 {
		bufferSize = common.DefaultBufferSize
	}
	decoder := codec.NewDecoder(bufio.NewReaderSize(conn, bufferSize), t.config.MaxFrameSize)

	for {
		// Set idle timeout if configured
		if t.config.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout)); err != nil {
				t.readFailed(err)
				return
			}
		}

		msg, err := decoder.Decode()

		// Case malformed frame: drop it and continue with the next one
		if errors.Is(err, common.ErrMalformedFrame) {
			t.metrics.malformedFrames.Inc()
			Logger.Warningf("Dropped frame from %s: %v", t.endpoint, err)
			continue
		}

		// Case EOF or read error: the connection is gone
		if err != nil {
			t.readFailed(err)
			return
		}

		t.dispatch(msg)
	}
}

// dispatch resolves the pending request msg answers or hands msg to the notification handler
func (t *clientTransport) dispatch(msg *common.Message) {
	if replyTo, ok := msg.ReplyToID(); ok {
		if t.registry.resolve(replyTo, msg) {
			return
		}
		Logger.Debugf("Received reply to unknown request %d from %s", replyTo, t.endpoint)
	}

	t.metrics.notifications.Inc()
	if handler := t.notify.Load(); handler != nil {
		(*handler)(msg)
		return
	}
	Logger.Infof("Notification from %s: %s", t.endpoint, msg)
}

// readFailed shuts the transport down after the reader stopped
func (t *clientTransport) readFailed(err error) {
	if t.State() == transport.StateConnected {
		t.metrics.connectionsLost.Inc()
		if errors.Is(err, io.EOF) {
			Logger.Infof("Connection %s closed by %s", t.id, t.endpoint)
		} else {
			Logger.Warningf("Connection %s to %s lost: %v", t.id, t.endpoint, err)
		}
	}
	t.shutdown(fmt.Errorf("%w: %v", common.ErrConnectionLost, err))
}

// heartbeatLoop periodically sends a heartbeat request while connected.
// Failures are logged and never affect the connection.
func (t *clientTransport) heartbeatLoop(ctx context.Context) {
	defer t.loops.Done()

	interval := t.config.HeartbeatInterval
	if interval <= 0 {
		return
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if t.State() != transport.StateConnected {
			return
		}

		t.metrics.heartbeats.Inc()
		if _, err := t.roundTrip(ctx, common.NewHeartbeatRequest(), t.config.HeartbeatTimeout); err != nil {
			if ctx.Err() != nil {
				return
			}
			t.metrics.heartbeatFailures.Inc()
			Logger.Warningf("Heartbeat on connection %s failed: %v", t.id, err)
		}

		timer.Reset(interval)
	}
}

// supervise marks the transport closed once both loops have exited
func (t *clientTransport) supervise() {
	t.loops.Wait()
	t.markClosed()
	Logger.Infof("Connection %s to %s closed", t.id, t.endpoint)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial connects to the endpoint, retrying with backoff up to DialRetries times
func (t *clientTransport) dial(ctx context.Context) (net.Conn, error) {
	b := &backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    50 * time.Millisecond,
		Max:    1 * time.Second,
	}

	var lastErr error
retry:
	for attempt := 1; attempt <= t.config.DialRetries; attempt++ {
		conn, err := t.connector.Dial(ctx, t.config)
		if err == nil {
			if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("%w: failed to upgrade connection to %s: %w", common.ErrConnection, t.endpoint, err)
			}
			return conn, nil
		}

		lastErr = err
		Logger.Debugf("Connect attempt %d/%d to %s failed: %v", attempt, t.config.DialRetries, t.endpoint, err)

		if attempt == t.config.DialRetries {
			break
		}

		wait := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			wait.Stop()
			lastErr = ctx.Err()
			break retry
		case <-wait.C:
		}
	}

	if isTimeout(ctx, lastErr) {
		return nil, fmt.Errorf("%w: connect to %s: %w", common.ErrTimeout, t.endpoint, lastErr)
	}
	return nil, fmt.Errorf("%w: connect to %s: %w", common.ErrConnection, t.endpoint, lastErr)
}

// shutdown moves the transport to StateClosing, stops both loops, closes the
// socket and fails all pending requests with cause. Only the first call has
// an effect.
func (t *clientTransport) shutdown(cause error) {
	t.shutdownOnce.Do(func() {
		prev := transport.ConnState(t.state.Swap(int32(transport.StateClosing)))

		if prev == transport.StateConnected {
			t.cancel()
			if err := t.conn.Close(); err != nil {
				Logger.Debugf("Error closing connection %s: %v", t.id, err)
			}
		}

		if n := t.registry.failAll(cause); n > 0 {
			Logger.Infof("Failed %d pending requests on connection %s: %v", n, t.id, cause)
		}

		// Without running loops there is nothing to wait for
		if prev != transport.StateConnected {
			t.markClosed()
		}
	})
}

// markClosed moves the transport to the terminal StateClosed
func (t *clientTransport) markClosed() {
	t.closedOnce.Do(func() {
		t.state.Store(int32(transport.StateClosed))
		close(t.closed)
	})
}

// closedError is returned for operations on a closing or closed transport
func (t *clientTransport) closedError() error {
	return fmt.Errorf("%w: connection to %s", common.ErrConnectionClosed, t.endpoint)
}

// isTimeout reports whether a dial failure was caused by a deadline
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
