// Package base implements the protocol independent part of the client and
// server transports. The tcp and unix packages extend it with connectors that
// know how to dial, listen and tune their sockets.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: One persistent connection with a small state machine
//     (disconnected, connecting, connected, closing, closed). Connect starts a
//     reader goroutine that decodes frames and a heartbeat goroutine that sends
//     a heartbeat request every HeartbeatInterval. A third goroutine marks the
//     transport closed once both have exited.
//
//   - registry: Maps msg_id to the channel of the waiting request. Replies,
//     timeouts and connection loss all remove the entry with LoadAndDelete, so
//     every request is resolved exactly once.
//
//   - serverTransport: Accepts connections and passes each decoded message to the
//     registered handler, bounded by a per-connection worker semaphore.
//
// Request Lifecycle:
//
//	SendRequest assigns the next msg_id (starting at 1), registers the request,
//	writes the frame and waits for the reply, the timeout or the context. The
//	reader resolves replies by their reply_to field. Frames without a matching
//	pending request go to the notification handler. Malformed frames are logged
//	and skipped. A read error or EOF fails every pending request with
//	common.ErrConnectionLost and closes the transport for good.
//
// Thread Safety:
//
//	All public methods are thread-safe. Writes are serialized with a mutex so
//	frames of concurrent requests never interleave.
package base
