// Package common provides the data structures shared by all parts of the
// client: the message model, configuration, error values and logging.
//
// Key Components:
//
//   - Message: A JSON object with a type, optional msg_id/reply_to correlation
//     fields and an arbitrary payload. Unknown fields survive a decode/encode
//     round trip. Factory functions create the requests this module sends
//     (ping, echo, heartbeat) and the responses of the reference peer.
//
//   - MessageType: The value of the "type" field. Peers may define their own
//     types in addition to the constants of this package.
//
//   - ClientConfig / ServerConfig: Connection, timeout, heartbeat and socket
//     settings. DefaultClientConfig returns usable defaults.
//
//   - Errors: ErrConnection, ErrTimeout, ErrConnectionLost, ErrConnectionClosed
//     and ErrMalformedFrame classify failures, test for them with errors.Is.
//
//   - Logger: Custom log format plugged into the dragonboat logger registry,
//     so every package can hold a named logger created at init time.
package common
