// Package rpc implements a client for a length-prefixed JSON message protocol
// over a single persistent stream connection, together with a reference peer.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures used across the module, including the
//     Message type, configuration structures, errors and logging.
//
//   - codec: Frame encoding and decoding (4 byte big endian length followed by
//     the UTF-8 JSON body).
//
//   - transport: The connection state machine, request correlation, the reader
//     and heartbeat loops and the server side accept loop, with pluggable
//     implementations for TCP and Unix sockets.
//
//   - notify: Sinks for messages that answer no pending request.
//
//   - client: The high level client with helpers per message type.
//
//   - server: A reference peer answering ping, echo, heartbeat and request.
package rpc
