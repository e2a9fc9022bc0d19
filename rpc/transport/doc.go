// Package transport defines the interfaces of the protocol's client and server
// transports. Implementations for TCP and Unix sockets live in the sub packages
// and share the framing and correlation logic of the base package.
//
// Key Components:
//
//   - IRPCClientTransport: A single persistent connection that sends correlated
//     requests, hands unmatched messages to a NotificationHandleFunc and keeps
//     itself alive with heartbeats.
//
//   - IRPCServerTransport: Accepts connections and passes every decoded message
//     to a ServerHandleFunc, writing back the returned response.
//
//   - ConnState: The client lifecycle (disconnected, connecting, connected,
//     closing, closed). Closed is terminal.
package transport
