// Package unix implements the transport of the protocol over Unix domain
// sockets for peers running on the same machine. The client dials
// common.ClientConfig.SocketPath, the server listens on the socket path given
// as endpoint and removes a stale socket file first.
package unix
