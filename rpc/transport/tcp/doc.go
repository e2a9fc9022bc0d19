// Package tcp implements the TCP transport of the protocol. It provides
// concrete implementations of the base package's connector interfaces and
// applies the socket options of common.TCPConf and common.SocketConf to
// every dialed or accepted connection.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
package tcp
