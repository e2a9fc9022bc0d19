// Package cmd implements the command-line interface of mcpc. It provides a
// hierarchical command structure for talking to a server as a client and for
// running the reference server.
//
// The package is organized into several subpackages:
//
//   - client: Commands that send requests (ping, echo, send), print
//     notifications (listen) and measure throughput (perf)
//   - serve: Starts the reference server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set with an environment variable MCPC_<FLAG>
// (e.g. MCPC_HEARTBEAT_INTERVAL=5s), .env and .env.local are loaded first.
//
// See mcpc -help for a list of all commands.
package cmd
