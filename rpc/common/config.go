package common

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 9000
	DefaultConnectTimeout    = 5 * time.Second
	DefaultRequestTimeout    = 5 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultHeartbeatTimeout  = 3 * time.Second
	DefaultMaxFrameSize      = 16 * 1024 * 1024 // 16 MiB
	DefaultBufferSize        = 64 * 1024        // 64 KB
)

// --------------------------------------------------------------------------
// Socket options (shared by client and server)
// --------------------------------------------------------------------------

// SocketConf holds the socket buffer sizes in bytes. Zero keeps the OS default.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // negative keeps the OS default
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of a client connection.
type ClientConfig struct {
	// Endpoint
	Host       string
	Port       int
	SocketPath string // only used by the unix transport

	// Timeouts
	ConnectTimeout time.Duration
	RequestTimeout time.Duration // used when a request passes no timeout
	ReadTimeout    time.Duration // idle read deadline, 0 disables
	WriteTimeout   time.Duration

	// Heartbeat
	HeartbeatInterval time.Duration // 0 disables the heartbeat
	HeartbeatTimeout  time.Duration

	// Connection handling
	DialRetries  int
	MaxFrameSize uint32

	// Socket settings
	SocketConf SocketConf
	TCPConf    TCPConf

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns a configuration with all defaults set
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:              DefaultHost,
		Port:              DefaultPort,
		ConnectTimeout:    DefaultConnectTimeout,
		RequestTimeout:    DefaultRequestTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		HeartbeatInterval: DefaultHeartbeatInterval,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		DialRetries:       1,
		MaxFrameSize:      DefaultMaxFrameSize,
		TCPConf: TCPConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
		LogLevel: "info",
	}
}

// Address returns the host:port pair of the endpoint
func (c *ClientConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Endpoint
	addSection("Endpoint")
	addField("Address", c.Address())
	if c.SocketPath != "" {
		addField("Socket Path", c.SocketPath)
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Connect Timeout", c.ConnectTimeout.String())
	addField("Request Timeout", c.RequestTimeout.String())
	addField("Read Timeout", durationOrOff(c.ReadTimeout))
	addField("Write Timeout", durationOrOff(c.WriteTimeout))
	addField("Dial Retries", strconv.Itoa(c.DialRetries))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))

	// Heartbeat
	addSection("Heartbeat")
	addField("Interval", durationOrOff(c.HeartbeatInterval))
	addField("Timeout", c.HeartbeatTimeout.String())

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the configuration of the reference peer
type ServerConfig struct {
	// Endpoint the server listens on (host:port or socket path)
	Endpoint string

	// IdleTimeout closes connections without traffic, 0 disables
	IdleTimeout  time.Duration
	WriteTimeout time.Duration

	// Request handling
	MaxWorkersPerConn int
	MaxFrameSize      uint32

	// Socket settings
	SocketConf SocketConf
	TCPConf    TCPConf

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Idle Timeout", durationOrOff(c.IdleTimeout))
	addField("Write Timeout", durationOrOff(c.WriteTimeout))
	addField("Workers Per Conn", strconv.Itoa(c.MaxWorkersPerConn))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

func durationOrOff(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	return d.String()
}
