package util

import (
	"fmt"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/ValentinKolb/mcpc/rpc/transport/tcp"
	"github.com/ValentinKolb/mcpc/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. MCPC_PORT)
	EnvPrefix = "mcpc"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "host"
	cmd.PersistentFlags().String(key, defaults.Host, WrapString("Host of the server (tcp transport)"))

	key = "port"
	cmd.PersistentFlags().Int(key, defaults.Port, WrapString("Port of the server (tcp transport)"))

	key = "socket"
	cmd.PersistentFlags().String(key, "/tmp/mcpc.sock", WrapString("Path of the server socket (unix transport)"))

	key = "connect-timeout"
	cmd.PersistentFlags().Duration(key, defaults.ConnectTimeout, WrapString("How long to wait for the connection to be established"))

	key = "request-timeout"
	cmd.PersistentFlags().Duration(key, defaults.RequestTimeout, WrapString("How long to wait for the reply to a request"))

	key = "read-timeout"
	cmd.PersistentFlags().Duration(key, 0, WrapString("Close the connection if nothing was received for this long (0 disables)"))

	key = "write-timeout"
	cmd.PersistentFlags().Duration(key, defaults.WriteTimeout, WrapString("Deadline for writing a single frame (0 disables)"))

	key = "heartbeat-interval"
	cmd.PersistentFlags().Duration(key, defaults.HeartbeatInterval, WrapString("Interval between heartbeat requests (0 disables the heartbeat)"))

	key = "heartbeat-timeout"
	cmd.PersistentFlags().Duration(key, defaults.HeartbeatTimeout, WrapString("How long to wait for a heartbeat reply"))

	key = "dial-retries"
	cmd.PersistentFlags().Int(key, defaults.DialRetries, WrapString("How many times to try to connect before giving up"))

	key = "max-frame-size"
	cmd.PersistentFlags().Uint32(key, defaults.MaxFrameSize, WrapString("Frames with a larger declared length are dropped (in bytes)"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 64, WrapString("The size of the socket and reader buffer (in KB)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, defaults.TCPConf.TCPNoDelay, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, defaults.TCPConf.TCPLingerSec, WrapString("The linger time (in seconds, only for tcp, negative keeps the OS default)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, defaults.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from .env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Host:              viper.GetString("host"),
		Port:              viper.GetInt("port"),
		SocketPath:        viper.GetString("socket"),
		ConnectTimeout:    viper.GetDuration("connect-timeout"),
		RequestTimeout:    viper.GetDuration("request-timeout"),
		ReadTimeout:       viper.GetDuration("read-timeout"),
		WriteTimeout:      viper.GetDuration("write-timeout"),
		HeartbeatInterval: viper.GetDuration("heartbeat-interval"),
		HeartbeatTimeout:  viper.GetDuration("heartbeat-timeout"),
		DialRetries:       viper.GetInt("dial-retries"),
		MaxFrameSize:      viper.GetUint32("max-frame-size"),
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		},
		LogLevel: viper.GetString("log-level"),
	}
}

// GetTransport creates the client transport selected by the transport flag
func GetTransport(config common.ClientConfig) (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(config), nil
	case "unix":
		return unix.NewUnixClientTransport(config), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the server transport selected by the transport flag
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
