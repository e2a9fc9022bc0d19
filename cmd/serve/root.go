package serve

import (
	"context"
	"github.com/ValentinKolb/mcpc/cmd/util"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the reference server",
		Long:    `Start the reference server with the specified configuration. It answers ping, echo, heartbeat and request messages. The configuration can be set via command line flags or environment variables. The format of the environment variables is MCPC_<flag> (e.g. MCPC_ENDPOINT=0.0.0.0:9000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "127.0.0.1:9000", util.WrapString("The address on which the server will listen (e.g. 127.0.0.1:9000, /tmp/mcpc.sock, ...)"))

	key = "idle-timeout"
	ServeCmd.PersistentFlags().Duration(key, 0, util.WrapString("Close connections without traffic for this long (0 disables)"))

	key = "write-timeout"
	ServeCmd.PersistentFlags().Duration(key, common.DefaultWriteTimeout, util.WrapString("Deadline for writing a single frame (0 disables)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 4, util.WrapString("Maximum number of messages handled concurrently per connection"))

	key = "max-frame-size"
	ServeCmd.PersistentFlags().Uint32(key, common.DefaultMaxFrameSize, util.WrapString("Frames with a larger declared length are dropped (in bytes)"))

	key = "transport-tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, util.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.IdleTimeout = viper.GetDuration("idle-timeout")
	serveCmdConfig.WriteTimeout = viper.GetDuration("write-timeout")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("workers")
	serveCmdConfig.MaxFrameSize = viper.GetUint32("max-frame-size")
	serveCmdConfig.TCPConf = common.TCPConf{
		TCPNoDelay:   viper.GetBool("transport-tcp-nodelay"),
		TCPLingerSec: -1,
	}
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// validate the log level early
	_, err := common.ParseLogLevel(serveCmdConfig.LogLevel)
	return err
}

// run starts the server and stops it on SIGINT or SIGTERM
func run(cmd *cobra.Command, _ []string) error {
	t, err := util.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func(ctx context.Context) {
		<-ctx.Done()
		_ = serv.Close()
	}(ctx)

	return serv.Serve()
}
