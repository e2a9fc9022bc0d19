package cmd

import (
	"fmt"
	"github.com/ValentinKolb/mcpc/cmd/client"
	"github.com/ValentinKolb/mcpc/cmd/serve"
	"github.com/ValentinKolb/mcpc/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "mcpc",
		Short: "client for a length-prefixed JSON message protocol",
		Long: fmt.Sprintf(`mcpc (v%s)

A client for a length-prefixed JSON message protocol over a single
persistent connection, with correlated requests, heartbeats and
notifications, plus a reference server to test against.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mcpc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mcpc v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
