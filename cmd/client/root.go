package client

import (
	"github.com/ValentinKolb/mcpc/cmd/util"
	"github.com/ValentinKolb/mcpc/rpc/client"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/spf13/cobra"
)

var (
	rpcClient *client.Client

	// ClientCommands represents the client command group
	ClientCommands = &cobra.Command{
		Use:                "client",
		Short:              "Send requests to a server",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Add common RPC flags to the client command
	util.SetupRPCClientFlags(ClientCommands)

	// Add subcommands
	ClientCommands.AddCommand(pingCmd)
	ClientCommands.AddCommand(echoCmd)
	ClientCommands.AddCommand(sendCmd)
	ClientCommands.AddCommand(listenCmd)
	ClientCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the RPC client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}

	t, err := util.GetTransport(*config)
	if err != nil {
		return err
	}

	rpcClient = client.NewClient(*config, t)
	return nil
}

// closeClient closes the connection after the command finished
func closeClient(_ *cobra.Command, _ []string) error {
	if rpcClient == nil {
		return nil
	}
	return rpcClient.Close()
}
