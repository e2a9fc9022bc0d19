package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mcpc/cmd/util"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/notify"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

var (
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Sends ping requests and prints the round trip time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			for i := 0; i < max(count, 1); i++ {
				rtt, err := rpcClient.Ping(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("pong: seq=%d time=%s\n", i+1, rtt)
			}
			return nil
		},
	}
	echoCmd = &cobra.Command{
		Use:   "echo [text]",
		Short: "Sends an echo request and prints the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := rpcClient.Echo(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
	sendCmd = &cobra.Command{
		Use:   "send [type] [payload]",
		Short: "Sends a request of any type and prints the raw reply",
		Long:  "Sends a request of the given type. The optional payload must be valid JSON and is sent as the payload field of the request.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &common.Message{Type: common.MessageType(args[0])}
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("payload is not valid JSON: %s", args[1])
				}
				req.Payload = json.RawMessage(args[1])
			}

			resp, err := rpcClient.SendRequest(cmd.Context(), req, 0)
			if err != nil {
				return err
			}

			out, err := resp.MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Connects and prints every notification the server sends",
		Long:  "Connects to the server and prints all messages that do not answer a request, one JSON object per line, until interrupted. Use --type to only print messages of certain types.",
		Args:  cobra.NoArgs,
		RunE:  runListen,
	}
)

func init() {
	pingCmd.Flags().Int("count", 1, util.WrapString("Number of ping requests to send"))
	listenCmd.Flags().StringSlice("type", nil, util.WrapString("Only print messages of these types (comma separated)"))
	listenCmd.Flags().Duration("duration", 0, util.WrapString("Stop listening after this duration (0 listens until interrupted)"))
}

// runListen prints notifications until interrupted, the duration passed or the connection was lost
func runListen(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if d, _ := cmd.Flags().GetDuration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var types []common.MessageType
	names, _ := cmd.Flags().GetStringSlice("type")
	for _, name := range names {
		types = append(types, common.MessageType(name))
	}

	topics := notify.NewTopics(64)
	defer topics.Close()

	sub, err := topics.Subscribe(types...)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	rpcClient.SetNotificationSink(topics)
	if err := rpcClient.Connect(ctx); err != nil {
		return err
	}

	// Stop once the connection is gone
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if rpcClient.State() == transport.StateClosed {
					stop()
					return
				}
			}
		}
	}()

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if rpcClient.State() == transport.StateClosed {
				return common.ErrConnectionLost
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		out, err := msg.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
}
