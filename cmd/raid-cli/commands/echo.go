package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glhrmfrts/raid-go/internal/raidlog"
	"github.com/glhrmfrts/raid-go/pkg/raid"
)

var echoCmd = &cobra.Command{
	Use:   "echo [message]",
	Short: `Send an "api.echo" request and print the server's response`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrideAddr(cmd)

		client := raid.NewClient(cfg.Host, cfg.Port,
			raid.WithConnectTimeout(cfg.ConnectTimeout),
			raid.WithRecvTimeout(cfg.RecvTimeout),
			raid.WithDefaultTimeout(cfg.RequestTimeout),
		)
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer client.Disconnect()

		w := raid.NewWriter(client)
		if err := w.WriteMessage("api.echo"); err != nil {
			return err
		}
		if err := w.WriteString(args[0]); err != nil {
			return err
		}

		r := raid.NewReader()
		if err := client.Request(w, r); err != nil {
			return fmt.Errorf("request: %w", err)
		}

		reply, ok := r.ReadString()
		if !ok {
			raidlog.Warn("response body was not a string")
		}
		code, _ := r.ReadCode()
		fmt.Fprintf(cmd.OutOrStdout(), "code=%s body=%q\n", code, reply)
		return nil
	},
}
