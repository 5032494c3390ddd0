package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glhrmfrts/raid-go/pkg/raid"
)

var callBody string

var callCmd = &cobra.Command{
	Use:   "call <action>",
	Short: "Send an arbitrary action, optionally with a string body, and print the response",
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
		action := args[0]

		hasBody, _ := cmd.Flags().GetBool("with-body")
		if hasBody {
			if err := w.WriteMessage(action); err != nil {
				return err
			}
			if err := w.WriteString(callBody); err != nil {
				return err
			}
		} else {
			if err := w.WriteMessageWithoutBody(action); err != nil {
				return err
			}
		}

		r := raid.NewReader()
		if err := client.Request(w, r); err != nil {
			return fmt.Errorf("request: %w", err)
		}

		code, _ := r.ReadCode()
		fmt.Fprintf(cmd.OutOrStdout(), "code=%s is_map=%v is_array=%v\n", code, r.IsMap(), r.IsArray())
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callBody, "body", "", "string body to send with the request")
	callCmd.Flags().Bool("with-body", false, "include --body as the request body")
}
