// Package commands implements raid-cli's cobra command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/glhrmfrts/raid-go/internal/raidlog"
	"github.com/glhrmfrts/raid-go/pkg/raidconfig"
)

var (
	cfgFile string
	cfg     *raidconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "raid-cli",
	Short: "raid-cli is a demo client for the Raid request/response protocol",
	Long: `raid-cli connects to a Raid server over TCP and issues requests
using the github.com/glhrmfrts/raid-go/pkg/raid client library.

Use "raid-cli [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := raidconfig.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		raidlog.Init(raidlog.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		return nil
	},
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./raid.yaml)")
	rootCmd.PersistentFlags().String("host", "", "server host (overrides config)")
	rootCmd.PersistentFlags().String("port", "", "server port (overrides config)")

	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(versionCmd)
}

func overrideAddr(cmd *cobra.Command) {
	if h, _ := cmd.Flags().GetString("host"); h != "" {
		cfg.Host = h
	}
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		cfg.Port = p
	}
}
