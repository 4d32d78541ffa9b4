package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "Watch repositories and web pages for changes, get notified when they move",
	Long: `driftwatch polls configured targets — repository paths, git refs, and
published web pages — compares what it sees against the last recorded
state, and sends STARTUP, CHANGE, and HEALTHCHECK notifications by email
with optional Slack, webhook, and Telegram delivery.

Get started:
  driftwatch init       Interactive setup wizard
  driftwatch doctor     Verify configuration and credentials
  driftwatch run        Evaluate every target once
  driftwatch watch      Keep evaluating on a cron schedule
  driftwatch status     Show per-target state and recent events
  driftwatch ui         Launch the terminal dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.driftwatch/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		initCmd,
		runCmd,
		watchCmd,
		statusCmd,
		uiCmd,
		configCmd,
		doctorCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}
}
