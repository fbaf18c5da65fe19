package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eventret/internal/config"
	"eventret/internal/util"
)

const version = "0.1.0"

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "eventret",
	Short: "Event-relative return backtester",
	Long: `eventret measures how a stock moved around recurring calendar events.

Each historical occurrence of an event is resolved to a trading session, the
entry and exit offsets are stepped in trading sessions from there, and the
percentage returns are summarised as mean, standard deviation and win rate.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		util.SetDefault(util.NewLoggerTo(os.Stderr, logLevel, "text"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $EVENTRET_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
}

// loadConfig reads --config, or the default location.
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	return config.LoadDefault()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
