package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tarkov-debrief/debrief/internal/config"
	"github.com/tarkov-debrief/debrief/internal/logging"
)

var (
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "debrief",
	Short: "Offline tools for debrief map annotations",
	Long: `debrief replays scripted annotation sessions over the bundled game maps
and writes the exported PNG, the same image the browser shell saves.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		logging.Setup(logLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
