// Package cmd wires the yieldpipe CLI: feature building, model
// training and prediction.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agriml/yieldpipe/config"
	"github.com/agriml/yieldpipe/pkg/log"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "yieldpipe",
	Short: "Agricultural feature pipeline and crop yield model",
	Long: `yieldpipe merges heterogeneous agricultural sources into a
feature table, keeps it in a relational feature store, and trains a
gradient-boosted model predicting crop yield.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logger = log.New(log.Options{Level: level, Format: cfg.Log.Format})
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./yieldpipe.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
