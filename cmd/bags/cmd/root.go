// Package cmd provides the CLI commands for the bags tool.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var debugMode bool

// NewRootCmd creates the root command for the bags CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bags",
		Short: "Bias-aware grid search for binary classifiers",
		Long: `bags runs exhaustive hyperparameter search that scores every
configuration for accuracy and for group fairness (demographic-parity gap,
equalized-odds gap), then selects the configuration with the best combined
score.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debugMode {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
