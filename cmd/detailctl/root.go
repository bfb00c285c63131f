package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "detailctl",
	Short:         "Operate a detailflow deployment",
	Long:          "Admin and intake tooling for detailflow: organizations, API keys and photo intake.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}
