package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mixsafe-gateway/internal/config"
	"mixsafe-gateway/pkg/logging/logging"
)

const version = "1.0.0"

func main() {
	ctx := context.Background()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mixsafe-gateway",
		Short:         "Chemical mixing safety analysis gateway",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// no subcommand means serve
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newPrecacheCmd(), newCacheCmd())
	return root
}

// setup loads configuration and installs the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.Configure(logging.Options{Env: cfg.Logging.Env, Level: cfg.Logging.Level})
	if err != nil {
		return nil, nil, fmt.Errorf("configure logger: %w", err)
	}
	return cfg, logger, nil
}
