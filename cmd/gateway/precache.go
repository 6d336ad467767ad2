package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mixsafe-gateway/internal/metrics"
	"mixsafe-gateway/internal/precache"
)

func newPrecacheCmd() *cobra.Command {
	var (
		workers  int
		perSec   float64
		attempts int
		triples  bool
		useAI    bool
	)

	cmd := &cobra.Command{
		Use:   "precache",
		Short: "Warm the result cache with common household combinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			metrics.Register()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := precache.Options{
				Workers:        cfg.Precache.Workers,
				RatePerSecond:  cfg.Precache.RatePerSecond,
				Attempts:       cfg.Precache.Attempts,
				RetryDelay:     5 * time.Second,
				IncludeTriples: cfg.Precache.IncludeTriples,
				UseAI:          useAI,
			}
			flags := cmd.Flags()
			if flags.Changed("workers") {
				opts.Workers = workers
			}
			if flags.Changed("rate") {
				opts.RatePerSecond = perSec
			}
			if flags.Changed("attempts") {
				opts.Attempts = attempts
			}
			if flags.Changed("triples") {
				opts.IncludeTriples = triples
			}

			report, err := precache.Run(ctx, a.pipeline, precache.CommonSubstances, opts, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "precached %d/%d combinations\n", report.Succeeded, report.Total)
			for _, combo := range report.Failed {
				names := make([]string, len(combo))
				for i, s := range combo {
					names[i] = s.Name
				}
				fmt.Fprintf(out, "  failed: %s\n", strings.Join(names, " + "))
			}
			if len(report.Failed) > 0 {
				logger.Warn("precache incomplete", zap.Int("failed", len(report.Failed)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent analyses (default from config)")
	cmd.Flags().Float64Var(&perSec, "rate", 0, "analyses started per second, 0 for unpaced")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "tries per combination")
	cmd.Flags().BoolVar(&triples, "triples", true, "include three-substance combinations")
	cmd.Flags().BoolVar(&useAI, "ai", true, "run the AI stages for each combination")
	return cmd
}
