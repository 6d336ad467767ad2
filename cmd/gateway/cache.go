package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mixsafe-gateway/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or purge cached results",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "key <substance>...",
		Short: "Print the cache key for a substance set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			fmt.Fprintln(cmd.OutOrStdout(), cache.BuildKey(args, cfg.Cache.Version).String())
			return nil
		},
	})

	var version string
	purge := &cobra.Command{
		Use:   "purge [substance...]",
		Short: "Remove the cached result for a substance set, or a whole cache version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (version == "") == (len(args) == 0) {
				return errors.New("give either substances or --version")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, closer, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			if version != "" {
				n, err := store.PurgeVersion(cmd.Context(), version)
				if err != nil {
					return fmt.Errorf("purge version %s: %w", version, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries of version %s\n", n, version)
				return nil
			}

			key := cache.BuildKey(args, cfg.Cache.Version)
			if err := store.Purge(cmd.Context(), key); err != nil {
				return fmt.Errorf("purge %s: %w", key, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "purged", key.String())
			return nil
		},
	}
	purge.Flags().StringVar(&version, "version", "", "drop every entry stored under this cache version")
	cmd.AddCommand(purge)

	return cmd
}
