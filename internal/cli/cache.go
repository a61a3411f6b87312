package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gavelhq/gavel/internal/cache"
	"github.com/gavelhq/gavel/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the review cache",
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheExpireCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}

func openCache(enabled bool) (*cache.Store, error) {
	cfg, err := config.Load(flagConfig, nil)
	if err != nil {
		return nil, err
	}
	store, err := cache.New(enabled, cfg.Cache.Dir, cfg.Cache.TTLDays, newLogger())
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached review results",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(true)
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintln(os.Stdout, "Cache cleared.")
		return nil
	},
}

var cacheExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Delete only expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(true)
		if err != nil {
			return err
		}
		removed := store.ClearExpired()
		fmt.Fprintf(os.Stdout, "Removed %d expired entries.\n", removed)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, nil)
		if err != nil {
			return err
		}
		store, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLDays, newLogger())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		if !store.Enabled() {
			fmt.Fprintln(os.Stdout, "Cache is disabled.")
			return nil
		}
		stats, err := store.GetStats()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	},
}
