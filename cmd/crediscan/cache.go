package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crediscan/crediscan/internal/cache"
	"github.com/crediscan/crediscan/internal/config"
)

var cacheClearCommand = &cobra.Command{
	Use:   "cache-clear",
	Short: "Clear cached results",
	Long:  "Clears one cache partition (discovery, analysis or aggregation) or all of them.",
	RunE:  runCacheClearCmd,
}

var (
	cacheConfigPath string
	cacheKind       string
)

func init() {
	cacheClearCommand.Flags().StringVar(&cacheConfigPath, "config", "", "Path to config.json file")
	cacheClearCommand.Flags().StringVarP(&cacheKind, "kind", "k", "", "Partition to clear: discovery, analysis or aggregation (default: all)")
	rootCmd.AddCommand(cacheClearCommand)
}

func runCacheClearCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cacheConfigPath)
	if err != nil {
		return err
	}
	store, err := cache.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	kinds := []cache.Kind{cache.KindDiscovery, cache.KindAnalysis, cache.KindAggregation}
	if cacheKind != "" {
		k := cache.Kind(cacheKind)
		if !k.Valid() {
			return fmt.Errorf("unknown cache kind %q", cacheKind)
		}
		kinds = []cache.Kind{k}
	}

	for _, k := range kinds {
		if err := store.Clear(ctx, k); err != nil {
			return fmt.Errorf("clearing %s cache: %w", k, err)
		}
		fmt.Printf("Cleared %s cache\n", k)
	}
	return nil
}
