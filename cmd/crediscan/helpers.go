package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crediscan/crediscan/internal/config"
	"github.com/crediscan/crediscan/internal/observability"
	"github.com/crediscan/crediscan/internal/pipeline"
	"github.com/crediscan/crediscan/internal/types"
)

// companyFlags are shared by every company-scoped command.
type companyFlags struct {
	configPath string
	company    string
	domain     string
	refresh    bool
	verbose    bool
}

func (f *companyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (overridden by environment variables)")
	cmd.Flags().StringVarP(&f.company, "company", "c", "", "Company name")
	cmd.Flags().StringVarP(&f.domain, "domain", "d", "", "Company domain (optional, improves caching and search)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "Ignore cached results and refetch")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed output")
}

func (f *companyFlags) companyID() (types.CompanyID, error) {
	id := types.CompanyID{Name: f.company, Domain: f.domain}
	if id.IsZero() {
		return id, fmt.Errorf("--company or --domain must be provided")
	}
	return id, nil
}

// buildPipeline loads configuration and assembles the pipeline with its
// logger. The caller must Close the returned pipeline.
func buildPipeline(ctx context.Context, f *companyFlags) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.verbose {
		cfg.Verbose = true
		if cfg.LogLevel == "info" {
			cfg.LogLevel = "debug"
		}
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	opts := pipeline.Options{Config: cfg, Logger: logger}
	if cfg.Verbose {
		opts.OnProgress = func(e pipeline.ProgressEvent) {
			fmt.Printf("[%s] %s\n", e.Stage, e.Message)
		}
	}

	p, err := pipeline.New(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}
