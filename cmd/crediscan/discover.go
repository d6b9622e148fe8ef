package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/crediscan/crediscan/internal/observability"
)

var discoverCommand = &cobra.Command{
	Use:   "discover",
	Short: "Find and classify a company's open job postings",
	RunE:  runDiscoverCmd,
}

var discoverFlags companyFlags

func init() {
	discoverFlags.register(discoverCommand)
	rootCmd.AddCommand(discoverCommand)
}

func runDiscoverCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	id, err := discoverFlags.companyID()
	if err != nil {
		return err
	}
	p, _, err := buildPipeline(ctx, &discoverFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.RunDiscovery(ctx, id, discoverFlags.refresh)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintPostings(res.Postings)
	return nil
}
