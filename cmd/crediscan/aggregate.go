package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/crediscan/crediscan/internal/observability"
)

var aggregateCommand = &cobra.Command{
	Use:   "aggregate",
	Short: "Merge aggregation-service answers into a company's report",
	Long: `Runs the analysis stage (cached when available), then queries the
configured aggregation tokens in order to fill any report sections the
analysis left empty.`,
	RunE: runAggregateCmd,
}

var aggregateFlags companyFlags

func init() {
	aggregateFlags.register(aggregateCommand)
	rootCmd.AddCommand(aggregateCommand)
}

func runAggregateCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	id, err := aggregateFlags.companyID()
	if err != nil {
		return err
	}
	p, _, err := buildPipeline(ctx, &aggregateFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	analysisRes, err := p.RunAnalysis(ctx, id, nil, aggregateFlags.refresh)
	if err != nil {
		return err
	}
	res, err := p.RunAggregation(ctx, id, analysisRes.Report, aggregateFlags.refresh)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintReport(res.Report)
	return nil
}
