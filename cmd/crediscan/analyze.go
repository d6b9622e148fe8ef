package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crediscan/crediscan/internal/observability"
)

var analyzeCommand = &cobra.Command{
	Use:   "analyze",
	Short: "Produce the section report for a company",
	RunE:  runAnalyzeCmd,
}

var analyzeFlags companyFlags

func init() {
	analyzeFlags.register(analyzeCommand)
	rootCmd.AddCommand(analyzeCommand)
}

func runAnalyzeCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	id, err := analyzeFlags.companyID()
	if err != nil {
		return err
	}
	p, _, err := buildPipeline(ctx, &analyzeFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.RunAnalysis(ctx, id, nil, analyzeFlags.refresh)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintReport(res.Report)
	if res.Report.FullyFailed() {
		fmt.Println("Every section was unavailable; check credentials and retry with --refresh.")
	}
	return nil
}
