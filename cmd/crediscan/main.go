// Package main provides the entry point for the crediscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crediscan",
	Short: "Company intelligence scanner",
	Long:  "crediscan aggregates public intelligence about a company: open AI/Web3 positions, background, founders, funding, legal record, security posture and reviews, with cached results per company.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
