// Package main provides the fsi_screener CLI: a batch pipeline that scrapes
// candidate websites, screens them with a judgment service and joins the
// accepted pages back to their source rows into one combined dataset.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fsi_screener",
	Short: "Screen candidate websites for food-sharing initiatives",
	Long:  "fsi_screener ingests heterogeneous tabular files of candidate URLs, scrapes and normalizes the pages, classifies each page with an external judgment service, and joins accepted pages back to their original source rows into a combined dataset.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
