package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cultivate-research/fsi-screener/internal/config"
	"github.com/cultivate-research/fsi-screener/internal/llm"
	"github.com/cultivate-research/fsi-screener/internal/prompts"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to the judgment service",
	Long:  "Sends a one-shot prompt to the judgment service and prints the reply. Useful for verifying the credential and network access before a long run.",
	RunE:  runPing,
}

var pingAPIKey string

func init() {
	pingCmd.Flags().StringVar(&pingAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")

	rootCmd.AddCommand(pingCmd)
}

func runPing(_ *cobra.Command, _ []string) error {
	cfg := config.Config{APIKey: pingAPIKey}
	if err := requireAPIKey(&cfg); err != nil {
		return err
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create judgment service client: %w", err)
	}
	defer func() { _ = client.Close() }()

	prompt, err := prompts.Screening("ping")
	if err != nil {
		return err
	}
	reply, err := client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil {
		return fmt.Errorf("judgment service unreachable: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Model: %s\n", client.GetModel(llm.TierLite))
	_, _ = fmt.Fprintf(os.Stdout, "Reply: %s\n", reply)
	return nil
}
