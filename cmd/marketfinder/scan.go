package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crossvenue/marketfinder/internal/adjudicator"
	"github.com/crossvenue/marketfinder/internal/app"
	"github.com/crossvenue/marketfinder/internal/config"
	"github.com/crossvenue/marketfinder/internal/domain/market"
	"github.com/crossvenue/marketfinder/internal/extractor"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one pipeline execution end to end",
		Long:  "Extracts, normalizes, buckets, filters, scores, and ranks arbitrage opportunities across two venues in a single run.",
		RunE:  runScan,
	}

	cmd.Flags().String("venue-a", "", "venue A identifier (required)")
	cmd.Flags().String("venue-b", "", "venue B identifier (required)")
	cmd.Flags().String("input-a", "", "path to venue A's raw market JSON array (required)")
	cmd.Flags().String("input-b", "", "path to venue B's raw market JSON array (required)")
	cmd.Flags().String("output", "", "path to write the ranked opportunity list as JSON (stdout if empty)")
	cmd.Flags().Bool("dry-run", false, "do not abort the run on a stage error; results are still persisted to the store")
	cmd.Flags().String("llm-endpoint", "", "LLM completion endpoint URL (required)")
	cmd.Flags().String("llm-api-key", "", "LLM provider API key (or set MARKETFINDER_LLM_API_KEY)")
	cmd.Flags().String("llm-model", "heuristic-v1", "LLM model identifier recorded on evaluations")
	cmd.MarkFlagRequired("venue-a")
	cmd.MarkFlagRequired("venue-b")
	cmd.MarkFlagRequired("input-a")
	cmd.MarkFlagRequired("input-b")
	cmd.MarkFlagRequired("llm-endpoint")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	jsonLog, _ := cmd.Flags().GetBool("json-log")
	configureLogging(jsonLog)

	configPath, _ := cmd.Flags().GetString("config")
	venueA, _ := cmd.Flags().GetString("venue-a")
	venueB, _ := cmd.Flags().GetString("venue-b")
	inputA, _ := cmd.Flags().GetString("input-a")
	inputB, _ := cmd.Flags().GetString("input-b")
	outputPath, _ := cmd.Flags().GetString("output")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	llmEndpoint, _ := cmd.Flags().GetString("llm-endpoint")
	llmAPIKey, _ := cmd.Flags().GetString("llm-api-key")
	llmModel, _ := cmd.Flags().GetString("llm-model")
	if llmAPIKey == "" {
		llmAPIKey = os.Getenv("MARKETFINDER_LLM_API_KEY")
	}

	cfg, err := loadConfigOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if dryRun {
		cfg.Orchestration.FailOnStageError = false
	}

	provider := adjudicator.NewHTTPProvider(adjudicator.HTTPProviderConfig{
		Name:         "marketfinder-llm",
		ModelVersion: llmModel,
		Endpoint:     llmEndpoint,
		APIKey:       llmAPIKey,
		CostPerCall:  cfg.LLM.MaxCostPerBatchUSD / 1000, // conservative per-call estimate
	})

	built, err := app.New(cfg, app.Options{Provider: provider, Log: log.Logger})
	if err != nil {
		return fmt.Errorf("scan: wire pipeline: %w", err)
	}
	defer built.RedisClient.Close()

	extractorA := extractor.NewFileExtractor(inputA, "id")
	extractorB := extractor.NewFileExtractor(inputB, "id")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Orchestration.MaxExecutionHours)*time.Hour)
	defer cancel()

	log.Info().Str("venue_a", venueA).Str("venue_b", venueB).Msg("starting pipeline run")

	exec, runErr := built.Orchestrator.Run(ctx, extractorA, extractorB, market.Venue(venueA), market.Venue(venueB))
	if exec == nil {
		return fmt.Errorf("scan: %w", runErr)
	}

	fmt.Printf("execution %s: status=%s wall_time=%s opportunities=%d\n",
		exec.ExecutionID, exec.Status, exec.WallTime, len(exec.Opportunities))
	for _, m := range exec.StageMetrics {
		fmt.Printf("  %-12s in=%-6d out=%-6d dur=%-10s failed=%v\n",
			m.Stage, m.InputCount, m.OutputCount, m.Duration, m.Failed)
	}

	if err := writeOpportunities(exec.Opportunities, outputPath); err != nil {
		log.Warn().Err(err).Msg("failed to write opportunity output")
	}

	return runErr
}

func writeOpportunities(opportunities interface{}, path string) error {
	data, err := json.MarshalIndent(opportunities, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal opportunities: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func loadConfigOrDefault(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}
