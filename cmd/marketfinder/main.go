package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "marketfinder"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Cross-venue prediction-market arbitrage detection pipeline",
		Version: version,
		Long: `marketfinder ingests binary prediction-market catalogs from two venues
and surfaces ranked cross-venue arbitrage opportunities through a five-stage
cascaded funnel: semantic bucketing, hierarchical filtering, ML worthiness
scoring, LLM semantic adjudication, and arbitrage scoring.`,
	}

	rootCmd.PersistentFlags().Bool("json-log", false, "emit logs as JSON instead of console format")
	rootCmd.PersistentFlags().String("config", "config/marketfinder.yaml", "path to the pipeline YAML config")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func configureLogging(jsonLog bool) {
	if jsonLog {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}
