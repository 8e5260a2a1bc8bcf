package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crossvenue/marketfinder/internal/metrics"
)

// newServeCmd starts the metrics scrape endpoint (/metrics) plus a
// plain-text /health probe (spec's Non-goals exclude a user-facing UI;
// there are no other routes, matching the teacher's
// interfaces/http/server.go minus its scan-status UI routes).
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Prometheus metrics endpoint",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", ":9090", "listen address for the metrics server")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	jsonLog, _ := cmd.Flags().GetBool("json-log")
	configureLogging(jsonLog)

	addr, _ := cmd.Flags().GetString("addr")

	reg := metrics.NewRegistry()
	registry := prometheus.NewRegistry()
	reg.MustRegister(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	log.Info().Str("addr", addr).Msg("metrics server listening")
	return http.ListenAndServe(addr, mux)
}
