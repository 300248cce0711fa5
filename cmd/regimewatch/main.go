package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/regimewatch/internal/adapters/cache"
	"github.com/sawpanic/regimewatch/internal/adapters/sink"
	"github.com/sawpanic/regimewatch/internal/adapters/vendorfeed"
	"github.com/sawpanic/regimewatch/internal/calibration"
	"github.com/sawpanic/regimewatch/internal/candle"
	"github.com/sawpanic/regimewatch/internal/config"
	"github.com/sawpanic/regimewatch/internal/pipeline"
	"github.com/sawpanic/regimewatch/internal/ports"
	"github.com/sawpanic/regimewatch/internal/telemetry"
)

const (
	appName = "regimewatch"
	version = "v0.1.0"
)

func main() {
	telemetry.InitLogging()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market-regime classification engine for ES/NQ index futures.",
		Version: version,
		Run:     runDefaultEntry,
	}

	classifyCmd := &cobra.Command{
		Use:   "classify [ES|NQ]",
		Short: "Run one classification and print the RegimeReport as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runClassify,
	}
	classifyCmd.Flags().String("config", "", "Path to a regimewatch.yaml config file")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the /health, /metrics and /classify HTTP server",
		RunE:  runMonitor,
	}
	monitorCmd.Flags().String("config", "", "Path to a regimewatch.yaml config file")

	rootCmd.AddCommand(classifyCmd, monitorCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runDefaultEntry(cmd *cobra.Command, args []string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "regimewatch requires a subcommand in non-interactive environments:\n\n")
		fmt.Fprintf(os.Stderr, "  regimewatch classify ES\n")
		fmt.Fprintf(os.Stderr, "  regimewatch monitor --config regimewatch.yaml\n")
		os.Exit(2)
	}
	_ = cmd.Help()
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(path)
}

func buildOrchestrator(ctx context.Context, cfg config.Config) (*pipeline.Orchestrator, error) {
	reg := calibration.NewRegistry()
	if cfg.Calibration.OverridePath != "" {
		if err := reg.LoadFromFile(cfg.Calibration.OverridePath); err != nil {
			return nil, err
		}
	}

	candleCache := cache.NewAuto(cfg.Cache.RedisAddr)
	source := vendorfeed.New(vendorfeed.Config{
		BaseURL:        cfg.Vendor.BaseURL,
		RequestTimeout: cfg.Vendor.RequestTimeout,
		RateLimitRPS:   cfg.Vendor.RateLimitRPS,
		RateLimitBurst: cfg.Vendor.RateLimitBurst,
		CacheTTL:       cfg.Cache.TTL,
	}, nil, candleCache)

	var reportSink ports.ReportSink
	if cfg.Persistence.DSN != "" {
		pgSink, err := sink.NewPostgresSink(ctx, cfg.Persistence.DSN)
		if err != nil {
			return nil, fmt.Errorf("build orchestrator: %w", err)
		}
		reportSink = pgSink
	}

	return pipeline.New(source, ports.SystemClock{}, ports.NoEventWindow{}, reportSink, reg), nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	instrument := candle.Instrument(args[0])
	if err := instrument.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	orch, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	report, runID, err := orch.Run(ctx, instrument)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	orch, err := buildOrchestrator(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	metrics := telemetry.NewRegistry()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", telemetry.Handler())
	mux.HandleFunc("/classify", classifyHandler(orch, metrics))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("starting regimewatch monitoring server")
	return http.ListenAndServe(addr, mux)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func classifyHandler(orch *pipeline.Orchestrator, metrics *telemetry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instrument := candle.Instrument(r.URL.Query().Get("instrument"))
		if err := instrument.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		report, _, err := orch.Run(r.Context(), instrument)
		metrics.RunsTotal.WithLabelValues(string(instrument)).Inc()
		metrics.RunDuration.WithLabelValues(string(instrument)).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RunErrorsTotal.WithLabelValues(string(instrument), "pipeline").Inc()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}
