package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/httpapi"
	"inferd/internal/manager"
	"inferd/internal/monitor"
	"inferd/internal/registry"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRootCmd constructs the Cobra command with flags that override
// config-file values. Flags only apply when explicitly set.
func buildRootCmd() *cobra.Command {
	var cfgPath string
	var logLevel string
	var logJSON bool

	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Resource-aware model lifecycle daemon for local LLM inference",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if cfgPath != "" {
				var err error
				cfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config %s: %w", cfgPath, err)
				}
			}
			applyFlagOverrides(cmd, &cfg)
			applyDefaults(&cfg)
			return run(cfg, logLevel, logJSON)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	f.StringVar(&logLevel, "log-level", envOr("INFERD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	f.BoolVar(&logJSON, "log-json", false, "Emit JSON logs instead of console output")

	f.String("addr", "", "HTTP listen address, e.g. :8080")
	f.String("models-dir", "", "Directory to scan for *.gguf model files")
	f.String("default-model", "", "Default model id when request omits model")
	f.Int("max-models", 0, "Max concurrently loaded models (0=unlimited)")
	f.Int("max-memory-mb", 0, "Resident memory budget in MB (0=unlimited)")
	f.Int("max-accel-mb", 0, "Accelerator memory budget in MB (0=unlimited)")
	f.Int("memory-margin-mb", 0, "Memory kept free on top of reservations")
	f.Int("sample-interval", 0, "Resource sample interval in seconds")
	f.Int("stale-after", 0, "Seconds before resource data is considered stale")
	f.Int("max-queue-depth", 0, "Per-model queued request cap")
	f.Int("max-wait", 0, "Max seconds a request waits for a queue slot")
	f.Int("drain-timeout", 0, "Seconds to wait for in-flight work before abandoning an eviction")
	f.Int("engine-ctx", 0, "Engine context window size")
	f.Int("engine-threads", 0, "Engine thread count")

	return root
}

// applyFlagOverrides copies explicitly-set flags onto the config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr, _ = f.GetString("addr")
	}
	if f.Changed("models-dir") {
		cfg.ModelsDir, _ = f.GetString("models-dir")
	}
	if f.Changed("default-model") {
		cfg.DefaultModel, _ = f.GetString("default-model")
	}
	if f.Changed("max-models") {
		cfg.MaxModels, _ = f.GetInt("max-models")
	}
	if f.Changed("max-memory-mb") {
		cfg.MaxMemoryMB, _ = f.GetInt("max-memory-mb")
	}
	if f.Changed("max-accel-mb") {
		cfg.MaxAccelMB, _ = f.GetInt("max-accel-mb")
	}
	if f.Changed("memory-margin-mb") {
		cfg.MemoryMarginMB, _ = f.GetInt("memory-margin-mb")
	}
	if f.Changed("sample-interval") {
		cfg.SampleIntervalSeconds, _ = f.GetInt("sample-interval")
	}
	if f.Changed("stale-after") {
		cfg.StaleAfterSeconds, _ = f.GetInt("stale-after")
	}
	if f.Changed("max-queue-depth") {
		cfg.MaxQueueDepth, _ = f.GetInt("max-queue-depth")
	}
	if f.Changed("max-wait") {
		cfg.MaxWaitSeconds, _ = f.GetInt("max-wait")
	}
	if f.Changed("drain-timeout") {
		cfg.DrainTimeoutSeconds, _ = f.GetInt("drain-timeout")
	}
	if f.Changed("engine-ctx") {
		cfg.EngineCtx, _ = f.GetInt("engine-ctx")
	}
	if f.Changed("engine-threads") {
		cfg.EngineThreads, _ = f.GetInt("engine-threads")
	}
}

func applyDefaults(cfg *config.Config) {
	if cfg.Addr == "" {
		cfg.Addr = envOr("INFERD_ADDR", ":8080")
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "~/models/llm"
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger(level string, jsonOut bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var w = os.Stderr
	if jsonOut {
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

func run(cfg config.Config, logLevel string, logJSON bool) error {
	log := newLogger(logLevel, logJSON)

	reg := registry.New()
	n, err := reg.ScanDir(cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("scan models dir %s: %w", cfg.ModelsDir, err)
	}
	log.Info().Str("dir", cfg.ModelsDir).Int("models", n).Msg("scanned models directory")

	budget := monitor.Budget{
		MaxModels:      cfg.MaxModels,
		MaxMemoryMB:    cfg.MaxMemoryMB,
		MaxAccelMB:     cfg.MaxAccelMB,
		MemoryMarginMB: cfg.MemoryMarginMB,
		WarnFraction:   cfg.WarnFraction,
		CritFraction:   cfg.CritFraction,
	}

	sampler, err := monitor.NewProcSampler(cfg.ModelsDir, nil)
	if err != nil {
		return fmt.Errorf("init resource sampler: %w", err)
	}
	mon := monitor.New(monitor.Config{
		Sampler:    sampler,
		Budget:     budget,
		Interval:   time.Duration(cfg.SampleIntervalSeconds) * time.Second,
		Window:     cfg.SmoothingWindow,
		StaleAfter: time.Duration(cfg.StaleAfterSeconds) * time.Second,
		Logger:     log.With().Str("component", "monitor").Logger(),
	})
	mon.Start()

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:      reg,
		Pressure:      mon,
		Budget:        budget,
		Publisher:     manager.NewZerologPublisher(log.With().Str("component", "events").Logger()),
		Logger:        log.With().Str("component", "manager").Logger(),
		DefaultModel:  cfg.DefaultModel,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSeconds) * time.Second,
		DrainTimeout:  time.Duration(cfg.DrainTimeoutSeconds) * time.Second,
		TurnCap:       cfg.SessionTurnCap,
		EngineCtx:     cfg.EngineCtx,
		EngineThreads: cfg.EngineThreads,
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Stop accepting requests, then drain loaded models, then stop sampling.
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	cancelBase()
	if err := mgr.Close(); err != nil {
		log.Warn().Err(err).Msg("manager close error")
	}
	mon.Stop()
	return nil
}
