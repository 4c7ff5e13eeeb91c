package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"predictd/internal/config"
	"predictd/internal/httpapi"
	"predictd/internal/inference"
	"predictd/internal/registry"
	"predictd/internal/store"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "predictd",
		Short:         "Model cache and prediction dispatch daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	root.Flags().String("addr", "", "HTTP listen address, e.g. :8080")
	root.Flags().String("models-dir", "", "Directory to scan for model files")
	root.Flags().Int("cache-capacity", 0, "Maximum number of resident models")
	root.Flags().Int("exec-timeout-sec", 0, "Per-prediction execution timeout in seconds")
	root.Flags().Int("max-queue-depth", 0, "Queued predictions per model before 429")
	root.Flags().Int("max-wait-sec", 0, "Max seconds a prediction may wait for admission")
	root.Flags().Int64("max-body-bytes", 0, "Maximum request body size in bytes")
	root.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	root.Flags().String("log-format", "", "Log format: json|console")
	root.Flags().Bool("cors", false, "Enable CORS middleware")
	root.Flags().StringSlice("cors-origins", nil, "Allowed CORS origins")
	root.Flags().StringSlice("preload", nil, "Model ids to load at startup")

	return root
}

// resolveConfig layers settings: file (if given), then env defaults, then
// explicit flags on top.
func resolveConfig(cmd *cobra.Command, cfgPath string) (config.Config, error) {
	var cfg config.Config
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cfg.Addr == "" {
		if v := os.Getenv("PREDICTD_ADDR"); v != "" {
			cfg.Addr = v
		}
	}
	if cfg.ModelsDir == "" {
		if v := os.Getenv("PREDICTD_MODELS_DIR"); v != "" {
			cfg.ModelsDir = v
		}
	}

	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr, _ = f.GetString("addr")
	}
	if f.Changed("models-dir") {
		cfg.ModelsDir, _ = f.GetString("models-dir")
	}
	if f.Changed("cache-capacity") {
		cfg.CacheCapacity, _ = f.GetInt("cache-capacity")
	}
	if f.Changed("exec-timeout-sec") {
		cfg.ExecTimeoutSeconds, _ = f.GetInt("exec-timeout-sec")
	}
	if f.Changed("max-queue-depth") {
		cfg.MaxQueueDepth, _ = f.GetInt("max-queue-depth")
	}
	if f.Changed("max-wait-sec") {
		cfg.MaxWaitSeconds, _ = f.GetInt("max-wait-sec")
	}
	if f.Changed("max-body-bytes") {
		cfg.MaxBodyBytes, _ = f.GetInt64("max-body-bytes")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.LogFormat, _ = f.GetString("log-format")
	}
	if f.Changed("cors") {
		cfg.CORSEnabled, _ = f.GetBool("cors")
	}
	if f.Changed("cors-origins") {
		cfg.CORSOrigins, _ = f.GetStringSlice("cors-origins")
	}
	if f.Changed("preload") {
		cfg.PreloadModels, _ = f.GetStringSlice("preload")
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "~/models"
	}
	return cfg, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	var w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if cfg.LogFormat == "json" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func runServe(cfg config.Config) error {
	log := newLogger(cfg)

	models, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("scan models dir: %w", err)
	}
	log.Info().Int("models", len(models)).Str("dir", cfg.ModelsDir).Msg("registry scan complete")

	st := store.NewModelStore()
	st.Seed(models)

	publisher := inference.NewMetricsPublisher(nil)
	loader := inference.NewLoader(inference.LoaderConfig{
		Capacity:      cfg.CacheCapacity,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSeconds) * time.Second,
		Publisher:     publisher,
	})
	svc := inference.NewService(inference.ServiceConfig{
		Loader:      loader,
		Store:       st,
		Usage:       store.NewLogUsageRecorder(log),
		Publisher:   publisher,
		Logger:      log,
		ExecTimeout: time.Duration(cfg.ExecTimeoutSeconds) * time.Second,
	})

	// Preload requested models before accepting traffic. A missing id is a
	// startup error; a failing load is logged and skipped so one bad file
	// does not take the daemon down.
	for _, id := range cfg.PreloadModels {
		md := st.FindByID(id)
		if md == nil {
			return fmt.Errorf("preload: unknown model id %q", id)
		}
		if err := svc.PreloadModel(context.Background(), *md); err != nil {
			log.Error().Err(err).Str("model", id).Msg("preload failed")
			continue
		}
		log.Info().Str("model", id).Msg("preloaded")
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	if cfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	}
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins, nil, nil)
	}

	mux := httpapi.NewMux(svc)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("predictd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	// Cancel in-flight predictions, then drain the listener.
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
