package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"

	"github.com/foxzi/emailchamp/internal/api"
	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/config"
	"github.com/foxzi/emailchamp/internal/editor"
	"github.com/foxzi/emailchamp/internal/generator"
	"github.com/foxzi/emailchamp/internal/ipfilter"
	"github.com/foxzi/emailchamp/internal/llm"
	"github.com/foxzi/emailchamp/internal/manager"
	"github.com/foxzi/emailchamp/internal/metrics"
	"github.com/foxzi/emailchamp/internal/quota"
	"github.com/foxzi/emailchamp/internal/storage"
	"github.com/foxzi/emailchamp/internal/template"
)

const shutdownTimeout = 30 * time.Second

// App is the main application
type App struct {
	config        *config.Config
	db            *bolt.DB
	store         *campaign.Store
	templates     *template.Storage
	manager       *manager.Manager
	generator     *generator.Generator
	limiter       *quota.Limiter
	apiServer     *api.Server
	metricsServer *metrics.Server
	collector     *metrics.Collector
	logger        *slog.Logger
}

// Options tune how New builds the application
type Options struct {
	Version string
	// Output receives log records; defaults to stdout
	Output io.Writer
}

// New wires every component from the configuration
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := SetupLogger(cfg.Logging, opts.Output)

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	a := &App{config: cfg, db: db, logger: logger}
	if err := a.build(opts); err != nil {
		a.release()
		return nil, err
	}
	return a, nil
}

func (a *App) build(opts Options) error {
	cfg := a.config
	logger := a.logger

	store, err := campaign.NewStore(a.db, logger.With("component", "campaign_store"))
	if err != nil {
		return err
	}
	a.store = store

	drafts, err := editor.NewDraftStore(a.db)
	if err != nil {
		return err
	}

	templates, err := template.NewStorage(a.db)
	if err != nil {
		return err
	}
	a.templates = templates

	a.manager = manager.New(store, drafts, editor.SessionOptions{
		Delay:  cfg.Editor.AutosaveDelay,
		Logger: logger.With("component", "editor"),
	}, logger.With("component", "manager"))

	var gen api.Generator
	if cfg.HasLLM() {
		genOpts := []generator.Option{}
		if cfg.Quota.Enabled {
			a.limiter, err = quota.NewLimiter(a.db, cfg.QuotaLimits(), logger.With("component", "quota"))
			if err != nil {
				return fmt.Errorf("failed to create quota limiter: %w", err)
			}
			genOpts = append(genOpts, generator.WithLimiter(a.limiter))
			logger.Info("generation quota enabled")
		}

		client := llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Referer: cfg.Server.PublicURL,
			Title:   cfg.Server.Name,
			Timeout: cfg.LLM.Timeout,
		}, logger.With("component", "llm"))

		a.generator, err = generator.New(client, logger.With("component", "generator"), genOpts...)
		if err != nil {
			return fmt.Errorf("failed to create generator: %w", err)
		}
		gen = a.generator
		logger.Info("content generation enabled", "model", cfg.LLM.Model)
	} else {
		logger.Warn("no LLM API key configured, generation endpoints are disabled",
			"env", config.EnvLLMAPIKey)
	}

	apiFilter, err := ipfilter.New(cfg.API.AllowedIPs, logger.With("component", "api_ipfilter"))
	if err != nil {
		return fmt.Errorf("invalid api.allowed_ips: %w", err)
	}

	a.apiServer = api.NewServer(a.manager, gen, &cfg.API, logger.With("component", "api"),
		api.WithIPFilter(apiFilter),
		api.WithTemplates(templates),
		api.WithVersion(opts.Version),
	)

	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)

		metricsFilter, err := ipfilter.New(cfg.Metrics.AllowedIPs, logger.With("component", "metrics_ipfilter"))
		if err != nil {
			return fmt.Errorf("invalid metrics.allowed_ips: %w", err)
		}
		a.metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, metricsFilter,
			logger.With("component", "metrics"))
		a.collector = metrics.NewCollector(m, func() int64 { return storage.FileSize(a.db) }, cfg.Metrics.FlushInterval)
	}

	return nil
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting emailchamp",
		"api_addr", a.config.API.ListenAddr,
		"storage", a.config.Storage.Path,
		"campaigns", len(a.store.LoadAll(ctx)),
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	if a.metricsServer != nil {
		a.collector.Start(gctx)
		g.Go(func() error {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		}
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	if a.metricsServer != nil {
		a.collector.Stop()
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	a.release()
	a.logger.Info("shutdown complete")
	return nil
}

// release stops background writers and closes storage
func (a *App) release() {
	if a.manager != nil {
		// stops autosave; the last draft stays on disk
		a.manager.Close()
	}

	if a.limiter != nil {
		if err := a.limiter.Stop(); err != nil {
			a.logger.Error("quota limiter stop error", "error", err)
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.Error("storage close error", "error", err)
	}
}

// Handler exposes the API handler, mainly for tests
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// SetupLogger creates a logger based on configuration
func SetupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
