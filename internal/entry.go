// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/marbeck/vellum/internal/api"
	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/materialize"
	"github.com/marbeck/vellum/internal/models"
	"github.com/marbeck/vellum/internal/pipeline"
	"github.com/marbeck/vellum/internal/rollup"
	"github.com/marbeck/vellum/internal/sse"
	"github.com/marbeck/vellum/internal/textgen"
	"github.com/marbeck/vellum/internal/watch"
)

// asyncTrigger fans out classification index rebuilds as detached
// invocations: at-least-once, unordered, never blocking the stage that
// fired them.
type asyncTrigger struct {
	classIndex *materialize.ClassificationIndex
	broker     *sse.Broker
}

func (t *asyncTrigger) RebuildClassificationIndex(label models.Classification, path string) {
	go func() {
		key, err := t.classIndex.Rebuild()
		if err != nil {
			slog.Warn("classification index rebuild failed",
				slog.String("label", string(label)),
				slog.String("path", path),
				slog.String("error", err.Error()))
			return
		}
		t.broker.PublishArtifact("classification_index", key)
	}()
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize blob store.
	blobs, err := blob.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	// Initialize SQLite index.
	idx, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer idx.Close()

	// Text-generation collaborator.
	gen := app.generator
	if gen == nil {
		gen = textgen.NewClient(cfg.Textgen.BaseURL, cfg.Textgen.Model, cfg.Textgen.Timeout)
	}

	// SSE broker for pipeline activity.
	broker := sse.NewBroker()
	defer broker.Close()

	// Materializers, rollups, and the orchestrator.
	entityPages := materialize.NewEntityPages(idx, blobs)
	classIndex := materialize.NewClassificationIndex(idx, blobs)
	rollups := rollup.New(idx, blobs, gen)
	trigger := &asyncTrigger{classIndex: classIndex, broker: broker}
	orch := pipeline.New(blobs, idx, gen, trigger, entityPages, broker.PublishStage)

	// Build API handler and router.
	h := api.NewHandler(orch, rollups, classIndex, idx)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start vault watcher.
	if cfg.Vault.Watch {
		stages := pipeline.Stages{
			Classify: cfg.Pipeline.Classify,
			Entities: cfg.Pipeline.Entities,
		}
		g.Go(func() error {
			return watch.Watch(gCtx, orch, cfg.Vault.Path, cfg.Vault.Bucket, stages, logger)
		})
	}

	// Start rollup scheduler.
	if cfg.Rollup.DailyEnabled || cfg.Rollup.WeeklyEnabled {
		g.Go(func() error {
			runScheduler(gCtx, cfg.Rollup, rollups, broker, logger)
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// runScheduler fires the daily rollup once per day at cfg.DailyHour UTC
// (for the previous day) and the weekly rollup on Mondays at cfg.WeeklyHour
// UTC (for the previous week), until ctx is cancelled.
func runScheduler(ctx context.Context, cfg RollupConfig, rollups *rollup.Generator, broker *sse.Broker, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastDaily, lastWeekly string

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler: stopped")
			return
		case now := <-ticker.C:
			utc := now.UTC()

			if cfg.DailyEnabled && utc.Hour() == cfg.DailyHour {
				day := utc.Format("2006-01-02")
				if day != lastDaily {
					lastDaily = day
					key, err := rollups.Daily(ctx, utc.AddDate(0, 0, -1))
					if err != nil {
						logger.Warn("scheduler: daily rollup failed", slog.String("error", err.Error()))
					} else if key != "" {
						broker.PublishArtifact("daily_summary", key)
					}
				}
			}

			if cfg.WeeklyEnabled && utc.Weekday() == time.Monday && utc.Hour() == cfg.WeeklyHour {
				week := utc.Format("2006-01-02")
				if week != lastWeekly {
					lastWeekly = week
					key, err := rollups.Weekly(ctx, utc.AddDate(0, 0, -7))
					if err != nil {
						logger.Warn("scheduler: weekly rollup failed", slog.String("error", err.Error()))
					} else if key != "" {
						broker.PublishArtifact("weekly_report", key)
					}
				}
			}
		}
	}
}
