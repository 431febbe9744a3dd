// Package main is the entrypoint for the LabInsight API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/usmanhx/labinsight/internal/api"
	"github.com/usmanhx/labinsight/internal/api/handler"
	mw "github.com/usmanhx/labinsight/internal/api/middleware"
	"github.com/usmanhx/labinsight/internal/cache"
	"github.com/usmanhx/labinsight/internal/chat"
	"github.com/usmanhx/labinsight/internal/cleanup"
	"github.com/usmanhx/labinsight/internal/config"
	"github.com/usmanhx/labinsight/internal/intake"
	"github.com/usmanhx/labinsight/internal/llm"
	"github.com/usmanhx/labinsight/internal/ocr"
	"github.com/usmanhx/labinsight/internal/pipeline"
	"github.com/usmanhx/labinsight/internal/report"
	"github.com/usmanhx/labinsight/internal/storage"
	"github.com/usmanhx/labinsight/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "llm_provider", cfg.LLM.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create LLM provider
	provider, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}
	slog.Info("llm provider initialized", "provider", provider.Name())

	// 6. Prepare storage layout
	layout := storage.NewLayout(
		filepath.Join(cfg.Storage.Path, "uploads"),
		filepath.Join(cfg.Storage.Path, "outputs"),
	)
	if err := layout.Init(); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// 7. Create store
	pgStore := store.NewPostgresStore(pool)

	// 8. Start the analysis pipeline
	extractor := ocr.NewFitzExtractor(nil)
	pdf := &report.PDFRenderer{FontPath: os.Getenv("PDF_FONT_PATH")}
	orch := pipeline.NewOrchestrator(pgStore, provider, extractor, layout, pdf, cfg.Pipeline)
	queue := pipeline.NewQueue(orch, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize)
	queue.Start(ctx)
	defer queue.Stop()

	// 9. Start the retention sweeper
	sweeper := cleanup.NewSweeper(pgStore, layout, cfg.Cleanup.Interval)
	go sweeper.Run(ctx)

	// 10. Build services
	recaptcha := intake.NewRecaptchaVerifier(cfg.Recaptcha)
	submitSvc := intake.NewService(pgStore, layout, queue, recaptcha, cfg.Upload, cfg.Storage.Retention)
	chatEngine := chat.NewEngine(pgStore, redisCache, provider, cfg.Chat, cfg.Storage.Retention)

	// 11. Build router with dependencies
	deps := api.Dependencies{
		SubmitLimit: mw.NewSubmitLimit(redisCache, cfg.RateLimit.SubmitPerHour),

		HealthHandler:          handler.NewHealthHandler(pgStore, redisCache, queue.Depth),
		AnalyzeHandler:         handler.NewAnalyzeHandler(submitSvc, cfg.Upload.MaxFileSize),
		StatusHandler:          handler.NewStatusHandler(pgStore),
		DownloadHandler:        handler.NewDownloadHandler(pgStore),
		ChatSuggestionsHandler: handler.NewChatSuggestionsHandler(chatEngine),
		ChatHandler:            handler.NewChatHandler(chatEngine),
	}

	router := api.NewRouter(deps)

	// 12. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: chat responses stream over SSE and would be cut
		// off by a fixed deadline. The chat engine bounds each stream itself.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
