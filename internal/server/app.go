// Package server initializes and runs the application server. It wires the
// database, cache, classification client and HTTP endpoint, and handles
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/generative-ai-go/genai"
	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/api/option"

	"github.com/moodlens/moodlens/internal/cryptox"
	"github.com/moodlens/moodlens/internal/logging"
	"github.com/moodlens/moodlens/internal/server/cache"
	"github.com/moodlens/moodlens/internal/server/classify"
	"github.com/moodlens/moodlens/internal/server/config"
	"github.com/moodlens/moodlens/internal/server/httpapi"
	"github.com/moodlens/moodlens/internal/server/repositories/repomanager"
	"github.com/moodlens/moodlens/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewDefault()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	// Redis is an optimization, not a dependency: an unreachable instance
	// degrades to the in-process cache instead of failing startup.
	var c cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn(ctx, "redis unreachable, using in-process cache", "error", err.Error())
			c = cache.NewMemory()
		} else {
			c = redisCache
		}
	} else {
		c = cache.NewMemory()
	}

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("classification client init error: %w", err)
	}

	cipher, err := cryptox.NewFieldCipherFromBase64(cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("encryption key error: %w", err)
	}

	analysis := services.NewAnalysisService(db, repos, c,
		classify.NewGeminiEmotion(genaiClient), classify.NewGeminiSentiment(genaiClient),
		cipher, logger)
	access := services.NewAccessService(db, repos, c, logger)
	stats := services.NewStatsService(db, repos, logger)

	srv := httpapi.NewServer(analysis, stats, access, repos.Audit(db),
		[]byte(cfg.SecretKey), cfg.TokenValidityDuration, logger)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	httpServer := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, "http server failed", "error", err.Error())
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
