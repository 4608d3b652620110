package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/zapdrip/zapdrip/internal/api"
	"github.com/zapdrip/zapdrip/internal/config"
	"github.com/zapdrip/zapdrip/internal/db"
	"github.com/zapdrip/zapdrip/internal/dispatch"
	"github.com/zapdrip/zapdrip/internal/gateway"
	"github.com/zapdrip/zapdrip/internal/llm"
	"github.com/zapdrip/zapdrip/internal/metrics"
	"github.com/zapdrip/zapdrip/internal/ratelimit"
	"github.com/zapdrip/zapdrip/internal/repository"
	"github.com/zapdrip/zapdrip/internal/scrape"
)

// App is the main application
type App struct {
	config      *config.Config
	database    *db.DB
	budgetDB    *bolt.DB
	store       *repository.Store
	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Metrics
	collector   *metrics.Collector
	supervisor  *dispatch.Supervisor
	sweeper     *dispatch.Sweeper
	apiServer   *api.Server
	logger      *slog.Logger
}

// New creates a new application
func New(cfg *config.Config) (*App, error) {
	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Open campaign store
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	store := repository.NewStore(database.DB)

	// Create send budget limiter if enabled
	var budgetDB *bolt.DB
	var rateLimiter *ratelimit.Limiter
	var budget dispatch.Budget
	if cfg.RateLimit.Enabled {
		budgetDB, err = bolt.Open(cfg.Database.BoltPath, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open budget database: %w", err)
		}
		rateLimiter, err = ratelimit.NewLimiter(budgetDB, cfg.RateLimit.Budget)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		budget = rateLimiter
		logger.Info("send budgets enabled",
			"per_hour", cfg.RateLimit.Budget.PerHour, "per_day", cfg.RateLimit.Budget.PerDay)
	}

	// Setup metrics
	m := metrics.New()
	metrics.SetGlobal(m)

	// Outbound clients
	scraper := scrape.NewClient(cfg.Scrape.BaseURL, cfg.Scrape.Timeout, logger)
	sender := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, logger)
	sender.SetDefaultInstance(cfg.Gateway.DefaultInstance)

	generators := llm.NewRegistry(
		llm.NewOpenAI(cfg.LLM.OpenAIBaseURL, logger),
		llm.NewGemini(logger),
	)

	// Dispatch pipeline
	personalizer := dispatch.NewPersonalizer(store, scraper, generators)
	runner := dispatch.NewRunner(store, personalizer, sender, budget, dispatch.RunnerConfig{
		ChunkPause:      cfg.Gateway.ChunkPause,
		DelayMinSeconds: cfg.Dispatch.DelayMinSeconds,
		DelayMaxSeconds: cfg.Dispatch.DelayMaxSeconds,
	}, logger)
	supervisor := dispatch.NewSupervisor(runner, store, cfg.Dispatch.SchedulerInterval, logger)

	sweeper := dispatch.NewSweeper(store, supervisor, dispatch.SweeperConfig{
		MaxAge:   cfg.Dispatch.Sweep.MaxAge,
		Interval: cfg.Dispatch.Sweep.Interval,
	}, logger)

	collector := metrics.NewCollector(m, supervisor, store, 0)

	// API server
	apiServer := api.NewServer(store, supervisor, m, &cfg.Server, logger.With("component", "api"))

	return &App{
		config:      cfg,
		database:    database,
		budgetDB:    budgetDB,
		store:       store,
		rateLimiter: rateLimiter,
		metrics:     m,
		collector:   collector,
		supervisor:  supervisor,
		sweeper:     sweeper,
		apiServer:   apiServer,
		logger:      logger,
	}, nil
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting zapdrip",
		"api_addr", a.config.Server.ListenAddr,
		"gateway", a.config.Gateway.BaseURL,
		"db", a.config.Database.Path,
	)

	// Create context that listens for signals
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Recover campaigns that were running before the last shutdown,
	// then keep promoting scheduled ones.
	if err := a.supervisor.ResumeAll(); err != nil {
		return fmt.Errorf("failed to resume campaigns: %w", err)
	}
	a.supervisor.RunScheduler(ctx)
	a.sweeper.Start(ctx)
	a.collector.Start(ctx)

	// Channel to collect errors
	errCh := make(chan error, 1)

	// Start API server
	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	// Create timeout context
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// API first: stop accepting new campaigns and control requests.
	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	// Then the dispatch loops. Campaigns keep status running so the
	// next boot's ResumeAll picks them back up.
	a.supervisor.Shutdown()
	a.sweeper.Stop()
	a.collector.Stop()

	// Stop rate limiter (persists counters)
	if a.rateLimiter != nil {
		if err := a.rateLimiter.Stop(); err != nil {
			a.logger.Error("rate limiter stop error", "error", err)
		}
	}
	if a.budgetDB != nil {
		if err := a.budgetDB.Close(); err != nil {
			a.logger.Error("budget database close error", "error", err)
		}
	}

	// Close storage
	if err := a.database.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

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

	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
