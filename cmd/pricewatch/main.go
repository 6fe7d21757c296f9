package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexkarev/pricewatch/internal/api"
	"github.com/alexkarev/pricewatch/internal/config"
	"github.com/alexkarev/pricewatch/internal/email"
	"github.com/alexkarev/pricewatch/internal/logger"
	"github.com/alexkarev/pricewatch/internal/runner"
	"github.com/alexkarev/pricewatch/internal/scraper"
	"github.com/alexkarev/pricewatch/internal/store"
	"github.com/alexkarev/pricewatch/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catalog store: the handle is owned here and released at exit
	// regardless of outcome.
	catalog, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer cleanup()

	fetcher := scraper.NewClient(cfg.Scraper.Timeout, scraper.ClientConfig{
		MaxRetries:     cfg.Scraper.MaxRetries,
		RetryDelayBase: cfg.Scraper.RetryDelayBase,
		UserAgent:      cfg.Scraper.UserAgent,
	})

	var sender runner.Sender = email.Discard{}
	if cfg.SMTP.Enabled {
		mailClient, err := email.NewClient(email.ClientConfig{
			Host:           cfg.SMTP.Host,
			Port:           cfg.SMTP.Port,
			Username:       cfg.SMTP.Username,
			Password:       cfg.SMTP.Password,
			From:           cfg.SMTP.From,
			MaxRetries:     cfg.SMTP.MaxRetries,
			RetryDelayBase: cfg.SMTP.RetryDelayBase,
		})
		if err != nil {
			logger.Fatal("Failed to initialize SMTP client: %v", err)
		}
		sender = mailClient
		logger.Info("SMTP client initialized (host: %s)", cfg.SMTP.Host)
	} else {
		logger.Debug("Email notifications disabled")
	}

	var alerts *telegram.Client
	if cfg.Telegram.Enabled {
		alerts, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram operator alerts enabled")
	}

	runs := runner.New(catalog, fetcher, email.Renderer{}, sender, runner.Config{
		BatchSize:     cfg.Runner.BatchSize,
		Deadline:      cfg.Runner.RunDeadline,
		DropThreshold: cfg.Runner.DropThreshold,
	})

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// HTTP trigger surface
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.NewHandler(runs).Register(engine)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: engine}
	go func() {
		logger.Info("Trigger endpoint listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed: %v", err)
		}
	}()

	if cfg.Runner.PollEnabled {
		pollLoop(ctx, cfg, runs, alerts)
	} else {
		<-ctx.Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown: %v", err)
	}
	logger.Info("Service stopped")
}

// openStore builds the configured catalog backend and returns it with its
// release function.
func openStore(ctx context.Context, cfg *config.Config) (runner.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Postgres catalog store ready")
		return pg, pool.Close, nil

	default: // "file", enforced by config validation
		fs := store.NewFilestore(cfg.Storage.FilePath)
		if err := fs.Load(); err != nil {
			return nil, nil, err
		}
		logger.Info("File catalog store ready (path: %s)", cfg.Storage.FilePath)
		return fs, func() {
			if err := fs.Close(); err != nil {
				logger.Error("Failed to close catalog store: %v", err)
			}
		}, nil
	}
}

// pollLoop drives scheduled runs and keeps the operator informed about
// consecutive failures and recovery.
func pollLoop(ctx context.Context, cfg *config.Config, runs *runner.Runner, alerts *telegram.Client) {
	logger.Info("Starting scheduled runs (interval: %v, batch_size: %d, deadline: %v)",
		cfg.Runner.PollInterval, cfg.Runner.BatchSize, cfg.Runner.RunDeadline)

	consecutiveFailures := 0
	handleRunResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Scheduled run failed: %v", err)
			if consecutiveFailures == 1 && alerts != nil {
				if sendErr := alerts.SendRunFailure(err); sendErr != nil {
					logger.Warn("Failed to send failure alert: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && alerts != nil {
			if sendErr := alerts.SendRunRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery alert: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	runOnce := func() {
		_, err := runs.Run(ctx)
		handleRunResult(err)
	}

	// Run once at startup, then on every tick.
	runOnce()

	ticker := time.NewTicker(cfg.Runner.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
