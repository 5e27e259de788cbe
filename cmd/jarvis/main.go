package main

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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"jarvis/internal/cache"
	"jarvis/internal/config"
	"jarvis/internal/dialog"
	"jarvis/internal/events"
	jarvishttp "jarvis/internal/http"
	"jarvis/internal/llm"
	"jarvis/internal/log"
	"jarvis/internal/storage"
	"jarvis/internal/storage/memory"
)

func main() {
	// .env is for local development; in containers the variables come from
	// the environment.
	_ = godotenv.Load()

	log.Setup()
	logger := &log.Logger{Logger: slog.Default()}
	logger = logger.WithComponent(log.ComponentApp)

	if err := run(logger); err != nil {
		logger.Error("service stopped", log.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *log.Logger) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := llm.NewGemini(ctx, cfg.GeminiModel, logger)
	if err != nil {
		return fmt.Errorf("initialize gemini client: %w", err)
	}
	extractor := llm.NewExtractor(client, logger)

	budget := dialog.NewBudgetHandler(store, extractor, client, cfg.ConfidenceThreshold, logger)
	shopping := dialog.NewShoppingHandler(store, extractor, client, cfg.ConfidenceThreshold, logger)
	tasks := dialog.NewTasksHandler(extractor, client, cfg.ConfidenceThreshold, logger)
	general := dialog.NewGeneralHandler(client, logger)

	router := dialog.NewRouter(extractor, general, cfg.ConfidenceThreshold, logger,
		dialog.NewRunner(budget, logger),
		dialog.NewRunner(shopping, logger),
		dialog.NewRunner(tasks, logger),
	)

	history := cache.NewHistory(cfg.HistoryCacheSize, cfg.HistoryLimit, cfg.HistoryCacheTTL)
	history.StartJanitor(ctx, 5*time.Minute)

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	server := jarvishttp.NewServer(":"+cfg.Port, router, history, publisher, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", server.Addr, "backend", cfg.DataBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore selects the persistence backend from configuration.
func openStore(cfg *config.Config, logger *log.Logger) (dialog.Store, func(), error) {
	switch cfg.DataBackend {
	case "sqlite":
		s, err := storage.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("sqlite store ready", "path", cfg.SQLiteDBPath)
		return s, func() { s.Close() }, nil
	default:
		logger.Info("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
}

// newPublisher connects to the broker when configured, otherwise events are
// dropped silently.
func newPublisher(cfg *config.Config, logger *log.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		logger.Info("amqp disabled, dialogue events will not be published")
		return events.Nop{}
	}
	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("failed to connect to amqp, continuing without events", log.FieldError, err)
		return events.Nop{}
	}
	logger.Info("amqp publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}
