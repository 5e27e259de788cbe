package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"jarvis/internal/config"
	"jarvis/internal/log"
	"jarvis/internal/storage"
	"jarvis/internal/worker"
)

func main() {
	_ = godotenv.Load()

	log.Setup()
	logger := &log.Logger{Logger: slog.Default()}
	logger = logger.WithComponent(log.ComponentWorker)

	if err := run(logger); err != nil {
		logger.Error("worker stopped", log.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *log.Logger) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer store.Close()

	processor := worker.NewRecurringProcessor(store, store, cfg.RecurringBatch, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Runs must not overlap: materialization is a read-modify-write over
	// budgets, so a slow run blocks the next tick instead of racing it.
	var runMu sync.Mutex
	process := func() {
		if !runMu.TryLock() {
			logger.Warn("previous run still in progress, skipping")
			return
		}
		defer runMu.Unlock()

		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		created, err := processor.ProcessDue(runCtx, time.Now())
		if err != nil {
			logger.Error("recurring processing failed", log.FieldError, err)
			return
		}
		logger.Info("recurring processing complete", "transactions_created", created)
	}

	// Catch up immediately on startup, then follow the schedule.
	process()

	c := cron.New()
	if _, err := c.AddFunc(cfg.RecurringSchedule, process); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.RecurringSchedule, err)
	}
	c.Start()
	logger.Info("recurring worker scheduled",
		"schedule", cfg.RecurringSchedule,
		"sqlite_db", cfg.SQLiteDBPath)

	<-ctx.Done()
	logger.Info("shutting down")
	<-c.Stop().Done()
	return nil
}
