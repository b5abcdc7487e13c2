package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medistock/ledger/internal/application/postsync"
	"github.com/medistock/ledger/internal/infrastructure/config"
	"github.com/medistock/ledger/internal/infrastructure/event"
	"github.com/medistock/ledger/internal/infrastructure/logger"
	"github.com/medistock/ledger/internal/infrastructure/persistence"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting inventory ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("database", cfg.Database.Path),
	)

	// Open the embedded store
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Wire the post-sync pipeline: the change observer feeds the record
	// queue, the processor drains it.
	queue := postsync.NewRecordQueue()
	if err := persistence.RegisterChangeObserver(db.DB, queue); err != nil {
		log.Fatal("Failed to register change observer", zap.Error(err))
	}
	scope := persistence.NewGormWriteScope(db.DB)

	// Domain events raised by repairs go to the in-process bus; the audit
	// handler keeps a local trail of them in the structured log.
	bus := event.NewInMemoryEventBus(log.Named("events"))
	bus.Subscribe(event.NewAuditLogHandler(log.Named("audit")))

	processor := postsync.NewProcessor(scope, queue, bus, log.Named("postsync"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A crash or failed sync in a previous run leaves a persisted flag;
	// rescan before accepting new work.
	if err := processor.Recover(ctx); err != nil {
		log.Fatal("Post-sync recovery failed", zap.Error(err))
	}

	// Drain the queue periodically until shutdown
	ticker := time.NewTicker(cfg.Sync.ProcessInterval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Info("Inventory ledger started", zap.Duration("process_interval", cfg.Sync.ProcessInterval))

	for {
		select {
		case <-ticker.C:
			if err := processor.ProcessRecordQueue(ctx); err != nil {
				log.Error("Failed to process record queue", zap.Error(err))
			}
		case sig := <-quit:
			log.Info("Shutting down", zap.String("signal", sig.String()))
			cancel()

			if queue.Len() > 0 {
				drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := processor.ProcessRecordQueue(drainCtx); err != nil {
					log.Error("Failed to drain record queue on shutdown", zap.Error(err))
				}
				drainCancel()
			}

			log.Info("Inventory ledger stopped")
			return
		}
	}
}
