package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/medistock/ledger/internal/infrastructure/config"
	"github.com/medistock/ledger/internal/infrastructure/logger"
	"github.com/medistock/ledger/internal/infrastructure/persistence"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log := logger.New(logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Schema migrated", zap.String("database", cfg.Database.Path))

	case "ping":
		if err := db.Ping(); err != nil {
			log.Fatal("Database unreachable", zap.Error(err))
		}
		log.Info("Database reachable", zap.String("database", cfg.Database.Path))

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Ledger Schema Migration Tool

Usage:
  migrate [flags] <command>

Commands:
  up      Create or update the store schema
  ping    Verify the store is reachable

Flags:
  -log-level string     Log level: debug, info, warn, error (default: info)

The database path comes from config.toml or the LEDGER_DATABASE_PATH
environment variable.`)
}
