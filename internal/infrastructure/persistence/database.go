package persistence

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medistock/ledger/internal/application/postsync"
	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/requisition"
	"github.com/medistock/ledger/internal/domain/sequence"
	"github.com/medistock/ledger/internal/domain/stocktake"
	"github.com/medistock/ledger/internal/infrastructure/config"
)

// Database holds the embedded store connection
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the embedded store at the configured path
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, gormlogger.Default.LogMode(gormlogger.Silent))
}

// NewDatabaseWithLogger opens the embedded store with a custom GORM logger
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, logger gormlogger.Interface) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DSN()), &gorm.Config{
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn between concurrent write scopes.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Database{DB: db}, nil
}

// Migrate creates or updates the store schema
func (d *Database) Migrate() error {
	return d.DB.AutoMigrate(
		&inventory.Item{},
		&inventory.ItemBatch{},
		&ledger.Transaction{},
		&ledger.TransactionItem{},
		&ledger.TransactionBatch{},
		&stocktake.Stocktake{},
		&stocktake.StocktakeItem{},
		&stocktake.StocktakeBatch{},
		&requisition.Requisition{},
		&requisition.RequisitionItem{},
		&sequence.NumberSequence{},
		&sequence.NumberToReuse{},
		&postsync.SyncState{},
	)
}

// Close closes the store connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the store connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
