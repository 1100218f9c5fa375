package database

import (
	"fmt"

	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects gorm to a postgres or sqlite database.
// sqlite connections are limited to one so writers never hit "database is locked".
func Open(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// LogLevel maps the configured log level onto gorm's logger.
func LogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// SyncModels are the entity kinds shared by terminals and the server.
func SyncModels() []any {
	return []any{
		&models.Product{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.Supplier{},
		&models.Purchase{},
	}
}

// MigrateServer creates the server schema: the synchronised kinds plus accounts and audit.
func MigrateServer(db *gorm.DB) error {
	all := append(SyncModels(), &models.User{}, &models.AuditLog{})
	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	obs.Logger.Info("database_migrated", "tables", len(all))
	return nil
}
