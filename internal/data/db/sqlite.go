package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

// OpenSQLite opens a sqlite database for local runs and tests. SQLite has no
// row locks, so the pool is pinned to one connection and transactions
// serialize; the partial unique claim index still applies.
func OpenSQLite(logg *logger.Logger, path string, quiet bool) (*gorm.DB, error) {
	if path == "" {
		path = "file::memory:"
	}
	cfg := gormConfig()
	if quiet {
		cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path+sqliteParams(path)), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if logg != nil {
		logg.Info("Opened sqlite database", "path", path)
	}
	return db, nil
}

func sqliteParams(path string) string {
	for _, c := range path {
		if c == '?' {
			return "&_busy_timeout=5000"
		}
	}
	return "?_busy_timeout=5000"
}
