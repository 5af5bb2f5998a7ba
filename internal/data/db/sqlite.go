package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

// OpenSQLite opens a file-backed or in-memory (":memory:") SQLite database for
// local development and tests. Paths starting with "file:" are passed through as DSNs.
func OpenSQLite(logg *logger.Logger, path string, silent bool) (*gorm.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "noctisium.db"
	}
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	gl := newGormLogger()
	if silent {
		gl = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if logg != nil {
		logg.With("service", "SQLite").Info("Opened SQLite database", "path", path)
	}
	return db, nil
}
