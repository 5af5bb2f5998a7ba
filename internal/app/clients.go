package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/noctisium-backend/internal/data/db"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

type Clients struct {
	DB    *gorm.DB
	Redis goredis.UniversalClient // nil without REDIS_ADDR
	// PostgresDSN feeds the LISTEN connection; empty on sqlite.
	PostgresDSN string

	closers []func() error
}

func wireClients(log *logger.Logger, cfg Config) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{}

	switch cfg.DBDriver {
	case "sqlite":
		sqliteDB, err := db.OpenSQLite(log, cfg.SQLitePath, false)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		c.DB = sqliteDB
		c.closers = append(c.closers, func() error {
			sqlDB, err := sqliteDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	default:
		pg, err := db.NewPostgresService(log, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		c.DB = pg.DB()
		c.PostgresDSN = pg.DSN()
		c.closers = append(c.closers, pg.Close)
	}

	if err := db.AutoMigrateAll(c.DB); err != nil {
		c.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	if cfg.DBDriver == "postgres" {
		if err := db.EnsureChangeTriggers(c.DB); err != nil {
			c.Close()
			return nil, fmt.Errorf("change triggers: %w", err)
		}
	}

	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			DialTimeout: 5 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			c.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		c.Redis = rdb
		c.closers = append(c.closers, rdb.Close)
	}
	return c, nil
}

// Close releases clients in reverse order of creation.
func (c *Clients) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}
