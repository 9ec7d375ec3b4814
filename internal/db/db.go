package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-klemmbausteine/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// Open connects to the configured database. Postgres is retried for a while
// so the server can start before the database container is ready.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.DBDebug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel), TranslateError: true}

	var dialector gorm.Dialector
	dsn := cfg.DatabaseDSN
	switch cfg.DBDriver {
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	case config.DriverPostgres:
		dsn = NormalizeDSN(dsn)
		if dsn == "" {
			return nil, errors.New("DATABASE_DSN is empty, check the environment")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		if cfg.DBDriver != config.DriverPostgres {
			break
		}
		log.Warn("retrying database connection", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Ping(db); err != nil {
		return nil, err
	}
	log.Info("database connected", zap.String("driver", cfg.DBDriver), zap.String("dsn", MaskDSN(dsn)))
	return db, nil
}

// Ping runs a trivial query against db.
func Ping(db *gorm.DB) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}
