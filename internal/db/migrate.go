package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-klemmbausteine/internal/config"
	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/diewo77/go-klemmbausteine/migrations"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var requiredTables = []string{"products", "purchases", "sales"}

// Migrate brings the schema up to date. With MIGRATIONS set the embedded SQL
// files run through golang-migrate; otherwise gorm AutoMigrate is used, which
// is what development and SQLite rely on.
func Migrate(db *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if cfg.Migrations {
		log.Info("running sql migrations")
		if err := runSQLMigrations(ToURLDSN(NormalizeDSN(cfg.DatabaseDSN))); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range models.All() {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// runSQLMigrations applies the embedded migrations. dsn must be in URL form.
func runSQLMigrations(dsn string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
