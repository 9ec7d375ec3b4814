package db

import (
	"context"
	"strings"
	"testing"

	"github.com/diewo77/go-klemmbausteine/internal/config"
	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/diewo77/go-klemmbausteine/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.Config{DBDriver: config.DriverSQLite, DatabaseDSN: "file:" + t.Name() + "?mode=memory&cache=shared"}
	d, err := Open(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(d, cfg, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := d.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return d
}

func TestOpenAndAutoMigrate(t *testing.T) {
	d := openTestDB(t)
	for _, table := range requiredTables {
		if !d.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	if err := Ping(d); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpenRejectsEmptyPostgresDSN(t *testing.T) {
	_, err := Open(config.Config{DBDriver: config.DriverPostgres, DatabaseDSN: "  "}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestSeedIdempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	if err := Seed(ctx, d); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Seed(ctx, d); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var count int64
	d.Model(&models.Product{}).Count(&count)
	if count != int64(len(demoCatalog)) {
		t.Fatalf("expected %d products got %d", len(demoCatalog), count)
	}
	var c int64
	d.Model(&models.Product{}).Where("name = ?", "Fire Station").Count(&c)
	if c != 1 {
		t.Fatalf("Fire Station duplicated or missing: %d", c)
	}
}

func TestSeedStockMatchesDeliveries(t *testing.T) {
	d := openTestDB(t)
	if err := Seed(context.Background(), d); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var products []models.Product
	if err := d.Preload("Purchases").Find(&products).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, p := range products {
		booked := 0
		for _, pu := range p.Purchases {
			if pu.Delivered() {
				booked += pu.Quantity
			}
		}
		if booked != p.InStock {
			t.Fatalf("%s: stock %d but delivered %d", p.Name, p.InStock, booked)
		}
	}
}

func TestSeedImageLinks(t *testing.T) {
	d := openTestDB(t)
	if err := Seed(context.Background(), d); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var ship, crane models.Product
	if err := d.Where("name = ?", "Pirate Ship").First(&ship).Error; err != nil {
		t.Fatalf("load Pirate Ship: %v", err)
	}
	if ship.Image() != "https://placehold.co/400x300?text=Pirate+Ship" {
		t.Fatalf("unexpected image %q", ship.Image())
	}
	if err := d.Where("name = ?", "Harbour Crane").First(&crane).Error; err != nil {
		t.Fatalf("load Harbour Crane: %v", err)
	}
	if crane.ImageLink != nil {
		t.Fatalf("expected no image, got %q", *crane.ImageLink)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected matching up/down migrations, got %d up and %d down", ups, downs)
	}
}
