package services

import (
	"testing"

	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "open db")
	require.NoError(t, db.AutoMigrate(models.All()...), "migrate")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, category, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Description: name + " building set",
		NettoPrice:  decimal.RequireFromString(price),
		Category:    category,
		InStock:     stock,
	}
	require.NoError(t, db.Create(&p).Error, "seed product %s", name)
	return p
}

func reloadProduct(t *testing.T, db *gorm.DB, id uint) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "expected %s got %s", want, got.String())
}

// seqRand replays fixed draws.
type seqRand struct {
	vals []int
	pos  int
}

func (s *seqRand) IntN(n int) int {
	v := s.vals[s.pos%len(s.vals)] % n
	s.pos++
	return v
}

// onFirstRead executes stmt once, right after the first query against table
// returns, on the same connection as that query. It plays a concurrent
// writer landing between a read and the guarded update that follows it.
func onFirstRead(t *testing.T, db *gorm.DB, table, stmt string, args ...any) {
	t.Helper()
	fired := false
	err := db.Callback().Query().After("gorm:query").Register("test:concurrent_write", func(tx *gorm.DB) {
		if fired || tx.Error != nil || tx.Statement.Table != table {
			return
		}
		fired = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(stmt, args...).Error; err != nil {
			t.Errorf("concurrent write on %s: %v", table, err)
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Callback().Query().Remove("test:concurrent_write") })
}
