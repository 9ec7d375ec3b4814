package handlers

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-klemmbausteine/internal/middleware"
	"github.com/diewo77/go-klemmbausteine/internal/models"
	"github.com/diewo77/go-klemmbausteine/internal/services"
	"github.com/diewo77/go-klemmbausteine/view"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	db      *gorm.DB
	handler http.Handler
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	view.ResetForTests()
	view.SetBaseDir("../../templates")
	t.Cleanup(view.ResetForTests)

	db := setupTestDB(t)
	catalog := services.NewCatalogService(db)
	ledger := services.NewLedgerService(db, rand.New(rand.NewPCG(7, 11)), nil)
	ledger.Now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }

	mux := http.NewServeMux()
	NewProductHandler(catalog, ledger, nil).Register(mux)
	NewPurchaseHandler(catalog, ledger, nil).Register(mux)
	NewSaleHandler(catalog, ledger, nil).Register(mux)
	return &testApp{db: db, handler: middleware.Prefs(mux)}
}

func (a *testApp) seed(t *testing.T, name, category, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Description: name + " building set",
		NettoPrice:  decimal.RequireFromString(price),
		Category:    category,
		InStock:     stock,
	}
	if err := a.db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func (a *testApp) stock(t *testing.T, id uint) int {
	t.Helper()
	var p models.Product
	if err := a.db.First(&p, id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return p.InStock
}

func (a *testApp) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, r)
	return w
}

func (a *testApp) getJSON(path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Accept", "application/json")
	return a.do(r)
}

func (a *testApp) postJSON(path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return a.do(r)
}

func (a *testApp) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(r)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

// flashOf returns the decoded flash message set on the response.
func flashOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "flash" {
			msg, err := url.QueryUnescape(c.Value)
			if err != nil {
				t.Fatalf("unescape flash: %v", err)
			}
			return msg
		}
	}
	return ""
}

// afterFirstRead executes stmt once, right after the first query against
// table, as another request writing in between would.
func (a *testApp) afterFirstRead(t *testing.T, table, stmt string, args ...any) {
	t.Helper()
	fired := false
	err := a.db.Callback().Query().After("gorm:query").Register("test:interleaved_write", func(tx *gorm.DB) {
		if fired || tx.Error != nil || tx.Statement.Table != table {
			return
		}
		fired = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(stmt, args...).Error; err != nil {
			t.Errorf("interleaved write on %s: %v", table, err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = a.db.Callback().Query().Remove("test:interleaved_write") })
}
