package main

import (
	"net/http"

	"github.com/diewo77/go-klemmbausteine/httpx"
	"github.com/diewo77/go-klemmbausteine/internal/config"
	"github.com/diewo77/go-klemmbausteine/internal/db"
	"github.com/diewo77/go-klemmbausteine/internal/handlers"
	"github.com/diewo77/go-klemmbausteine/internal/logger"
	"github.com/diewo77/go-klemmbausteine/internal/middleware"
	"github.com/diewo77/go-klemmbausteine/internal/services"
	"github.com/diewo77/go-klemmbausteine/view"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	db      *gorm.DB
	cfg     config.Config
	log     *zap.Logger
	handler http.Handler
}

// NewApp creates a new application with all routes configured.
func NewApp(cfg config.Config, conn *gorm.DB, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{
		mux: http.NewServeMux(),
		db:  conn,
		cfg: cfg,
		log: log,
	}
	view.SetLangResolver(middleware.LangFrom)
	view.SetThemeResolver(middleware.ThemeFrom)
	view.SetStaticDir(cfg.StaticDir)
	if cfg.TemplatesDir != "" {
		view.SetBaseDir(cfg.TemplatesDir)
	}
	app.setupRoutes()
	app.handler = app.withMiddleware(app.mux)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	catalog := services.NewCatalogService(a.db)
	ledger := services.NewLedgerService(a.db, nil, a.log.Named("ledger"))
	hlog := a.log.Named("http")

	// ─────────────────────────────────────────────────────────────────────────
	// Catalog and ledger
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/products", http.StatusSeeOther)
	})
	handlers.NewProductHandler(catalog, ledger, hlog).Register(a.mux)
	handlers.NewPurchaseHandler(catalog, ledger, hlog).Register(a.mux)
	handlers.NewSaleHandler(catalog, ledger, hlog).Register(a.mux)

	// ─────────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.healthz)

	// ─────────────────────────────────────────────────────────────────────────
	// Static files
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(a.cfg.StaticDir))))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// withMiddleware wraps next with, from the outside in: request logging,
// panic recovery, CORS (only when origins are configured) and preferences.
func (a *App) withMiddleware(next http.Handler) http.Handler {
	h := middleware.Prefs(next)
	if len(a.cfg.CORSAllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: a.cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Accept", "Content-Type", logger.RequestIDHeader},
			ExposedHeaders: []string{logger.RequestIDHeader},
		}).Handler(h)
	}
	h = logger.Recover(a.log)(h)
	return logger.RequestLog(a.log)(h)
}

// ─────────────────────────────────────────────────────────────────────────────
// Health handlers
// ─────────────────────────────────────────────────────────────────────────────

// health reports liveness only.
func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// healthz also checks the database.
func (a *App) healthz(w http.ResponseWriter, _ *http.Request) {
	if err := db.Ping(a.db); err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}
