package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/diewo77/go-klemmbausteine/internal/config"
	"github.com/diewo77/go-klemmbausteine/internal/db"
	"github.com/diewo77/go-klemmbausteine/internal/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	app := &cli.App{
		Name:   "klemmbausteine",
		Usage:  "stock and sales ledger for building-block sets",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP server (default)", Action: serve},
			{Name: "migrate", Usage: "run database migrations and exit", Action: migrateOnly},
			{Name: "seed", Usage: "insert the demo catalog and exit", Action: seedOnly},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, builds the logger and connects the database.
func bootstrap() (config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogEncoding, cfg.Dev)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("build logger: %w", err)
	}
	conn, err := db.Open(cfg, log)
	if err != nil {
		return cfg, log, nil, err
	}
	return cfg, log, conn, nil
}

func closeDB(conn *gorm.DB, log *zap.Logger) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}

func migrateOnly(c *cli.Context) error {
	cfg, log, conn, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer closeDB(conn, log)

	if err := db.Migrate(conn, cfg, log); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("migrations completed successfully")
	return nil
}

func seedOnly(c *cli.Context) error {
	cfg, log, conn, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer closeDB(conn, log)

	if err := db.Migrate(conn, cfg, log); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if err := db.Seed(c.Context, conn); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Info("seeding completed successfully")
	return nil
}

func serve(c *cli.Context) error {
	cfg, log, conn, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer closeDB(conn, log)

	if err := db.Migrate(conn, cfg, log); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if cfg.Seed {
		if err := db.Seed(c.Context, conn); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      NewApp(cfg, conn, log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.Bool("dev", cfg.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}
