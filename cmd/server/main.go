package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kasir-sync/internal/config"
	"kasir-sync/internal/database"
	"kasir-sync/internal/obs"
	"kasir-sync/internal/syncapi"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		obs.InitLogger("info")
		obs.Logger.Error("config_invalid", "err", err)
		os.Exit(1)
	}
	obs.InitLogger(cfg.LogLevel)
	obs.UseNumericMoney()
	if cfg.UsesDefaultDSN() {
		obs.Logger.Warn("default_dsn", "msg", "DATABASE_DSN not set, using the development database")
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, database.LogLevel(cfg.LogLevel))
	if err != nil {
		obs.Logger.Error("database_open_failed", "err", err)
		os.Exit(1)
	}
	if err := database.MigrateServer(db); err != nil {
		obs.Logger.Error("database_migrate_failed", "err", err)
		os.Exit(1)
	}

	app := syncapi.NewApp(db, syncapi.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		AccessLog:   true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		obs.Logger.Info("server_listening", "port", cfg.HTTPPort, "driver", cfg.DatabaseDriver)
		errc <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errc:
		if err != nil {
			obs.Logger.Error("server_failed", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		obs.Logger.Error("shutdown_failed", "err", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	obs.Logger.Info("server_stopped")
}
