package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kasir-sync/internal/config"
	"kasir-sync/internal/database"
	"kasir-sync/internal/gateway"
	"kasir-sync/internal/inventory"
	"kasir-sync/internal/obs"
	"kasir-sync/internal/posapi"
	"kasir-sync/internal/reconcile"
	"kasir-sync/internal/sales"
	"kasir-sync/internal/session"
	"kasir-sync/internal/store"
	"kasir-sync/internal/trigger"
)

func main() {
	cfg := config.LoadPOS()
	obs.InitLogger(cfg.LogLevel)
	obs.UseNumericMoney()

	db, err := database.Open("sqlite", cfg.LocalDBPath, database.LogLevel(cfg.LogLevel))
	if err != nil {
		obs.Logger.Error("local_db_open_failed", "err", err)
		os.Exit(1)
	}
	st, err := store.New(db)
	if err != nil {
		obs.Logger.Error("local_store_failed", "err", err)
		os.Exit(1)
	}

	sess := session.New()
	client := gateway.NewClient(cfg.ServerURL, cfg.HTTPTimeout, sess)

	worker := trigger.New(reconcile.New(st, client), trigger.Config{
		Interval:   cfg.SyncInterval,
		MaxBackoff: cfg.MaxBackoff,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	worker.Start(ctx)

	app := posapi.NewApp(posapi.Deps{
		Store:     st,
		Session:   sess,
		Auth:      client,
		Sales:     sales.NewWriter(st, worker, sales.Options{StrictStock: cfg.StrictStock}),
		Inventory: inventory.NewService(st, client, worker),
		Sync:      worker,
		AccessLog: true,
	})

	errc := make(chan error, 1)
	go func() {
		obs.Logger.Info("pos_listening",
			"port", cfg.HTTPPort,
			"server_url", cfg.ServerURL,
			"sync_interval", cfg.SyncInterval.String(),
		)
		errc <- app.Listen("127.0.0.1:" + cfg.HTTPPort)
	}()

	select {
	case err := <-errc:
		if err != nil {
			obs.Logger.Error("pos_api_failed", "err", err)
		}
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		obs.Logger.Error("shutdown_failed", "err", err)
	}
	// the in-flight pass finishes before the store closes
	worker.Stop()
	if err := st.Close(); err != nil {
		obs.Logger.Error("local_store_close_failed", "err", err)
	}
	obs.Logger.Info("pos_stopped")
}
