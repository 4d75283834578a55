// Package main boots the Smart Tray kiosk service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rfidlab/smarttray/internal/catalog"
	"github.com/rfidlab/smarttray/internal/config"
	httpapi "github.com/rfidlab/smarttray/internal/http"
	"github.com/rfidlab/smarttray/internal/locator"
	"github.com/rfidlab/smarttray/internal/obs"
	"github.com/rfidlab/smarttray/internal/source"
	"github.com/rfidlab/smarttray/internal/tray"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := obs.InitLogger(cfg.LogMode); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer obs.Sync()
	obs.Logger.Infow("service_starting")

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		obs.Logger.Fatalw("catalog_load_failed", "error", err)
	}
	agg := tray.New(cat, tray.Options{
		ScanPolicy:          cfg.ScanPolicy,
		ResetClearsDiscount: cfg.ResetClearsDiscount,
	})
	loc, err := locator.Open(cfg.InventoryPath, agg, cfg.IndicatorDwell, cfg.ActuatorTimeout)
	if err != nil {
		obs.Logger.Fatalw("inventory_load_failed", "error", err)
	}

	sup := source.NewSupervisor()
	if cfg.SimulatorEnabled {
		sup.Add(source.NewSimulator(agg, cat, cfg.SimulatorInterval))
	}
	if cfg.ReaderEnabled {
		switch cfg.ReaderMode {
		case config.ReaderModeTCP:
			sup.Add(source.NewTCPReader(agg, cfg.ReaderAddr, cfg.ReaderTimeout))
		default:
			sup.Add(source.NewSerialReader(agg, cfg.ReaderPort, cfg.ReaderBaud, cfg.ReaderTimeout))
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)

	if cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	app := httpapi.NewApp(cfg, cat, agg, loc)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Infow("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Fatalw("http_server_error", "error", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Infow("shutdown_signal", "signal", s.String())

	sup.Stop()
	obs.Logger.Infow("producers_stopped")

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Errorw("http_shutdown_error", "error", err)
	}
	obs.Logger.Infow("service_stopped")
}
