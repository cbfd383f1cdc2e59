package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/posprint/printbridge/internal/api/handlers"
	"github.com/posprint/printbridge/internal/api/middleware"
	"github.com/posprint/printbridge/internal/config"
	"github.com/posprint/printbridge/internal/core"
	"github.com/posprint/printbridge/internal/db"
	"github.com/posprint/printbridge/internal/escpos"
	"github.com/posprint/printbridge/internal/logging"
	"github.com/posprint/printbridge/internal/notify"
	"github.com/posprint/printbridge/internal/printer"
	"github.com/posprint/printbridge/internal/zpl"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.WithError(err).Fatal("create data directory")
	}
	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		log.WithError(err).Fatal("open settings database")
	}
	defer db.Close()

	store := printer.NewSettingsStore(db.Settings)
	directory := printer.NewDirectory(store, log)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := directory.Reload(ctx); err != nil {
		log.WithError(err).Warn("initial printer discovery failed, starting with an empty directory")
	}
	cancel()

	var transport core.Transport
	switch cfg.Printer.Transport {
	case "tcp":
		transport = printer.NewTCPTransport(cfg.Printer.TCPPort, cfg.Printer.ConnectionTimeout, log)
	default:
		transport = printer.NewSpoolerTransport(log)
	}

	notifier := notify.NewNotifier(notify.Config{
		URL:     cfg.Notify.URL,
		Secret:  cfg.Notify.Secret,
		Timeout: cfg.Notify.Timeout,
	}, log)
	notifier.Start()
	defer notifier.Stop()

	queue := core.NewQueue(transport, notifier, log)
	queue.Start()
	defer queue.Stop()

	engine := escpos.NewEngine(cfg.Tickets.ColumnWidth, cfg.Tickets.PaperDots, cfg.Tickets.Dither, log)

	auth, err := middleware.NewAuthMiddleware()
	if err != nil {
		log.WithError(err).Fatal("initialize auth")
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	auth.RegisterRoutes(api)
	handlers.NewPrintHandler(queue, directory, engine, zpl.DefaultProfiles(), log).RegisterRoutes(api)
	handlers.NewJobHandler(queue).RegisterRoutes(api)
	handlers.NewPrinterHandler(directory, auth.RequireAuth()).RegisterRoutes(api)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("printbridge listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}
