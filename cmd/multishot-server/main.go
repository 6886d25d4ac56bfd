package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/menta2k/multishot-scanner"
	"github.com/menta2k/multishot-scanner/internal/config"
	"github.com/menta2k/multishot-scanner/pkg/analyzer"
	"github.com/menta2k/multishot-scanner/pkg/client"
	"github.com/menta2k/multishot-scanner/pkg/server"
)

func main() {
	var cfgPath, addr, static string
	flag.StringVar(&cfgPath, "config", "", "config file (json or yaml)")
	flag.StringVar(&addr, "addr", "", "listen address (default from config or PORT)")
	flag.StringVar(&static, "static", "", "directory of front-end files to serve at /")
	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		slog.Error("invalid environment", "error", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if static != "" {
		cfg.Server.StaticDir = static
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.Logging.Level)
	logger := NewLogger(level)
	slog.SetDefault(logger)

	visionClient, err := client.New(cfg.Backend.Type, cfg.Backend.URL)
	if err != nil {
		logger.Error("failed to create vision client", "backend", cfg.Backend.Type, "error", err)
		os.Exit(1)
	}
	analysis := analyzer.NewServiceWithConfig(visionClient, cfg.Backend.Model, analyzer.NewWithConfig(cfg.ImageLimits()), logger)
	scanner := multishot.NewWithConfig(cfg.ScannerConfig(), logger)

	srv := server.New(scanner, analysis, server.Config{
		StaticDir:    cfg.Server.StaticDir,
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimit:    cfg.Server.RateLimit,
		MaxBodyBytes: int64(cfg.Limits.MaxImageSize) * 2,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening",
			"addr", cfg.Server.Addr,
			"backend", visionClient.Name(),
			"model", cfg.Backend.Model,
			"version", multishot.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
