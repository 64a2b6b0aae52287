package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mvarga-dev/printscan/internal/api"
	"github.com/mvarga-dev/printscan/internal/config"
	"github.com/mvarga-dev/printscan/internal/escl"
	"github.com/mvarga-dev/printscan/internal/ipp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration load failed", "err", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	scanner := escl.NewOrchestrator(escl.Config{
		Device:  cfg.Scanner.Address,
		Timeout: time.Duration(cfg.Scanner.Timeout) * time.Second,
		ClampA4: cfg.Scanner.ClampA4,
	})
	printer := ipp.NewClient(ipp.Config{
		PrinterURI: cfg.Printer.URI,
		Timeout:    time.Duration(cfg.Printer.Timeout) * time.Second,
	})

	settings, err := config.NewStore(cfg.Scanner.DataDir)
	if err != nil {
		slog.Error("settings store init failed", "dir", cfg.Scanner.DataDir, "err", err)
		os.Exit(1)
	}

	server := api.New(cfg.Server, cfg.Scanner, scanner, printer, settings)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		slog.Info("gateway starting",
			"addr", addr,
			"scanner", cfg.Scanner.Address,
			"printer", cfg.Printer.URI,
		)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

func setupLogger(cfg config.LoggingConfig) {
	level := parseLogLevel(cfg.Level)
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
