package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridlock/internal/api"
	"gridlock/internal/config"
	"gridlock/internal/content"
	"gridlock/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadAPIFromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	catalogs := content.Default()
	if cfg.ContentFile != "" {
		loaded, err := content.LoadFile(cfg.ContentFile)
		if err != nil {
			logger.Error("content file load failed", "path", cfg.ContentFile, "err", err)
			os.Exit(1)
		}
		catalogs = loaded
		logger.Info("content override loaded", "path", cfg.ContentFile)
	}

	hub := game.NewHub(catalogs, game.GameDefaults{
		PriceCap:         cfg.PriceCap,
		PriceFloor:       cfg.PriceFloor,
		Variability:      cfg.Variability,
		BalancingTrigger: cfg.BalancingTrigger,
	}, logger)

	// Countdown trigger: once per tick interval, decrement every
	// bidding-phase game's timer. It never dispatches.
	go func() {
		ticker := time.NewTicker(cfg.TickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hub.TickAll()
			}
		}
	}()

	server := api.New(cfg, logger, hub)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("gridlock api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
