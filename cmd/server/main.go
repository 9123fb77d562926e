package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/config"
	"restaurant-pos-api/internal/database"
	"restaurant-pos-api/internal/logging"
	"restaurant-pos-api/internal/realtime"
	"restaurant-pos-api/internal/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Configuration & logger
	cfg, fromFile, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)
	if !fromFile {
		log.Debug("no .env file found, using process environment")
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database
	db, err := database.Open(cfg.DatabasePath, logging.GormLevel(cfg.LogLevel))
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() {
			log.Info("closing database")
			_ = sqlDB.Close()
		}()
	}
	if cfg.SeedDemoData {
		if err := database.Seed(db, log); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Realtime hub
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	hub := realtime.NewHub(log, realtime.NewRegistry(cfg.StaleConnectionAfter, nil))
	go func() { _ = hub.RunSweeper(ctx, cfg.SweepInterval) }()

	deps := routes.Deps{DB: db, Tokens: tokens, Log: log, Hub: hub}
	if cfg.EnablePollingTransport {
		sio := realtime.NewSocketIOServer(hub, tokens.UserID, log)
		go func() {
			if err := sio.Serve(); err != nil {
				log.Error("socket.io server stopped", "err", err)
			}
		}()
		defer sio.Close()
		deps.SocketIO = sio
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: routes.SetupRoutes(deps),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "pollingTransport", cfg.EnablePollingTransport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}
