package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alexzafra13/echo-sub000/internal/config"
	"github.com/Alexzafra13/echo-sub000/internal/database"
	"github.com/Alexzafra13/echo-sub000/internal/events"
	"github.com/Alexzafra13/echo-sub000/internal/logger"
	"github.com/Alexzafra13/echo-sub000/internal/realtime"
	"github.com/Alexzafra13/echo-sub000/internal/scanner"
	"github.com/Alexzafra13/echo-sub000/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Error("Failed to open database: %v", err)
		os.Exit(1)
	}

	broadcaster := events.NewBroadcaster()
	coordinator := scanner.NewCoordinator(cfg, db, broadcaster)

	// Runs left over from a previous process can never finish.
	if n, err := coordinator.States().RecoverInterrupted(); err != nil {
		logger.Warn("Failed to recover interrupted scans: %v", err)
	} else if n > 0 {
		logger.Info("Marked %d interrupted scan(s) as failed", n)
	}
	if n, err := coordinator.States().CleanupHistory(cfg.Scanner.HistoryRetention); err != nil {
		logger.Warn("Failed to clean up scan history: %v", err)
	} else if n > 0 {
		logger.Info("Removed %d old scan record(s)", n)
	}

	hub := realtime.NewHub(broadcaster, coordinator)
	gateway := realtime.NewGateway(hub, cfg.Auth.JWTSecret)

	var monitor *scanner.FileMonitor
	if cfg.Monitor.Enabled {
		monitor, err = scanner.NewFileMonitor(coordinator, cfg.Library.Root, cfg.Monitor.Debounce)
		if err != nil {
			logger.Warn("File monitor unavailable: %v", err)
		} else if err := monitor.Start(); err != nil {
			logger.Warn("Failed to start file monitor: %v", err)
			monitor = nil
		}
	}

	srv := server.New(cfg, db, coordinator, gateway)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error: %v", err)
		}
	}

	if monitor != nil {
		monitor.Stop()
	}
	coordinator.Shutdown()

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
	logger.Info("Server stopped")
}
