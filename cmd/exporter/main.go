package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/exporter"
	"github.com/zgpcy/status-exporter/internal/logger"
	"github.com/zgpcy/status-exporter/internal/server"
	"github.com/zgpcy/status-exporter/internal/version"
)

const (
	// DefaultShutdownTimeout is the maximum time to wait for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second
)

var (
	configPath  = flag.String("config", "config.yaml", "Path to configuration file")
	port        = flag.Int("port", 0, "HTTP port (overrides configuration file)")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("status-exporter %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildDate)
		return
	}

	// Load configuration first (need log level from config)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *port != 0 {
		cfg.HTTPPort = *port
	}

	// Initialize structured logger
	logger := logger.New(cfg.LogLevel)
	logger.Info("Status Exporter starting",
		"version", version.Version,
		"config_path", *configPath)

	if cfg.HTTPPort == 0 {
		logger.Warn("No HTTP port configured; set http_port in the configuration file or pass -port")
		os.Exit(1)
	}

	logger.Info("Configuration loaded successfully",
		"http_port", cfg.HTTPPort,
		"api_timeout_seconds", cfg.APITimeout,
		"organizations", len(cfg.Organizations),
		"uisp_enabled", cfg.UISP != nil,
		"frontline_enabled", cfg.Frontline != nil,
		"observium_enabled", cfg.Observium != nil,
		"email_day", cfg.Email.Day)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create the exporter (fetches the initial snapshot from each vendor)
	logger.Info("Initializing status exporter")
	exp, err := exporter.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create exporter", "error", err)
		os.Exit(1)
	}
	defer exp.Close()

	// Register gauges with Prometheus
	registry := prometheus.NewRegistry()
	if err := exp.Register(registry); err != nil {
		logger.Error("Failed to register collectors", "error", err)
		os.Exit(1)
	}
	logger.Info("Collectors registered with Prometheus")

	// Register Go runtime metrics (memory, goroutines, GC stats)
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		logger.Warn("Failed to register Go collector", "error", err)
	} else {
		logger.Info("Go runtime metrics registered")
	}

	// Register process metrics (CPU, memory, file descriptors)
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		logger.Warn("Failed to register process collector", "error", err)
	} else {
		logger.Info("Process metrics registered")
	}

	// Create and start HTTP server
	logger.Info("Creating HTTP server", "port", cfg.HTTPPort)
	srv := server.NewServer(cfg, exp, registry, logger)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		logger.Info("Received shutdown signal, starting graceful shutdown", "signal", sig.String())

		// Cancel in-flight upstream refreshes
		cancel()

		// Shutdown server with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during server shutdown", "error", err)
			// Force shutdown
			os.Exit(1)
		}

		logger.Info("Server stopped gracefully")
	}
}
