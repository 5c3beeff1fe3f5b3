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

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/config"
	"github.com/openduel/engine-go/internal/metrics"
	"github.com/openduel/engine-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Load the card catalog from the configured store
	catalog, err := loadCatalog(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}
	logger.Info("card catalog loaded",
		zap.String("driver", cfg.Storage.Driver),
		zap.Int("definitions", catalog.Len()),
	)

	// Initialize metrics
	m := metrics.New(nil)

	// Initialize game manager
	manager := server.NewManager(catalog, catalog, m, server.Options{
		StartingLife: cfg.Game.StartingLife,
		SignalBuffer: cfg.Game.SignalBuffer,
		IdleTimeout:  cfg.Game.IdleTimeout,
	}, logger)
	logger.Info("game manager initialized",
		zap.Int("starting_life", cfg.Game.StartingLife),
		zap.Duration("idle_timeout", cfg.Game.IdleTimeout),
	)

	// Initialize WebSocket hub
	hub := server.NewHub(manager, m, cfg.Server.AllowedOrigins, logger)
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start gateway server
	go func() {
		logger.Info("starting WebSocket gateway", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("gateway server error", zap.Error(serveErr))
		}
	}()

	// Start metrics server
	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{Addr: cfg.Server.MetricsAddress, Handler: metricsMux}
		go func() {
			logger.Info("starting metrics server", zap.String("address", cfg.Server.MetricsAddress))
			if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(serveErr))
			}
		}()
	}

	logger.Info("duel server initialized",
		zap.String("version", version),
		zap.String("gateway_address", cfg.Server.Address),
		zap.String("metrics_address", cfg.Server.MetricsAddress),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown incomplete", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown incomplete", zap.Error(err))
		}
	}

	hub.Stop()
	manager.CloseAll()

	logger.Info("duel server stopped")
}

// loadCatalog builds the in-memory catalog every engine reads from. The
// sqlite and postgres drivers read previously imported definitions; the
// memory driver loads set JSON files from storage.set_dir.
func loadCatalog(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*carddata.Catalog, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := carddata.OpenSQLite(carddata.DefaultSQLiteConfig(cfg.SQLitePath))
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadAll(ctx)

	case "postgres":
		store, err := carddata.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store.LoadAll(ctx)

	default: // memory
		catalog := carddata.NewCatalog()
		if cfg.SetDir == "" {
			logger.Warn("memory driver with no storage.set_dir, catalog is empty (demo games only)")
			return catalog, nil
		}
		paths, err := filepath.Glob(filepath.Join(cfg.SetDir, "*.json"))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read set file %s: %w", path, err)
			}
			n, err := catalog.LoadSetJSON(data)
			if err != nil {
				return nil, fmt.Errorf("failed to load set file %s: %w", path, err)
			}
			logger.Info("set file loaded", zap.String("path", path), zap.Int("cards", n))
		}
		return catalog, nil
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
