/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the seaweed stock ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, ledger.yaml, LEDGER_* env)
  2. Build the zap logger
  3. Open the SQLite collection store
  4. Connect the remote backend, if configured
  5. Load state into the stock service
  6. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Local only, file database
  LEDGER_DB_PATH=./data/ledger.db ./server

  # Confirm every change with a backend
  LEDGER_REMOTE_URL=https://backend.example/api ./server

  # Throwaway in-memory database
  LEDGER_DB_PATH=":memory:" ./server

SEE ALSO:
  - config/config.go: All settings
  - api/server.go: Router configuration
  - stock/service.go: Commit protocol
*/
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

	"go.uber.org/zap"

	"github.com/tidewater/stock-ledger/api"
	"github.com/tidewater/stock-ledger/config"
	"github.com/tidewater/stock-ledger/logger"
	"github.com/tidewater/stock-ledger/remote"
	"github.com/tidewater/stock-ledger/stock"
	"github.com/tidewater/stock-ledger/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// Initialize store
	if cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	opts := stock.Options{Store: store, Logger: log}
	if cfg.Remote.Enabled() {
		opts.Remote = remote.NewHTTPClient(cfg.Remote.URL, cfg.Remote.Timeout, log)
		log.Info("remote sync enabled", zap.String("url", cfg.Remote.URL), zap.Duration("timeout", cfg.Remote.Timeout))
	}

	svc, err := stock.NewService(ctx, opts)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	router := api.NewRouter(api.NewHandler(svc, log), api.RouterOptions{CORSOrigins: cfg.HTTP.CORSOrigins})
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr), zap.String("db", cfg.DB.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
