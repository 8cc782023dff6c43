/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the course settlement server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, config file, .env, environment)
  3. Build the zap logger
  4. Initialize SQLite store
  5. Create API handler, metrics and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Optional config file (yaml, json, toml)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database

ENVIRONMENT:
  SETTLEMENT_ENV, SETTLEMENT_PORT, SETTLEMENT_DATABASE_PATH,
  SETTLEMENT_LOG_LEVEL, SETTLEMENT_LOG_FORMAT,
  SETTLEMENT_CORS_ALLOWED_ORIGINS,
  SETTLEMENT_SETTLEMENT_TAX_RATE, SETTLEMENT_SETTLEMENT_COMMISSION_RATE,
  SETTLEMENT_SETTLEMENT_TEACHER_SHARE

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/settlement.db"

  # Run with in-memory database and a config file
  ./server -db=":memory:" -config=./settlement.yaml

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/course-settlement/api"
	"github.com/warp/course-settlement/config"
	"github.com/warp/course-settlement/logger"
	"github.com/warp/course-settlement/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Optional config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	l, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	rates, err := cfg.Settlement.Rates()
	if err != nil {
		l.Fatal("invalid settlement rates", zap.Error(err))
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		l.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, rates, l, api.NewMetrics())
	router := api.NewRouter(handler, cfg.CORS.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		l.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("db", cfg.Database.Path),
			zap.String("tax_rate", rates.Tax.String()),
			zap.String("commission_rate", rates.Commission.String()),
			zap.String("teacher_share", rates.TeacherShare.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error("server forced to shutdown", zap.Error(err))
		return
	}

	l.Info("server stopped")
}
