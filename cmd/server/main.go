package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/config"
	"github.com/riteshkumar/savings-ledger/internal/handler"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
	"github.com/riteshkumar/savings-ledger/internal/repository/memory"
	"github.com/riteshkumar/savings-ledger/internal/repository/postgres"
	"github.com/riteshkumar/savings-ledger/internal/scheduler"
	"github.com/riteshkumar/savings-ledger/internal/service"
)

func main() {
	// Initialise logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err.Error())
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.AccrualTimezone)
	if err != nil {
		logger.Error("invalid accrual timezone", "timezone", cfg.AccrualTimezone, "error", err.Error())
		os.Exit(1)
	}

	// Select the storage backend
	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open storage backend", "backend", cfg.StorageBackend, "error", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	logger.Info("storage backend ready", "backend", cfg.StorageBackend)

	clock := service.SystemClock(location)
	notifier := service.LogNotifier{Logger: logger}

	// Initialise services
	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, notifier, clock, cfg.MaxTransactionAmount, logger)
	planService := service.NewPlanService(store, notifier, clock, logger)
	accrualService := service.NewAccrualService(store, notifier, clock, logger)

	// Initialise handlers
	accountHandler := handler.NewAccountHandler(accountService, logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, logger)
	planHandler := handler.NewPlanHandler(planService, logger)
	accrualHandler := handler.NewAccrualHandler(accrualService, logger)

	// Setup router
	router := mux.NewRouter()
	accountHandler.RegisterRoutes(router)
	transactionHandler.RegisterRoutes(router)
	planHandler.RegisterRoutes(router)
	accrualHandler.RegisterRoutes(router)

	// Add health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	// Start the daily accrual scheduler
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()

	sched := scheduler.New(accrualService, planService, location, cfg.AccrualCutoffHour, cfg.AccrualCutoffMinute, logger)
	go sched.Run(schedulerCtx)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server on port " + cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	stopScheduler()

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}

	logger.Info("server exited gracefully")
}

func openStore(cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendMemory:
		store := memory.NewStore()
		seedTemplates(store)
		logger.Warn("using in-memory storage, state will not survive a restart")
		return store, nil
	default:
		db, err := connectDB(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	}
}

// seedTemplates mirrors the catalog the postgres migration installs.
func seedTemplates(store *memory.Store) {
	store.SeedTemplate(&models.PlanTemplate{
		ID: "bronze", Name: "Bronze",
		MinAmount:    decimal.RequireFromString("100.00"),
		DurationDays: 3,
		DailyRate:    decimal.RequireFromString("0.0100"),
		IsLocked:     false,
		Active:       true,
	})
	store.SeedTemplate(&models.PlanTemplate{
		ID: "silver", Name: "Silver",
		MinAmount:    decimal.RequireFromString("1000.00"),
		DurationDays: 7,
		DailyRate:    decimal.RequireFromString("0.0120"),
		IsLocked:     true,
		Active:       true,
	})
	store.SeedTemplate(&models.PlanTemplate{
		ID: "gold", Name: "Gold",
		MinAmount:    decimal.RequireFromString("5000.00"),
		DurationDays: 30,
		DailyRate:    decimal.RequireFromString("0.0140"),
		IsLocked:     true,
		Active:       true,
	})
}

// connectDB establishes a connection to the Postgres database
func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// loggingMiddleware logs incoming HTTP requests
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
