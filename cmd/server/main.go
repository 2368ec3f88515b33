package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anbanon/verdana/internal"
	"github.com/anbanon/verdana/internal/catalog"
	"github.com/anbanon/verdana/internal/handler/api"
	"github.com/anbanon/verdana/internal/order"
	"github.com/anbanon/verdana/internal/postgres"
	"github.com/anbanon/verdana/internal/service"
	"github.com/anbanon/verdana/internal/session"
	"github.com/anbanon/verdana/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize storage and collaborators
	store := postgres.NewCartStore(pool)
	catalogProvider := catalog.NewPostgresProvider(pool)
	orderProvider := order.NewPostgresProvider(pool)
	metrics := telemetry.NewMetrics("verdana", prometheus.DefaultRegisterer)

	// Initialize services
	cartService := service.NewCartService(store, catalogProvider, metrics, cfg.Cart.MaxItemQuantity)
	mergeService := service.NewMergeService(store, cartService, catalogProvider, metrics)
	checkoutService := service.NewCheckoutService(store, cartService, catalogProvider, orderProvider, metrics)

	// Build the HTTP surface
	sessions := session.NewManager(cfg.Session.Secure)
	handler := api.NewHandler(cartService, mergeService, checkoutService, sessions, logger, cfg.Checkout.MaxAddressLength)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))
	handler.Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Serve with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("Starting server", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// requestLogger logs one structured line per request.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			)
			return nil
		},
	})
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
