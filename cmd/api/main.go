package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/georgemunganga/supply-backend/internal/app"
	"github.com/georgemunganga/supply-backend/internal/config"
	"github.com/georgemunganga/supply-backend/internal/logging"
	"github.com/georgemunganga/supply-backend/internal/modules/auth"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
	"github.com/georgemunganga/supply-backend/internal/modules/importer"
	"github.com/georgemunganga/supply-backend/internal/modules/inventory"
	"github.com/georgemunganga/supply-backend/internal/modules/order"
	"github.com/georgemunganga/supply-backend/internal/modules/stock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run owns every resource it opens and returns instead of exiting, so the
// deferred Close and Sync calls always happen.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := app.NewInfrastructure(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise infrastructure", zap.Error(err))
		return fmt.Errorf("infrastructure: %w", err)
	}
	defer infra.Close()

	authService, err := auth.NewService([]byte(cfg.JWTSecret))
	if err != nil {
		logger.Error("failed to initialise auth", zap.Error(err))
		return fmt.Errorf("auth: %w", err)
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logging.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	categories := catalog.ParseCategories(strings.Join(cfg.Categories, ","))

	// ── Catalog & stock ─────────────────────────────────────
	ledger := stock.NewLedger(infra.Products, logger.Named("stock"))
	catalogService := catalog.NewService(infra.Products, catalog.ServiceConfig{
		Categories:            categories,
		EnforceOptionStockCap: cfg.EnforceOptionStockCap,
	}, logger.Named("catalog"))
	catalogImporter := importer.NewImporter(infra.Products, ledger, categories, logger.Named("importer"))

	// ── Orders ──────────────────────────────────────────────
	orderService := order.NewService(infra.Orders, infra.Products, ledger, infra.Publisher,
		logger.Named("order"), order.Config{MaxCommitAttempts: cfg.MaxCommitAttempts})

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authService))
		catalog.NewHandler(catalogService).RegisterRoutes(r)
		importer.NewHandler(catalogImporter).RegisterRoutes(r)
		order.NewHandler(orderService).RegisterRoutes(r)
		inventory.NewHandler(inventory.NewService(infra.Products, categories)).RegisterRoutes(r)
	})

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("supply API server starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", zap.Error(err))
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
