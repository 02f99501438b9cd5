package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/profitpulse/profitpulse/internal/app"
	"github.com/profitpulse/profitpulse/internal/catalog"
	"github.com/profitpulse/profitpulse/internal/customers"
	"github.com/profitpulse/profitpulse/internal/invoices"
	"github.com/profitpulse/profitpulse/internal/platform/cache"
	"github.com/profitpulse/profitpulse/internal/platform/db"
	"github.com/profitpulse/profitpulse/internal/returns"
	"github.com/profitpulse/profitpulse/internal/shared"
	"github.com/profitpulse/profitpulse/internal/staff"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, summaries served uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	staffRepo := staff.NewRepository(pool)
	staffService := staff.NewService(staffRepo)
	staffHandler := staff.NewHandler(logger, staffService)

	invoicesRepo := invoices.NewRepository(pool)
	invoicesCache := invoices.NewCache(redisClient, cfg.SummaryCacheTTL)
	invoicesService := invoices.NewService(invoicesRepo, catalogService, customersService,
		staffService, auditLogger, idempotencyStore, invoicesCache, invoices.ServiceConfig{
			DefaultTaxRate: cfg.TaxRate(),
		})
	invoicesHandler := invoices.NewHandler(logger, invoicesService)

	returnsRepo := returns.NewRepository(pool)
	returnsService := returns.NewService(returnsRepo, invoicesService, catalogService, auditLogger, idempotencyStore)
	returnsHandler := returns.NewHandler(logger, returnsService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		CustomersHandler: customersHandler,
		InvoicesHandler:  invoicesHandler,
		ReturnsHandler:   returnsHandler,
		StaffHandler:     staffHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}
