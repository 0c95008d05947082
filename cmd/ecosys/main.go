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

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/ayesh156/eco-system-sub002/internal/app"
	"github.com/ayesh156/eco-system-sub002/internal/customers"
	"github.com/ayesh156/eco-system-sub002/internal/grn"
	"github.com/ayesh156/eco-system-sub002/internal/invoices"
	"github.com/ayesh156/eco-system-sub002/internal/platform/cache"
	"github.com/ayesh156/eco-system-sub002/internal/platform/db"
	"github.com/ayesh156/eco-system-sub002/internal/products"
	"github.com/ayesh156/eco-system-sub002/internal/reminders"
	"github.com/ayesh156/eco-system-sub002/internal/shared"
	"github.com/ayesh156/eco-system-sub002/internal/suppliers"
	"github.com/ayesh156/eco-system-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	validate := validator.New()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	invoiceRepo := invoices.NewRepository(dbpool)
	invoiceService := invoices.NewService(invoiceRepo, auditLogger, idempotencyStore)
	invoiceHandler := invoices.NewHandler(logger, invoiceService, validate)

	customerRepo := customers.NewRepository(dbpool)
	customerService := customers.NewService(customerRepo, redisClient)
	customerHandler := customers.NewHandler(logger, customerService, validate)

	productRepo := products.NewRepository(dbpool)
	productService := products.NewService(productRepo)
	productHandler := products.NewHandler(logger, productService, validate)

	supplierRepo := suppliers.NewRepository(dbpool)
	supplierService := suppliers.NewService(supplierRepo)
	supplierHandler := suppliers.NewHandler(logger, supplierService, validate)

	grnRepo := grn.NewRepository(dbpool)
	grnService := grn.NewService(grnRepo, auditLogger, idempotencyStore)
	grnHandler := grn.NewHandler(logger, grnService, validate)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queueClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	reminderRepo := reminders.NewRepository(dbpool)
	whatsapp := reminders.NewWhatsAppGateway(cfg.WhatsAppGatewayURL, cfg.WhatsAppGatewayToken)
	reminderService := reminders.NewService(logger, reminderRepo, customerService, redisClient, queueClient, whatsapp, cfg.ReminderCooldown)
	reminderHandler := reminders.NewHandler(logger, reminderService)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		InvoiceHandler:  invoiceHandler,
		CustomerHandler: customerHandler,
		ProductHandler:  productHandler,
		SupplierHandler: supplierHandler,
		GRNHandler:      grnHandler,
		ReminderHandler: reminderHandler,
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
