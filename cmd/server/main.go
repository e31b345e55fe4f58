package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hempies/catalogsync/config"
	httpDelivery "github.com/hempies/catalogsync/internal/delivery/http"
	"github.com/hempies/catalogsync/internal/infrastructure/airtable"
	"github.com/hempies/catalogsync/internal/infrastructure/cache"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
	"github.com/hempies/catalogsync/internal/infrastructure/notify"
	"github.com/hempies/catalogsync/internal/infrastructure/square"
	"github.com/hempies/catalogsync/internal/runner"
	"github.com/hempies/catalogsync/internal/usecase"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Server.Environment == "production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting catalogsync",
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.Strings("locations", cfg.Square.LocationIDs),
		zap.String("disposal_policy", cfg.Sync.DisposalPolicy),
		zap.String("schedule", cfg.Sync.Schedule))

	// Initialize infrastructure dependencies
	squareClient := square.NewClient(square.ClientConfig{
		AccessToken:       cfg.Square.AccessToken,
		BaseURL:           cfg.Square.BaseURL,
		APIVersion:        cfg.Square.APIVersion,
		Timeout:           cfg.Square.Timeout,
		RequestsPerSecond: cfg.Square.RequestsPerSecond,
	}, log)

	airtableClient := airtable.NewClient(airtable.ClientConfig{
		APIKey:            cfg.Airtable.APIKey,
		BaseID:            cfg.Airtable.BaseID,
		BaseURL:           cfg.Airtable.BaseURL,
		Timeout:           cfg.Airtable.Timeout,
		RequestsPerSecond: cfg.Airtable.RequestsPerSecond,
	}, log)

	memoryCache := cache.NewMemoryCache()
	defer memoryCache.Close()

	notifier := notify.New(notify.EmailConfig{
		Host:      cfg.Notify.SMTPHost,
		Port:      cfg.Notify.SMTPPort,
		Username:  cfg.Notify.Username,
		Password:  cfg.Notify.Password,
		From:      cfg.Notify.From,
		Recipient: cfg.Notify.Recipient,
		Timeout:   cfg.Notify.Timeout,
	}, log)

	// Initialize usecase layer
	syncService := buildSyncService(cfg, squareClient, airtableClient, memoryCache, log)

	var metrics *runner.Metrics
	if cfg.Metrics.Enabled {
		metrics = runner.NewMetrics(nil)
	}
	syncRunner := runner.New(syncService, runner.Config{Notifier: notifier, Metrics: metrics}, log)

	scheduler, err := runner.NewScheduler(syncRunner, cfg.Sync.Schedule, log)
	if err != nil {
		return err
	}
	scheduler.Start()

	if cfg.Sync.RunOnStart {
		if _, err := syncRunner.Start(runner.TriggerStartup); err != nil {
			log.Warn("startup sync not started", zap.Error(err))
		}
	}

	// Setup router
	handler := httpDelivery.NewHandler(syncRunner, version)
	router := httpDelivery.SetupRouter(cfg, handler, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			_ = scheduler.Shutdown()
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := scheduler.Shutdown(); err != nil {
		log.Warn("scheduler shutdown failed", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown failed", zap.Error(err))
	}
	if err := syncRunner.Shutdown(shutdownCtx); err != nil {
		log.Warn("active sync did not stop in time", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func buildSyncService(
	cfg *config.Config,
	source *square.Client,
	store *airtable.Client,
	categoryCache *cache.MemoryCache,
	log *zap.Logger,
) *usecase.SyncService {
	filter := usecase.NewCategoryFilter(
		cfg.Sync.ExcludedCategories,
		cfg.Sync.CategoryMatch == config.CategoryMatchSubstring,
		log.Named("filter"),
	)
	log.Info("category filter ready",
		zap.Strings("excluded_categories", filter.Excluded()),
		zap.String("match", cfg.Sync.CategoryMatch))

	projector := usecase.NewProjector(
		filter,
		usecase.NewStockAggregator(usecase.StockMode(cfg.Sync.StockMode), log),
		source,
		usecase.ProjectorConfig{
			LocationIDs:  cfg.Square.LocationIDs,
			VendorSource: usecase.VendorSource(cfg.Sync.VendorSource),
		},
		log.Named("projector"),
	)

	products := usecase.NewReconciler(store, filter, usecase.ReconcilerConfig{
		Table:    cfg.Airtable.ProductsTable,
		Disposal: usecase.DisposalPolicy(cfg.Sync.DisposalPolicy),
	}, log.Named("products"))

	vendors := usecase.NewVendorReconciler(store, usecase.VendorReconcilerConfig{
		Table:  cfg.Airtable.VendorsTable,
		Detail: usecase.VendorDetail(cfg.Sync.VendorDetail),
	}, log.Named("vendors"))

	return usecase.NewSyncService(source, store, categoryCache, projector, products, vendors, usecase.SyncServiceConfig{
		ProductsTable: cfg.Airtable.ProductsTable,
		VendorsTable:  cfg.Airtable.VendorsTable,
		SyncVendors:   cfg.Sync.SyncVendors,
		CategoryTTL:   cfg.Cache.CategoryTTL,
	}, log.Named("sync"))
}
