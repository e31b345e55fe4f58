package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
	"github.com/hempies/catalogsync/internal/infrastructure/square"
)

const categoriesCacheKey = "square:categories"

// Operations reported through domain.Progress
const (
	OpSyncingVendors  = "Syncing vendors"
	OpFetchCategories = "Fetching categories"
	OpFetchItems      = "Fetching catalog items"
	OpProjecting      = "Checking inventory"
	OpLoadingProducts = "Loading existing products"
	OpSyncingProducts = "Syncing products"
	OpCompleted       = "Completed"
)

// SyncServiceConfig holds configuration for the sync service
type SyncServiceConfig struct {
	ProductsTable string
	VendorsTable  string
	SyncVendors   bool
	CategoryTTL   time.Duration
	Now           func() time.Time
}

// SyncService runs one full vendors + products reconciliation
type SyncService struct {
	source    domain.CatalogSource
	store     domain.DestinationStore
	cache     domain.CacheRepository
	projector *Projector
	products  *Reconciler
	vendors   *VendorReconciler
	config    SyncServiceConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewSyncService creates a sync service with its collaborators. cache may be nil.
func NewSyncService(
	source domain.CatalogSource,
	store domain.DestinationStore,
	cache domain.CacheRepository,
	projector *Projector,
	products *Reconciler,
	vendors *VendorReconciler,
	config SyncServiceConfig,
	log *zap.Logger,
) *SyncService {
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &SyncService{
		source:    source,
		store:     store,
		cache:     cache,
		projector: projector,
		products:  products,
		vendors:   vendors,
		config:    config,
		now:       now,
		logger:    logger.OrNop(log),
	}
}

// Run syncs vendors (when enabled) and then products. A failed vendor phase does not
// stop the product phase; both errors are joined. Cancellation returns immediately
// with the partial result.
func (s *SyncService) Run(ctx context.Context, ctl RunControl) (domain.SyncResult, error) {
	result := domain.SyncResult{StartedAt: s.now()}
	var vendorErr error

	if s.config.SyncVendors && s.vendors != nil {
		stats, err := s.syncVendors(ctx, ctl)
		result.Vendors = stats
		if err != nil {
			if isStop(ctx, err) {
				result.FinishedAt = s.now()
				return result, stopError(ctx, err)
			}
			s.logger.Error("vendor sync failed, continuing with products", zap.Error(err))
			vendorErr = fmt.Errorf("vendors: %w", err)
		}
	}

	stats, err := s.syncProducts(ctx, ctl)
	result.Products = stats
	result.FinishedAt = s.now()

	if err != nil {
		if isStop(ctx, err) {
			return result, stopError(ctx, err)
		}
		return result, errors.Join(vendorErr, fmt.Errorf("products: %w", err))
	}
	if vendorErr != nil {
		return result, vendorErr
	}

	ctl.operation(OpCompleted)
	s.logger.Info("sync finished",
		zap.Duration("duration", result.Duration()),
		zap.Int("products_created", result.Products.Created),
		zap.Int("products_updated", result.Products.Updated),
		zap.Int("products_removed", result.Products.Removed),
		zap.Int("vendors_created", result.Vendors.Created))
	return result, nil
}

func (s *SyncService) syncVendors(ctx context.Context, ctl RunControl) (domain.RunStats, error) {
	ctl.operation(OpSyncingVendors)

	raw, err := s.source.ListVendors(ctx)
	if err != nil {
		if len(raw) == 0 {
			return domain.RunStats{}, fmt.Errorf("%w: %w", domain.ErrEmptyListing, err)
		}
		s.logger.Warn("vendor listing incomplete, continuing with partial result",
			zap.Int("vendors", len(raw)), zap.Error(err))
	}

	existing, err := s.loadIndex(ctx, s.config.VendorsTable, FieldVendorID)
	if err != nil {
		return domain.RunStats{}, err
	}

	return s.vendors.Reconcile(ctx, square.MapVendors(raw), existing, ctl)
}

func (s *SyncService) syncProducts(ctx context.Context, ctl RunControl) (domain.RunStats, error) {
	ctl.operation(OpFetchCategories)
	categories := s.categories(ctx)

	if err := ctl.wait(ctx); err != nil {
		return domain.RunStats{}, err
	}

	ctl.operation(OpFetchItems)
	items, err := s.source.ListItems(ctx)
	if err != nil {
		if len(items) == 0 {
			return domain.RunStats{}, fmt.Errorf("%w: %w", domain.ErrEmptyListing, err)
		}
		s.logger.Warn("item listing incomplete, continuing with partial result",
			zap.Int("items", len(items)), zap.Error(err))
	}

	ctl.operation(OpProjecting)
	projected, err := s.projector.ProjectAll(ctx, items, categories, ctl)
	if err != nil {
		return domain.RunStats{}, err
	}

	ctl.operation(OpLoadingProducts)
	existing, err := s.loadIndex(ctx, s.config.ProductsTable, FieldProductID)
	if err != nil {
		return domain.RunStats{}, err
	}

	ctl.operation(OpSyncingProducts)
	return s.products.Reconcile(ctx, projected, existing, ctl)
}

// categories returns the id->name map, served from cache when fresh.
// Incomplete listings are used for this run but never cached.
func (s *SyncService) categories(ctx context.Context) map[string]string {
	if s.cache != nil && s.config.CategoryTTL > 0 {
		if cached, err := s.cache.Get(ctx, categoriesCacheKey); err == nil {
			if categories, ok := cached.(map[string]string); ok {
				s.logger.Debug("categories served from cache", zap.Int("count", len(categories)))
				return categories
			}
		}
	}

	categories, err := s.source.ListCategories(ctx)
	if err != nil {
		s.logger.Warn("category listing incomplete, unresolved categories will not be excluded",
			zap.Int("categories", len(categories)), zap.Error(err))
		if categories == nil {
			categories = map[string]string{}
		}
		return categories
	}

	if s.cache != nil && s.config.CategoryTTL > 0 {
		if err := s.cache.Set(ctx, categoriesCacheKey, categories, s.config.CategoryTTL); err != nil {
			s.logger.Warn("failed to cache categories", zap.Error(err))
		}
	}
	return categories
}

// loadIndex lists a destination table and keys it by the external id column.
// A failed listing aborts the phase.
func (s *SyncService) loadIndex(ctx context.Context, table, keyField string) (domain.DestinationIndex, error) {
	records, err := s.store.ListRecords(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}

	index, duplicates := domain.BuildIndex(records, keyField)
	for _, dup := range duplicates {
		s.logger.Warn("duplicate destination row ignored",
			zap.String("table", table),
			zap.String("id", dup.StringField(keyField)),
			zap.String("record_id", dup.RecordID))
	}
	return index, nil
}

// stopError makes sure an error caused by cancellation still matches ctx.Err()
func stopError(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil || errors.Is(err, ctxErr) {
		return err
	}
	return errors.Join(ctxErr, err)
}

// isStop reports whether err means the run was cancelled rather than failed
func isStop(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}
