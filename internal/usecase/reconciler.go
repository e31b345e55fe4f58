package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

// Product table columns
const (
	FieldProductID     = "ProductID"
	FieldProductName   = "Product Name"
	FieldQuantity      = "Current Quantity"
	FieldEcomAvailable = "Item Data Ecom Available"
	FieldAllLocations  = "Present At All Locations"
	FieldLastUpdated   = "Last Updated"
	FieldSKU           = "SKU"
	FieldVendor        = "Vendor"
	FieldCategory      = "Category"
	FieldStatus        = "Status"
)

// Status column values written under the deactivate policy
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// DisposalPolicy decides what happens to rows that are no longer in the catalog
type DisposalPolicy string

const (
	// DisposeDelete removes stale rows
	DisposeDelete DisposalPolicy = "delete"
	// DisposeDeactivate keeps stale rows but marks them unavailable
	DisposeDeactivate DisposalPolicy = "deactivate"
)

// ReconcilerConfig holds configuration for the product reconciler
type ReconcilerConfig struct {
	Table    string
	Disposal DisposalPolicy
	Now      func() time.Time
}

// Reconciler makes the products table match the current catalog
type Reconciler struct {
	writer   recordWriter
	filter   *CategoryFilter
	disposal DisposalPolicy
	now      func() time.Time
	logger   *zap.Logger
}

// NewReconciler creates a product reconciler
func NewReconciler(store domain.DestinationStore, filter *CategoryFilter, config ReconcilerConfig, log *zap.Logger) *Reconciler {
	log = logger.OrNop(log)

	disposal := config.Disposal
	if disposal != DisposeDeactivate {
		disposal = DisposeDelete
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Reconciler{
		writer:   recordWriter{store: store, table: config.Table, logger: log},
		filter:   filter,
		disposal: disposal,
		now:      now,
		logger:   log,
	}
}

// Reconcile creates or updates a row for every kept item and disposes of rows
// whose ProductID was not kept. Per-row failures are logged and counted, never
// fatal. The only error returned is the checkpoint's, together with partial stats.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	items []domain.CatalogItem,
	existing domain.DestinationIndex,
	ctl RunControl,
) (domain.RunStats, error) {
	stats := domain.RunStats{Total: len(items)}
	keep := make(map[string]struct{}, len(items))
	timestamp := r.now().Format(timestampLayout)

	for _, item := range items {
		if err := ctl.wait(ctx); err != nil {
			return stats, err
		}
		stats.Processed++
		ctl.progress(stats.Processed, stats.Total)

		if item.ID == "" {
			r.logger.Warn("skipping item without id", zap.String("name", item.Name))
			stats.Skipped++
			continue
		}

		if r.filter.IsExcluded(item.CategoryID, item.CategoryName) {
			r.logger.Info("skipping product in excluded category",
				zap.String("name", item.Name),
				zap.String("category", item.CategoryName))
			stats.Skipped++
			continue
		}

		if _, dup := keep[item.ID]; dup {
			r.logger.Warn("skipping duplicate product id", zap.String("id", item.ID), zap.String("name", item.Name))
			stats.Skipped++
			continue
		}
		keep[item.ID] = struct{}{}

		outcome, err := r.writer.upsert(ctx, item.ID, existing, r.productFields(item, timestamp))
		r.writer.count(&stats, outcome, err, item.ID, item.Name)
	}

	for _, id := range staleIDs(existing, keep) {
		if err := ctl.wait(ctx); err != nil {
			return stats, err
		}

		record := existing[id]
		if r.disposal == DisposeDelete {
			r.writer.remove(ctx, &stats, id, record, FieldProductName)
			continue
		}
		r.deactivate(ctx, &stats, id, record, timestamp)
	}

	r.logger.Info("product reconcile finished",
		zap.Int("total", stats.Total),
		zap.Int("processed", stats.Processed),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("removed", stats.Removed),
		zap.Int("failed", stats.Failed))

	return stats, nil
}

// productFields builds the row payload for a kept item
func (r *Reconciler) productFields(item domain.CatalogItem, timestamp string) map[string]interface{} {
	fields := map[string]interface{}{
		FieldProductID:     item.ID,
		FieldProductName:   item.Name,
		FieldQuantity:      item.Quantity,
		FieldEcomAvailable: true,
		FieldAllLocations:  true,
		FieldLastUpdated:   timestamp,
		FieldSKU:           item.SKU,
	}

	if item.VendorID != "" {
		fields[FieldVendor] = item.VendorID
	}
	if category := strings.TrimSpace(item.CategoryName); category != "" {
		fields[FieldCategory] = category
	}
	if r.disposal == DisposeDeactivate {
		fields[FieldStatus] = StatusActive
	}

	return fields
}

// deactivate marks a stale row unavailable in place. Rows that are already
// inactive are left alone.
func (r *Reconciler) deactivate(ctx context.Context, stats *domain.RunStats, id string, record domain.DestinationRecord, timestamp string) {
	name := record.StringField(FieldProductName)
	if isInactive(record) {
		r.logger.Debug("row already inactive", zap.String("id", id), zap.String("name", name))
		return
	}

	fields := map[string]interface{}{
		FieldQuantity:      0,
		FieldEcomAvailable: false,
		FieldStatus:        StatusInactive,
		FieldLastUpdated:   timestamp,
	}

	err := r.writer.store.UpdateRecord(ctx, r.writer.table, record.RecordID, fields)
	if err != nil {
		stats.Skipped++
		stats.Failed++
		r.logger.Error("failed to deactivate row", zap.String("id", id), zap.String("name", name), zap.Error(err))
		return
	}

	stats.Updated++
	r.logger.Info("deactivated row", zap.String("id", id), zap.String("name", name))
}

func isInactive(record domain.DestinationRecord) bool {
	if record.StringField(FieldStatus) != StatusInactive {
		return false
	}
	if available, _ := record.Fields[FieldEcomAvailable].(bool); available {
		return false
	}
	return numberField(record.Fields[FieldQuantity]) <= 0
}

// numberField reads a numeric Airtable value; absent or unreadable values are 0
func numberField(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
