package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

// Vendor table columns
const (
	FieldVendorID      = "VendorID"
	FieldVendorName    = "Name"
	FieldVendorPhone   = "Phone"
	FieldVendorEmail   = "Email"
	FieldVendorContact = "Contact"
	FieldLastSynced    = "Last Synced"
	FieldAddress       = "Address"
	FieldAccountNumber = "Account Number"
	FieldNotes         = "Notes"
)

// VendorDetail selects the one optional vendor column written besides the contact fields
type VendorDetail string

const (
	VendorDetailNone          VendorDetail = "none"
	VendorDetailAddress       VendorDetail = "address"
	VendorDetailAccountNumber VendorDetail = "account_number"
	VendorDetailNote          VendorDetail = "note"
)

// VendorReconcilerConfig holds configuration for the vendor reconciler
type VendorReconcilerConfig struct {
	Table  string
	Detail VendorDetail
	Now    func() time.Time
}

// VendorReconciler makes the vendors table match Square's active vendors.
// Vendors missing from Square are always deleted.
type VendorReconciler struct {
	writer recordWriter
	detail VendorDetail
	now    func() time.Time
	logger *zap.Logger
}

// NewVendorReconciler creates a vendor reconciler
func NewVendorReconciler(store domain.DestinationStore, config VendorReconcilerConfig, log *zap.Logger) *VendorReconciler {
	log = logger.OrNop(log)

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &VendorReconciler{
		writer: recordWriter{store: store, table: config.Table, logger: log},
		detail: config.Detail,
		now:    now,
		logger: log,
	}
}

// Reconcile creates or updates one row per vendor and deletes rows for vendors
// that were not seen
func (r *VendorReconciler) Reconcile(
	ctx context.Context,
	vendors []domain.Vendor,
	existing domain.DestinationIndex,
	ctl RunControl,
) (domain.RunStats, error) {
	stats := domain.RunStats{Total: len(vendors)}
	keep := make(map[string]struct{}, len(vendors))
	timestamp := r.now().Format(timestampLayout)

	for _, vendor := range vendors {
		if err := ctl.wait(ctx); err != nil {
			return stats, err
		}
		stats.Processed++
		ctl.progress(stats.Processed, stats.Total)

		if vendor.ID == "" {
			stats.Skipped++
			continue
		}
		if _, dup := keep[vendor.ID]; dup {
			r.logger.Warn("skipping duplicate vendor id", zap.String("id", vendor.ID))
			stats.Skipped++
			continue
		}
		keep[vendor.ID] = struct{}{}

		outcome, err := r.writer.upsert(ctx, vendor.ID, existing, r.vendorFields(vendor, timestamp))
		r.writer.count(&stats, outcome, err, vendor.ID, vendor.Name)
	}

	for _, id := range staleIDs(existing, keep) {
		if err := ctl.wait(ctx); err != nil {
			return stats, err
		}
		r.writer.remove(ctx, &stats, id, existing[id], FieldVendorName)
	}

	r.logger.Info("vendor reconcile finished",
		zap.Int("total", stats.Total),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("removed", stats.Removed),
		zap.Int("failed", stats.Failed))

	return stats, nil
}

func (r *VendorReconciler) vendorFields(vendor domain.Vendor, timestamp string) map[string]interface{} {
	fields := map[string]interface{}{
		FieldVendorID:      vendor.ID,
		FieldVendorName:    vendor.Name,
		FieldVendorPhone:   vendor.Phone,
		FieldVendorEmail:   vendor.Email,
		FieldVendorContact: vendor.ContactName,
		FieldLastSynced:    timestamp,
	}

	switch r.detail {
	case VendorDetailAddress:
		fields[FieldAddress] = vendor.Address
	case VendorDetailAccountNumber:
		fields[FieldAccountNumber] = vendor.AccountNumber
	case VendorDetailNote:
		fields[FieldNotes] = vendor.Note
	}

	return fields
}
