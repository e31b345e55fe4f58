package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hempies/catalogsync/internal/domain"
)

const vendorsTable = "Vendors"

func newTestVendorReconciler(store *fakeStore, detail VendorDetail) *VendorReconciler {
	return NewVendorReconciler(store, VendorReconcilerConfig{Table: vendorsTable, Detail: detail, Now: fixedClock}, nil)
}

func TestVendorReconcile_CreatesUpdatesAndRemoves(t *testing.T) {
	store := newFakeStore()
	store.seed(vendorsTable, FieldVendorID, "V1", map[string]interface{}{FieldVendorName: "Old Name"})
	store.seed(vendorsTable, FieldVendorID, "GONE", map[string]interface{}{FieldVendorName: "Gone Supply"})
	r := newTestVendorReconciler(store, VendorDetailNone)

	vendors := []domain.Vendor{
		{ID: "V1", Name: "Wick & Co", Phone: "555-0100", Email: "hi@wick.example", ContactName: "Ada"},
		{ID: "V2", Name: "Wax Works"},
	}

	stats, err := r.Reconcile(context.Background(), vendors, store.index(vendorsTable, FieldVendorID), RunControl{})

	require.NoError(t, err)
	assert.Equal(t, domain.RunStats{Total: 2, Processed: 2, Created: 1, Updated: 1, Removed: 1}, stats)

	v1, ok := store.byExternalID(vendorsTable, FieldVendorID, "V1")
	require.True(t, ok)
	assert.Equal(t, "Wick & Co", v1.Fields[FieldVendorName])
	assert.Equal(t, "555-0100", v1.Fields[FieldVendorPhone])
	assert.Equal(t, "hi@wick.example", v1.Fields[FieldVendorEmail])
	assert.Equal(t, "Ada", v1.Fields[FieldVendorContact])
	assert.Equal(t, "03/04/2024 03:07 PM", v1.Fields[FieldLastSynced])
	assert.NotContains(t, v1.Fields, FieldAddress)

	_, gone := store.byExternalID(vendorsTable, FieldVendorID, "GONE")
	assert.False(t, gone)
}

func TestVendorReconcile_DetailColumn(t *testing.T) {
	vendor := domain.Vendor{ID: "V1", Name: "Wax Works", Address: "1 Main St", AccountNumber: "ACC-9", Note: "net 30"}

	tests := []struct {
		detail VendorDetail
		column string
		want   string
	}{
		{detail: VendorDetailAddress, column: FieldAddress, want: "1 Main St"},
		{detail: VendorDetailAccountNumber, column: FieldAccountNumber, want: "ACC-9"},
		{detail: VendorDetailNote, column: FieldNotes, want: "net 30"},
	}

	for _, tt := range tests {
		t.Run(string(tt.detail), func(t *testing.T) {
			store := newFakeStore()
			_, err := newTestVendorReconciler(store, tt.detail).Reconcile(
				context.Background(), []domain.Vendor{vendor}, domain.DestinationIndex{}, RunControl{})
			require.NoError(t, err)

			row, ok := store.byExternalID(vendorsTable, FieldVendorID, "V1")
			require.True(t, ok)
			assert.Equal(t, tt.want, row.Fields[tt.column])
		})
	}
}

func TestVendorReconcile_UpdateFailureFallsBackOnlyWhenRowVanished(t *testing.T) {
	store := newFakeStore()
	store.seed(vendorsTable, FieldVendorID, "V1", nil)
	store.failOn["update:rec-V1"] = errors.New("422 invalid")
	existing := store.index(vendorsTable, FieldVendorID)
	existing["V2"] = domain.DestinationRecord{RecordID: "recVanished", Fields: map[string]interface{}{FieldVendorID: "V2"}}
	r := newTestVendorReconciler(store, VendorDetailNone)

	stats, err := r.Reconcile(context.Background(), []domain.Vendor{{ID: "V1"}, {ID: "V2"}}, existing, RunControl{})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, store.creates)
}

func TestVendorReconcile_Idempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestVendorReconciler(store, VendorDetailNone)
	vendors := []domain.Vendor{{ID: "V1", Name: "A"}, {ID: "V2", Name: "B"}, {ID: "V1", Name: "dup"}}

	first, err := r.Reconcile(context.Background(), vendors, store.index(vendorsTable, FieldVendorID), RunControl{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 1, first.Skipped)

	second, err := r.Reconcile(context.Background(), vendors, store.index(vendorsTable, FieldVendorID), RunControl{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Removed)
	assert.Equal(t, 2, second.Updated)
}

func TestVendorReconcile_Cancelled(t *testing.T) {
	store := newFakeStore()
	r := newTestVendorReconciler(store, VendorDetailNone)

	stats, err := r.Reconcile(context.Background(), []domain.Vendor{{ID: "V1"}, {ID: "V2"}},
		domain.DestinationIndex{}, RunControl{Checkpoint: &stopAfter{n: 1}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Created)
}
