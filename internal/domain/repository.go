package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CatalogSource defines read access to the Square catalog.
// List calls return whatever was accumulated before a failure together with the error.
type CatalogSource interface {
	ListCategories(ctx context.Context) (map[string]string, error)
	ListItems(ctx context.Context) ([]CatalogObject, error)
	ListVendors(ctx context.Context) ([]SquareVendor, error)
	InventorySource
}

// InventorySource fetches stock counts for catalog objects at the given locations
type InventorySource interface {
	GetInventory(ctx context.Context, objectIDs []string, locationIDs []string) ([]InventoryCount, error)
}

// DestinationStore defines read/write access to the Airtable tables
type DestinationStore interface {
	ListRecords(ctx context.Context, table string) ([]DestinationRecord, error)
	CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (*DestinationRecord, error)
	UpdateRecord(ctx context.Context, table, recordID string, fields map[string]interface{}) error
	DeleteRecord(ctx context.Context, table, recordID string) error
}

// Checkpoint is consulted between records; it blocks while a run is paused and
// returns an error once the run should stop
type Checkpoint interface {
	Wait(ctx context.Context) error
}

// Progress receives run progress from the sync service
type Progress interface {
	SetOperation(operation string)
	SetProgress(processed, total int)
}

// Notifier delivers run lifecycle notifications
type Notifier interface {
	SyncStarted(ctx context.Context, runID, trigger string) error
	SyncCompleted(ctx context.Context, runID string, result SyncResult) error
	SyncFailed(ctx context.Context, runID string, result SyncResult, runErr error) error
}
