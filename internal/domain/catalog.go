package domain

import "time"

// CatalogItem is a flattened, syncable view of one Square item or variation.
// It lives for a single run and is never persisted locally.
type CatalogItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ParentName    string `json:"parentName"`
	VariationName string `json:"variationName,omitempty"`
	CategoryID    string `json:"categoryId,omitempty"`
	CategoryName  string `json:"categoryName,omitempty"`
	SKU           string `json:"sku,omitempty"`
	VendorID      string `json:"vendorId,omitempty"`
	Quantity      int    `json:"quantity"`
}

// Vendor is a flattened Square vendor ready to be written to the vendors table
type Vendor struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	ContactName   string `json:"contactName,omitempty"`
	Address       string `json:"address,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Note          string `json:"note,omitempty"`
}

// RunStats counts what one reconcile pass did.
// Failed write attempts are also counted in Skipped.
type RunStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Removed   int `json:"removed"`
	Failed    int `json:"failed"`
}

// Add merges other into s
func (s *RunStats) Add(other RunStats) {
	s.Total += other.Total
	s.Processed += other.Processed
	s.Created += other.Created
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Removed += other.Removed
	s.Failed += other.Failed
}

// SyncResult is the typed outcome of one full sync invocation
type SyncResult struct {
	Vendors    RunStats  `json:"vendors"`
	Products   RunStats  `json:"products"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Duration returns how long the run took
func (r SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
