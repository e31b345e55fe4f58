package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hempies/catalogsync/internal/domain"
)

// fakeInventory is an in-memory domain.InventorySource
type fakeInventory struct {
	counts map[string][]domain.InventoryCount
	err    error
	calls  []string
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{counts: make(map[string][]domain.InventoryCount)}
}

func (f *fakeInventory) stock(objectID string, quantities ...string) *fakeInventory {
	for _, q := range quantities {
		f.counts[objectID] = append(f.counts[objectID], domain.InventoryCount{
			CatalogObjectID: objectID,
			LocationID:      "LOC1",
			Quantity:        domain.Quantity(q),
		})
	}
	return f
}

func (f *fakeInventory) GetInventory(ctx context.Context, objectIDs []string, locationIDs []string) ([]domain.InventoryCount, error) {
	var out []domain.InventoryCount
	for _, id := range objectIDs {
		f.calls = append(f.calls, id)
		out = append(out, f.counts[id]...)
	}
	return out, f.err
}

// fakeSource is an in-memory domain.CatalogSource
type fakeSource struct {
	*fakeInventory
	categories    map[string]string
	items         []domain.CatalogObject
	vendors       []domain.SquareVendor
	categoriesErr error
	itemsErr      error
	vendorsErr    error
	categoryCalls int
}

func (f *fakeSource) ListCategories(ctx context.Context) (map[string]string, error) {
	f.categoryCalls++
	return f.categories, f.categoriesErr
}

func (f *fakeSource) ListItems(ctx context.Context) ([]domain.CatalogObject, error) {
	return f.items, f.itemsErr
}

func (f *fakeSource) ListVendors(ctx context.Context) ([]domain.SquareVendor, error) {
	return f.vendors, f.vendorsErr
}

// fakeStore is an in-memory domain.DestinationStore.
// failOn keys: "create:<external id>", "update:<record id>", "delete:<record id>".
type fakeStore struct {
	mu      sync.Mutex
	tables  map[string]map[string]domain.DestinationRecord
	nextID  int
	failOn  map[string]error
	listErr error
	creates int
	updates int
	deletes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: make(map[string]map[string]domain.DestinationRecord),
		failOn: make(map[string]error),
	}
}

func (s *fakeStore) table(name string) map[string]domain.DestinationRecord {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[string]domain.DestinationRecord)
		s.tables[name] = t
	}
	return t
}

// seed inserts a row with record id "rec-<externalID>"
func (s *fakeStore) seed(table, keyField, externalID string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := map[string]interface{}{keyField: externalID}
	for k, v := range fields {
		copied[k] = v
	}
	s.table(table)["rec-"+externalID] = domain.DestinationRecord{RecordID: "rec-" + externalID, Fields: copied}
}

func (s *fakeStore) index(table, keyField string) domain.DestinationIndex {
	records, _ := s.ListRecords(context.Background(), table)
	index, _ := domain.BuildIndex(records, keyField)
	return index
}

func (s *fakeStore) byExternalID(table, keyField, externalID string) (domain.DestinationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.table(table) {
		if rec.StringField(keyField) == externalID {
			return rec, true
		}
	}
	return domain.DestinationRecord{}, false
}

func (s *fakeStore) ListRecords(ctx context.Context, table string) ([]domain.DestinationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []domain.DestinationRecord
	for _, rec := range s.table(table) {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	return out, nil
}

func (s *fakeStore) CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (*domain.DestinationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprint(fields["ProductID"])
	if id, ok := fields["VendorID"]; ok {
		key = fmt.Sprint(id)
	}
	if err := s.failOn["create:"+key]; err != nil {
		return nil, err
	}

	s.nextID++
	rec := domain.DestinationRecord{RecordID: fmt.Sprintf("new-%d", s.nextID), Fields: fields}
	s.table(table)[rec.RecordID] = rec
	s.creates++
	return &rec, nil
}

func (s *fakeStore) UpdateRecord(ctx context.Context, table, recordID string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failOn["update:"+recordID]; err != nil {
		return err
	}
	rec, ok := s.table(table)[recordID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	s.updates++
	return nil
}

func (s *fakeStore) DeleteRecord(ctx context.Context, table, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failOn["delete:"+recordID]; err != nil {
		return err
	}
	if _, ok := s.table(table)[recordID]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(s.table(table), recordID)
	s.deletes++
	return nil
}

// memoryCache is a minimal domain.CacheRepository
type memoryCache struct {
	data map[string]interface{}
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]interface{})}
}

func (m *memoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	m.data[key] = value
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// stopAfter is a checkpoint that lets n records through and then cancels
type stopAfter struct {
	n      int
	passed int
}

func (s *stopAfter) Wait(ctx context.Context) error {
	if s.passed >= s.n {
		return context.Canceled
	}
	s.passed++
	return nil
}

// recordingProgress captures progress callbacks
type recordingProgress struct {
	operations []string
	processed  int
	total      int
}

func (r *recordingProgress) SetOperation(op string) { r.operations = append(r.operations, op) }

func (r *recordingProgress) SetProgress(processed, total int) {
	r.processed = processed
	r.total = total
}

var fixedNow = time.Date(2024, 3, 4, 15, 7, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
