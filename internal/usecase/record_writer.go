package usecase

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
)

// timestampLayout is how sync timestamps are written to the destination
const timestampLayout = "01/02/2006 03:04 PM"

type writeOutcome int

const (
	outcomeCreated writeOutcome = iota
	outcomeUpdated
)

// recordWriter performs the per-row store calls shared by both reconcilers
type recordWriter struct {
	store  domain.DestinationStore
	table  string
	logger *zap.Logger
}

// upsert updates the row for id when the index has one, otherwise creates it.
// An update of a row that disappeared since the listing falls back to a create.
func (w recordWriter) upsert(
	ctx context.Context,
	id string,
	existing domain.DestinationIndex,
	fields map[string]interface{},
) (writeOutcome, error) {
	if record, ok := existing[id]; ok {
		err := w.store.UpdateRecord(ctx, w.table, record.RecordID, fields)
		if err == nil {
			return outcomeUpdated, nil
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return outcomeUpdated, err
		}
		w.logger.Warn("row vanished before update, recreating",
			zap.String("table", w.table),
			zap.String("id", id),
			zap.String("record_id", record.RecordID))
	}

	if _, err := w.store.CreateRecord(ctx, w.table, fields); err != nil {
		return outcomeCreated, err
	}
	return outcomeCreated, nil
}

// count applies a write result to the stats. Failures count as skipped.
func (w recordWriter) count(stats *domain.RunStats, outcome writeOutcome, err error, id, name string) {
	if err != nil {
		stats.Skipped++
		stats.Failed++
		w.logger.Error("failed to write row",
			zap.String("table", w.table),
			zap.String("id", id),
			zap.String("name", name),
			zap.Error(err))
		return
	}

	switch outcome {
	case outcomeCreated:
		stats.Created++
		w.logger.Info("created row", zap.String("table", w.table), zap.String("id", id), zap.String("name", name))
	case outcomeUpdated:
		stats.Updated++
		w.logger.Debug("updated row", zap.String("table", w.table), zap.String("id", id), zap.String("name", name))
	}
}

// remove deletes a row that is no longer in the keep set
func (w recordWriter) remove(ctx context.Context, stats *domain.RunStats, id string, record domain.DestinationRecord, nameField string) {
	name := record.StringField(nameField)
	if err := w.store.DeleteRecord(ctx, w.table, record.RecordID); err != nil {
		stats.Skipped++
		stats.Failed++
		w.logger.Error("failed to remove row",
			zap.String("table", w.table),
			zap.String("id", id),
			zap.String("name", name),
			zap.Error(err))
		return
	}

	stats.Removed++
	w.logger.Info("removed row", zap.String("table", w.table), zap.String("id", id), zap.String("name", name))
}

// staleIDs lists index entries missing from keep, sorted for stable logs
func staleIDs(existing domain.DestinationIndex, keep map[string]struct{}) []string {
	var ids []string
	for id := range existing {
		if _, ok := keep[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
