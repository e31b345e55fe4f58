package usecase

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

// StockMode selects how per-location counts are combined
type StockMode string

const (
	// StockAny treats an object as stocked when any location has a positive count
	StockAny StockMode = "any"
	// StockSum treats an object as stocked when the net total across locations is positive
	StockSum StockMode = "sum"
)

// StockAggregator evaluates inventory counts. Malformed quantities are skipped.
type StockAggregator struct {
	mode   StockMode
	logger *zap.Logger
}

// NewStockAggregator creates an aggregator; an unknown mode behaves like StockAny
func NewStockAggregator(mode StockMode, log *zap.Logger) *StockAggregator {
	if mode != StockSum {
		mode = StockAny
	}
	return &StockAggregator{mode: mode, logger: logger.OrNop(log)}
}

// HasStock reports whether the counts show stock on hand
func (a *StockAggregator) HasStock(counts []domain.InventoryCount) bool {
	if a.mode == StockSum {
		return a.total(counts) > 0
	}

	for _, count := range counts {
		if q, ok := a.parse(count); ok && q > 0 {
			return true
		}
	}
	return false
}

// TotalQuantity returns the stock on hand as a non-negative whole number.
// In StockAny mode only positive location counts contribute; in StockSum mode
// the net total is used.
func (a *StockAggregator) TotalQuantity(counts []domain.InventoryCount) int {
	total := a.total(counts)
	if total <= 0 {
		return 0
	}
	return int(math.Floor(total))
}

func (a *StockAggregator) total(counts []domain.InventoryCount) float64 {
	var total float64
	for _, count := range counts {
		q, ok := a.parse(count)
		if !ok {
			continue
		}
		if a.mode == StockAny && q <= 0 {
			continue
		}
		total += q
	}
	return total
}

func (a *StockAggregator) parse(count domain.InventoryCount) (float64, bool) {
	q, err := parseQuantity(count.Quantity)
	if err != nil {
		a.logger.Warn("invalid quantity value",
			zap.String("catalog_object_id", count.CatalogObjectID),
			zap.String("location_id", count.LocationID),
			zap.String("quantity", string(count.Quantity)))
		return 0, false
	}
	return q, true
}

// parseQuantity accepts integer and decimal representations
func parseQuantity(q domain.Quantity) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(q)), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
