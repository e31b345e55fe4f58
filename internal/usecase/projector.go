package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

// VendorSource selects where a projected record's vendor id comes from
type VendorSource string

const (
	// VendorFromVariation uses the first non-deleted vendor info of the variation
	VendorFromVariation VendorSource = "variation"
	// VendorFromItem uses the item-level vendor field
	VendorFromItem VendorSource = "item"
	// VendorNone never sets a vendor
	VendorNone VendorSource = "none"
)

// ProjectorConfig holds configuration for the catalog projector
type ProjectorConfig struct {
	LocationIDs  []string
	VendorSource VendorSource
}

// Projector flattens Square items into syncable CatalogItems
type Projector struct {
	filter       *CategoryFilter
	stock        *StockAggregator
	inventory    domain.InventorySource
	locationIDs  []string
	vendorSource VendorSource
	logger       *zap.Logger
}

// NewProjector creates a projector with its collaborators
func NewProjector(
	filter *CategoryFilter,
	stock *StockAggregator,
	inventory domain.InventorySource,
	config ProjectorConfig,
	log *zap.Logger,
) *Projector {
	vendorSource := config.VendorSource
	if vendorSource == "" {
		vendorSource = VendorFromVariation
	}

	return &Projector{
		filter:       filter,
		stock:        stock,
		inventory:    inventory,
		locationIDs:  config.LocationIDs,
		vendorSource: vendorSource,
		logger:       logger.OrNop(log),
	}
}

// ProjectAll projects every item, honouring the run checkpoint between items
func (p *Projector) ProjectAll(
	ctx context.Context,
	items []domain.CatalogObject,
	categories map[string]string,
	ctl RunControl,
) ([]domain.CatalogItem, error) {
	var projected []domain.CatalogItem

	for i, item := range items {
		if err := ctl.wait(ctx); err != nil {
			return projected, err
		}
		ctl.progress(i, len(items))

		projected = append(projected, p.Project(ctx, item, categories)...)
	}
	ctl.progress(len(items), len(items))

	p.logger.Info("projected catalog",
		zap.Int("items", len(items)),
		zap.Int("records_with_stock", len(projected)))
	return projected, nil
}

// Project turns one Square item into zero or more CatalogItems, one per stocked
// variation. Deleted, archived and excluded items yield nothing.
func (p *Projector) Project(ctx context.Context, item domain.CatalogObject, categories map[string]string) []domain.CatalogItem {
	data := item.ItemData
	if item.IsDeleted || data == nil || data.IsArchived || item.ID == "" {
		return nil
	}

	categoryID := resolveCategoryID(data)
	categoryName := categories[categoryID]

	// checked before inventory to save the API calls
	if p.filter.IsExcluded(categoryID, categoryName) {
		p.logger.Debug("skipping item in excluded category",
			zap.String("item", data.Name),
			zap.String("category", categoryName))
		return nil
	}

	base := domain.CatalogItem{
		ParentName:   data.Name,
		CategoryID:   categoryID,
		CategoryName: categoryName,
	}

	if len(data.Variations) == 0 {
		quantity, ok := p.stockFor(ctx, item.ID)
		if !ok {
			p.logger.Debug("skipping item without stock", zap.String("item", data.Name))
			return nil
		}

		record := base
		record.ID = item.ID
		record.Name = data.Name
		record.SKU = data.SKU
		record.Quantity = quantity
		if p.vendorSource == VendorFromItem {
			record.VendorID = data.VendorID
		}
		return []domain.CatalogItem{record}
	}

	var out []domain.CatalogItem
	for _, variation := range data.Variations {
		if variation.IsDeleted || variation.ID == "" {
			continue
		}

		var vd domain.ItemVariationData
		if variation.VariationData != nil {
			vd = *variation.VariationData
		}

		quantity, ok := p.stockFor(ctx, variation.ID)
		if !ok {
			p.logger.Debug("skipping variation without stock",
				zap.String("item", data.Name),
				zap.String("variation", vd.Name))
			continue
		}

		record := base
		record.ID = variation.ID
		record.Name = displayName(data.Name, vd.Name)
		record.VariationName = vd.Name
		record.SKU = vd.SKU
		record.Quantity = quantity
		record.VendorID = p.resolveVendor(data, vd)
		out = append(out, record)
	}

	return out
}

// stockFor fetches counts for one object and reports its quantity and whether it is stocked
func (p *Projector) stockFor(ctx context.Context, objectID string) (int, bool) {
	counts, err := p.inventory.GetInventory(ctx, []string{objectID}, p.locationIDs)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn("inventory lookup failed, using partial counts",
			zap.String("catalog_object_id", objectID),
			zap.Error(err))
	}

	if !p.stock.HasStock(counts) {
		return 0, false
	}
	// a fraction below one unit has nothing whole to sell
	quantity := p.stock.TotalQuantity(counts)
	if quantity <= 0 {
		return 0, false
	}
	return quantity, true
}

func (p *Projector) resolveVendor(item *domain.ItemData, variation domain.ItemVariationData) string {
	switch p.vendorSource {
	case VendorFromItem:
		return item.VendorID
	case VendorFromVariation:
		for _, info := range variation.VendorInfos {
			if info.IsDeleted || info.Data == nil {
				continue
			}
			if info.Data.VendorID != "" {
				return info.Data.VendorID
			}
		}
	}
	return ""
}

// resolveCategoryID prefers the item's category list over the legacy category_id field
func resolveCategoryID(data *domain.ItemData) string {
	for _, ref := range data.Categories {
		if ref.ID != "" {
			return ref.ID
		}
	}
	return data.CategoryID
}

// displayName appends the variation name when it adds information
func displayName(itemName, variationName string) string {
	if variationName == "" || variationName == itemName {
		return itemName
	}
	return itemName + " - " + variationName
}
