package domain

import (
	"bytes"
	"encoding/json"
)

// CatalogObject represents an ITEM or CATEGORY object from the Square Catalog API
type CatalogObject struct {
	Type         string        `json:"type"`
	ID           string        `json:"id"`
	IsDeleted    bool          `json:"is_deleted,omitempty"`
	ItemData     *ItemData     `json:"item_data,omitempty"`
	CategoryData *CategoryData `json:"category_data,omitempty"`
}

// CategoryData holds the payload of a CATEGORY object
type CategoryData struct {
	Name string `json:"name"`
}

// CategoryRef is one entry of an item's category list
type CategoryRef struct {
	ID      string `json:"id"`
	Ordinal int64  `json:"ordinal,omitempty"`
}

// ItemData holds the payload of an ITEM object
type ItemData struct {
	Name       string          `json:"name"`
	CategoryID string          `json:"category_id,omitempty"`
	Categories []CategoryRef   `json:"categories,omitempty"`
	IsArchived bool            `json:"is_archived,omitempty"`
	SKU        string          `json:"sku,omitempty"`
	VendorID   string          `json:"vendor_id,omitempty"`
	Variations []ItemVariation `json:"variations,omitempty"`
}

// ItemVariation is an ITEM_VARIATION object nested in an item
type ItemVariation struct {
	Type          string             `json:"type"`
	ID            string             `json:"id"`
	IsDeleted     bool               `json:"is_deleted,omitempty"`
	VariationData *ItemVariationData `json:"item_variation_data,omitempty"`
}

// ItemVariationData holds the payload of an ITEM_VARIATION object
type ItemVariationData struct {
	ItemID      string                `json:"item_id,omitempty"`
	Name        string                `json:"name"`
	SKU         string                `json:"sku,omitempty"`
	VendorInfos []VariationVendorInfo `json:"item_variation_vendor_infos,omitempty"`
}

// VariationVendorInfo links a variation to a vendor
type VariationVendorInfo struct {
	ID        string               `json:"id"`
	IsDeleted bool                 `json:"is_deleted,omitempty"`
	Data      *VariationVendorData `json:"item_variation_vendor_info_data,omitempty"`
}

// VariationVendorData holds the vendor reference of a vendor info object
type VariationVendorData struct {
	VendorID string `json:"vendor_id"`
}

// InventoryCount is one (object, location) stock count from the Inventory API
type InventoryCount struct {
	CatalogObjectID string   `json:"catalog_object_id"`
	LocationID      string   `json:"location_id"`
	State           string   `json:"state,omitempty"`
	Quantity        Quantity `json:"quantity"`
}

// Quantity is a decimal stock quantity. Square sends it as a string; numbers are
// accepted too. The raw text is kept so malformed values can be rejected later.
type Quantity string

// UnmarshalJSON accepts both JSON strings and JSON numbers
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	*q = Quantity(data)
	return nil
}

// SquareVendor represents a vendor from the Square Vendors API
type SquareVendor struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Status        string          `json:"status,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	Note          string          `json:"note,omitempty"`
	Address       *SquareAddress  `json:"address,omitempty"`
	Contacts      []VendorContact `json:"contacts,omitempty"`
}

// SquareAddress is the postal address attached to a vendor
type SquareAddress struct {
	AddressLine1                 string `json:"address_line_1,omitempty"`
	AddressLine2                 string `json:"address_line_2,omitempty"`
	Locality                     string `json:"locality,omitempty"`
	AdministrativeDistrictLevel1 string `json:"administrative_district_level_1,omitempty"`
	PostalCode                   string `json:"postal_code,omitempty"`
}

// VendorContact is a contact person of a vendor
type VendorContact struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Removed      bool   `json:"removed,omitempty"`
}
