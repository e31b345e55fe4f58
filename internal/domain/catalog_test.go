package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStats_Add(t *testing.T) {
	s := RunStats{Total: 1, Processed: 1, Created: 1}
	s.Add(RunStats{Total: 2, Processed: 2, Updated: 1, Skipped: 1, Removed: 3, Failed: 1})

	assert.Equal(t, RunStats{Total: 3, Processed: 3, Created: 1, Updated: 1, Skipped: 1, Removed: 3, Failed: 1}, s)
}

func TestSyncResult_Duration(t *testing.T) {
	start := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	r := SyncResult{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, r.Duration())
}

func TestQuantity_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Quantity
	}{
		{name: "decimal string", json: `{"quantity":"2.5"}`, want: "2.5"},
		{name: "integer number", json: `{"quantity":4}`, want: "4"},
		{name: "negative number", json: `{"quantity":-1.25}`, want: "-1.25"},
		{name: "null", json: `{"quantity":null}`, want: ""},
		{name: "absent", json: `{}`, want: ""},
		{name: "malformed text kept", json: `{"quantity":"lots"}`, want: "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var count InventoryCount
			require.NoError(t, json.Unmarshal([]byte(tt.json), &count))
			assert.Equal(t, tt.want, count.Quantity)
		})
	}
}

func TestCatalogObject_Decode(t *testing.T) {
	raw := `{
		"type": "ITEM",
		"id": "ITEM1",
		"item_data": {
			"name": "Candle",
			"categories": [{"id": "CAT1"}],
			"variations": [{
				"type": "ITEM_VARIATION",
				"id": "VAR1",
				"item_variation_data": {
					"item_id": "ITEM1",
					"name": "Large",
					"sku": "C-L",
					"item_variation_vendor_infos": [{"id": "VI1", "item_variation_vendor_info_data": {"vendor_id": "V1"}}]
				}
			}]
		}
	}`

	var obj CatalogObject
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	require.NotNil(t, obj.ItemData)
	assert.Equal(t, "Candle", obj.ItemData.Name)
	require.Len(t, obj.ItemData.Categories, 1)
	assert.Equal(t, "CAT1", obj.ItemData.Categories[0].ID)
	require.Len(t, obj.ItemData.Variations, 1)
	vd := obj.ItemData.Variations[0].VariationData
	require.NotNil(t, vd)
	assert.Equal(t, "C-L", vd.SKU)
	require.Len(t, vd.VendorInfos, 1)
	assert.Equal(t, "V1", vd.VendorInfos[0].Data.VendorID)
}
