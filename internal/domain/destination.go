package domain

import "fmt"

// DestinationRecord is one Airtable row: the store's own record id plus its fields
type DestinationRecord struct {
	RecordID string                 `json:"id"`
	Fields   map[string]interface{} `json:"fields"`
}

// StringField returns the named field as a string, or "" when absent
func (r DestinationRecord) StringField(name string) string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// DestinationIndex maps an external identifier (ProductID, VendorID) to its row
type DestinationIndex map[string]DestinationRecord

// BuildIndex keys records by the given external identifier field.
// Rows without the field are ignored. When several rows share an identifier the
// first one wins and the others are returned as duplicates.
func BuildIndex(records []DestinationRecord, keyField string) (DestinationIndex, []DestinationRecord) {
	index := make(DestinationIndex, len(records))
	var duplicates []DestinationRecord

	for _, record := range records {
		id := record.StringField(keyField)
		if id == "" {
			continue
		}
		if _, exists := index[id]; exists {
			duplicates = append(duplicates, record)
			continue
		}
		index[id] = record
	}

	return index, duplicates
}
