package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hempies/catalogsync/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		APIKey:            "key-123",
		BaseID:            "appBase",
		BaseURL:           baseURL,
		RequestsPerSecond: 1000,
	}, nil)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestListRecords_FollowsOffset(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/appBase/Products", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))

		if r.URL.Query().Get("offset") == "" {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"records": []map[string]interface{}{
					{"id": "rec1", "fields": map[string]interface{}{"ProductID": "A"}},
				},
				"offset": "itr2",
			})
			return
		}
		assert.Equal(t, "itr2", r.URL.Query().Get("offset"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"records": []map[string]interface{}{
				{"id": "rec2", "fields": map[string]interface{}{"ProductID": "B"}},
			},
		})
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).ListRecords(context.Background(), "Products")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, records, 2)
	assert.Equal(t, "rec2", records[1].RecordID)
	assert.Equal(t, "B", records[1].StringField("ProductID"))
}

func TestListRecords_EscapesTableName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appBase/Vendor List", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"records": []interface{}{}})
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).ListRecords(context.Background(), "Vendor List")

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListRecords_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error": map[string]string{"type": "AUTHENTICATION_REQUIRED", "message": "bad key"},
		})
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).ListRecords(context.Background(), "Products")

	assert.Nil(t, records)
	assert.ErrorIs(t, err, domain.ErrAirtableAPIFailure)
	assert.Contains(t, err.Error(), "AUTHENTICATION_REQUIRED")
}

func TestCreateRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/appBase/Products", r.URL.Path)

		var body writeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Typecast)
		assert.Equal(t, "B", body.Fields["ProductID"])

		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "recNew", "fields": body.Fields})
	}))
	defer server.Close()

	created, err := newTestClient(server.URL).CreateRecord(context.Background(), "Products", map[string]interface{}{
		"ProductID": "B",
	})

	require.NoError(t, err)
	assert.Equal(t, "recNew", created.RecordID)
}

func TestUpdateRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/appBase/Products/rec1", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "rec1"})
	}))
	defer server.Close()

	err := newTestClient(server.URL).UpdateRecord(context.Background(), "Products", "rec1", map[string]interface{}{"SKU": "X"})
	assert.NoError(t, err)
}

func TestUpdateRecord_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]string{"type": "MODEL_ID_NOT_FOUND", "message": "gone"},
		})
	}))
	defer server.Close()

	err := newTestClient(server.URL).UpdateRecord(context.Background(), "Products", "recGone", map[string]interface{}{})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestDeleteRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/appBase/Vendors/rec9", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "rec9", "deleted": true})
	}))
	defer server.Close()

	err := newTestClient(server.URL).DeleteRecord(context.Background(), "Vendors", "rec9")
	assert.NoError(t, err)
}

func TestDeleteRecord_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := newTestClient(server.URL).DeleteRecord(context.Background(), "Vendors", "rec9")
	assert.ErrorIs(t, err, domain.ErrAirtableAPIFailure)
}
