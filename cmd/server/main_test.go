package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hempies/catalogsync/config"
	"github.com/hempies/catalogsync/internal/infrastructure/airtable"
	"github.com/hempies/catalogsync/internal/infrastructure/cache"
	"github.com/hempies/catalogsync/internal/infrastructure/square"
)

func TestBuildSyncService_LogsExcludedCategories(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := &config.Config{
		Airtable: config.AirtableConfig{ProductsTable: "Products", VendorsTable: "Vendors"},
		Sync: config.SyncConfig{
			ExcludedCategories: []string{"Party", " Apparel ", ""},
			CategoryMatch:      config.CategoryMatchExact,
			StockMode:          config.StockModeAny,
			VendorSource:       config.VendorSourceVariation,
			DisposalPolicy:     config.DisposalDelete,
		},
		Cache: config.CacheConfig{CategoryTTL: time.Minute},
	}

	categoryCache := cache.NewMemoryCache()
	defer categoryCache.Close()

	service := buildSyncService(cfg,
		square.NewClient(square.ClientConfig{AccessToken: "tok", BaseURL: "http://127.0.0.1:0"}, nil),
		airtable.NewClient(airtable.ClientConfig{APIKey: "key", BaseID: "app", BaseURL: "http://127.0.0.1:0"}, nil),
		categoryCache,
		zap.New(core))

	require.NotNil(t, service)
	entries := logs.FilterMessage("category filter ready").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []interface{}{"Apparel", "Party"}, entries[0].ContextMap()["excluded_categories"])
}
