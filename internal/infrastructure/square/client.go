package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultAPIVersion = "2023-09-25"
)

// ClientConfig configures the Square API client
type ClientConfig struct {
	AccessToken       string
	BaseURL           string
	APIVersion        string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client handles communication with the Square Catalog, Inventory and Vendors APIs
type Client struct {
	httpClient  *http.Client
	accessToken string
	baseURL     string
	apiVersion  string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new Square API client
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		accessToken: cfg.AccessToken,
		baseURL:     cfg.BaseURL,
		apiVersion:  apiVersion,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:      logger.OrNop(log).Named("square"),
	}
}

type listCatalogResponse struct {
	Objects []domain.CatalogObject `json:"objects"`
	Cursor  string                 `json:"cursor"`
}

type batchCountsRequest struct {
	CatalogObjectIDs []string `json:"catalog_object_ids"`
	LocationIDs      []string `json:"location_ids,omitempty"`
	Cursor           string   `json:"cursor,omitempty"`
}

type batchCountsResponse struct {
	Counts []domain.InventoryCount `json:"counts"`
	Cursor string                  `json:"cursor"`
}

type vendorFilter struct {
	Status []string `json:"status,omitempty"`
}

type searchVendorsRequest struct {
	Filter vendorFilter `json:"filter"`
	Cursor string       `json:"cursor,omitempty"`
}

type searchVendorsResponse struct {
	Vendors []domain.SquareVendor `json:"vendors"`
	Cursor  string                `json:"cursor"`
}

// doRequest executes one API call and decodes the JSON response into out
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Square-Version", c.apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSquareAPIFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", domain.ErrSquareAPIFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d, body: %s", domain.ErrSquareAPIFailure, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// paginate follows Square cursors until the server returns no cursor or an empty page.
// On failure it logs and returns what was collected so far along with the error.
func paginate[T any](c *Client, what string, fetch func(cursor string) ([]T, string, error)) ([]T, error) {
	var (
		all    []T
		cursor string
		page   int
	)

	for {
		page++
		batch, next, err := fetch(cursor)
		if err != nil {
			c.logger.Error("listing aborted, keeping partial result",
				zap.String("listing", what),
				zap.Int("page", page),
				zap.Int("collected", len(all)),
				zap.Error(err))
			return all, err
		}
		if len(batch) == 0 {
			break
		}

		all = append(all, batch...)
		c.logger.Debug("fetched page", zap.String("listing", what), zap.Int("page", page), zap.Int("size", len(batch)))

		if next == "" {
			break
		}
		cursor = next
	}

	return all, nil
}

func (c *Client) listCatalog(ctx context.Context, objectType string) ([]domain.CatalogObject, error) {
	return paginate(c, objectType, func(cursor string) ([]domain.CatalogObject, string, error) {
		params := url.Values{}
		params.Set("types", objectType)
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		reqURL := fmt.Sprintf("%s/catalog/list?%s", c.baseURL, params.Encode())

		var resp listCatalogResponse
		if err := c.doRequest(ctx, http.MethodGet, reqURL, nil, &resp); err != nil {
			return nil, "", err
		}
		return resp.Objects, resp.Cursor, nil
	})
}

// ListCategories returns every catalog category keyed by id
func (c *Client) ListCategories(ctx context.Context) (map[string]string, error) {
	objects, err := c.listCatalog(ctx, "CATEGORY")

	categories := make(map[string]string, len(objects))
	for _, obj := range objects {
		if obj.Type != "CATEGORY" || obj.ID == "" || obj.CategoryData == nil || obj.CategoryData.Name == "" {
			continue
		}
		categories[obj.ID] = obj.CategoryData.Name
	}

	c.logger.Info("fetched categories", zap.Int("count", len(categories)))
	return categories, err
}

// ListItems returns every ITEM object with its nested variations
func (c *Client) ListItems(ctx context.Context) ([]domain.CatalogObject, error) {
	objects, err := c.listCatalog(ctx, "ITEM")

	items := make([]domain.CatalogObject, 0, len(objects))
	for _, obj := range objects {
		if obj.Type == "ITEM" {
			items = append(items, obj)
		}
	}

	c.logger.Info("fetched items", zap.Int("count", len(items)))
	return items, err
}

// GetInventory returns the stock counts of the given objects at the given locations
func (c *Client) GetInventory(ctx context.Context, objectIDs []string, locationIDs []string) ([]domain.InventoryCount, error) {
	if len(objectIDs) == 0 {
		return nil, nil
	}

	return paginate(c, "inventory", func(cursor string) ([]domain.InventoryCount, string, error) {
		body := batchCountsRequest{
			CatalogObjectIDs: objectIDs,
			LocationIDs:      locationIDs,
			Cursor:           cursor,
		}

		var resp batchCountsResponse
		if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/inventory/counts/batch-retrieve", body, &resp); err != nil {
			return nil, "", err
		}
		return resp.Counts, resp.Cursor, nil
	})
}

// ListVendors returns all ACTIVE vendors
func (c *Client) ListVendors(ctx context.Context) ([]domain.SquareVendor, error) {
	vendors, err := paginate(c, "vendors", func(cursor string) ([]domain.SquareVendor, string, error) {
		body := searchVendorsRequest{
			Filter: vendorFilter{Status: []string{"ACTIVE"}},
			Cursor: cursor,
		}

		var resp searchVendorsResponse
		if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/vendors/search", body, &resp); err != nil {
			return nil, "", err
		}
		return resp.Vendors, resp.Cursor, nil
	})

	c.logger.Info("fetched vendors", zap.Int("count", len(vendors)))
	return vendors, err
}
