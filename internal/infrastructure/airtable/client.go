package airtable

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100
)

// ClientConfig configures the Airtable client
type ClientConfig struct {
	APIKey            string
	BaseID            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client reads and writes rows of one Airtable base
type Client struct {
	rest        *resty.Client
	baseID      string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new Airtable client.
// Airtable allows 5 requests per second per base.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		rest:        rest,
		baseID:      cfg.BaseID,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:      logger.OrNop(log).Named("airtable"),
	}
}

type listResponse struct {
	Records []domain.DestinationRecord `json:"records"`
	Offset  string                     `json:"offset"`
}

type writeRequest struct {
	Fields   map[string]interface{} `json:"fields"`
	Typecast bool                   `json:"typecast"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// request prepares a rate limited request scoped to the base and table
func (c *Client) request(ctx context.Context, table string) (*resty.Request, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	return c.rest.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"base":  c.baseID,
			"table": table,
		}).
		SetError(&errorResponse{}), nil
}

// checkResponse converts transport failures and non-2xx responses into domain errors
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAirtableAPIFailure, err)
	}
	if !resp.IsError() {
		return nil
	}

	detail := resp.String()
	if e, ok := resp.Error().(*errorResponse); ok && e.Error.Type != "" {
		detail = e.Error.Type + ": " + e.Error.Message
	}

	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, detail)
	}
	return fmt.Errorf("%w: status %d, %s", domain.ErrAirtableAPIFailure, resp.StatusCode(), detail)
}

// ListRecords returns every row of the table, following offsets
func (c *Client) ListRecords(ctx context.Context, table string) ([]domain.DestinationRecord, error) {
	var (
		records []domain.DestinationRecord
		offset  string
	)

	for {
		req, err := c.request(ctx, table)
		if err != nil {
			return nil, err
		}

		req.SetQueryParam("pageSize", strconv.Itoa(defaultPageSize))
		if offset != "" {
			req.SetQueryParam("offset", offset)
		}

		var page listResponse
		resp, err := req.SetResult(&page).Get("/{base}/{table}")
		if err := checkResponse(resp, err); err != nil {
			return nil, fmt.Errorf("listing %s: %w", table, err)
		}

		records = append(records, page.Records...)
		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}

	c.logger.Info("fetched existing rows", zap.String("table", table), zap.Int("count", len(records)))
	return records, nil
}

// CreateRecord inserts a row and returns it with the id Airtable assigned
func (c *Client) CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (*domain.DestinationRecord, error) {
	req, err := c.request(ctx, table)
	if err != nil {
		return nil, err
	}

	var created domain.DestinationRecord
	resp, err := req.
		SetBody(writeRequest{Fields: fields, Typecast: true}).
		SetResult(&created).
		Post("/{base}/{table}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &created, nil
}

// UpdateRecord patches the given fields of an existing row
func (c *Client) UpdateRecord(ctx context.Context, table, recordID string, fields map[string]interface{}) error {
	req, err := c.request(ctx, table)
	if err != nil {
		return err
	}

	resp, err := req.
		SetPathParam("record", recordID).
		SetBody(writeRequest{Fields: fields, Typecast: true}).
		Patch("/{base}/{table}/{record}")
	return checkResponse(resp, err)
}

// DeleteRecord removes a row
func (c *Client) DeleteRecord(ctx context.Context, table, recordID string) error {
	req, err := c.request(ctx, table)
	if err != nil {
		return err
	}

	resp, err := req.
		SetPathParam("record", recordID).
		Delete("/{base}/{table}/{record}")
	return checkResponse(resp, err)
}
