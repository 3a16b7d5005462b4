package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/pricesheet/worker/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Google Sheets REST endpoint.
	DefaultBaseURL = "https://sheets.googleapis.com"
	// DefaultSheetName is the tab holding the product list.
	DefaultSheetName = "Página1"

	maxAttempts     = 3
	maxResponseBody = 1 << 20
)

// Config describes the spreadsheet layout and credentials.
type Config struct {
	BaseURL         string
	SpreadsheetID   string
	SheetName       string
	AccessToken     string
	APIKey          string
	ProductColumn   string
	OffersColumn    string
	TimestampColumn string
	// HeaderRows defaults to 1; a negative value means no header.
	HeaderRows int
	Location   *time.Location
	Timeout    time.Duration
}

// Client reads product names from and writes offers into a Google Sheet.
type Client struct {
	httpClient  *http.Client
	cfg         Config
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new Sheets API client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	if cfg.ProductColumn == "" {
		cfg.ProductColumn = "A"
	}
	if cfg.OffersColumn == "" {
		cfg.OffersColumn = "B"
	}
	if cfg.TimestampColumn == "" {
		cfg.TimestampColumn = "V"
	}
	switch {
	case cfg.HeaderRows == 0:
		cfg.HeaderRows = 1
	case cfg.HeaderRows < 0:
		cfg.HeaderRows = 0
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	// Sheets allows 60 write requests per minute per user
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:         cfg,
		rateLimiter: limiter,
	}
}

// SetDebug toggles verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Printf("[SHEETS] "+format, args...)
	}
}

// ListProducts reads the product column, skipping header rows and blank cells.
func (c *Client) ListProducts(ctx context.Context) ([]domain.ProductRef, error) {
	rng := fmt.Sprintf("%s!%s:%s", c.cfg.SheetName, c.cfg.ProductColumn, c.cfg.ProductColumn)
	log.Printf("[SHEETS] Reading products from %s", rng)

	body, err := c.do(ctx, http.MethodGet, c.valuesURL(rng, nil), nil)
	if err != nil {
		return nil, err
	}

	var resp valueRange
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrSheetsAPIFailure, err)
	}

	products := MapValuesToProducts(resp.Values, c.cfg.HeaderRows)
	log.Printf("[SHEETS] Found %d products", len(products))
	return products, nil
}

// WriteRow writes the timestamp cell (only when the row has one) and then the
// price, link pairs starting at the offers column.
func (c *Client) WriteRow(ctx context.Context, rowIndex int, row domain.ProductRow) error {
	if rowIndex <= c.cfg.HeaderRows {
		return fmt.Errorf("%w: row %d is inside the header", domain.ErrInvalidRequest, rowIndex)
	}

	if row.HasTimestamp() {
		rng := fmt.Sprintf("%s!%s%d", c.cfg.SheetName, c.cfg.TimestampColumn, rowIndex)
		if err := c.update(ctx, rng, MapTimestampValues(row, c.cfg.Location)); err != nil {
			return err
		}
	}

	values := MapRowToValues(row)
	if len(values[0]) == 0 {
		c.debugLog("Row %d has no offers, skipping offers update", rowIndex)
		return nil
	}

	rng := fmt.Sprintf("%s!%s%d", c.cfg.SheetName, c.cfg.OffersColumn, rowIndex)
	return c.update(ctx, rng, values)
}

func (c *Client) update(ctx context.Context, rng string, values [][]interface{}) error {
	payload, err := json.Marshal(valueRange{
		Range:          rng,
		MajorDimension: "ROWS",
		Values:         values,
	})
	if err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}

	params := url.Values{}
	params.Set("valueInputOption", "RAW")

	c.debugLog("Updating %s with %d cells", rng, len(values[0]))
	_, err = c.do(ctx, http.MethodPut, c.valuesURL(rng, params), payload)
	return err
}

func (c *Client) valuesURL(rng string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.SpreadsheetID), url.PathEscape(rng))
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// do executes a request with rate limiting and retries on 429 and 5xx.
func (c *Client) do(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "pricesheet-worker/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cfg.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		}

		c.debugLog("%s %s (attempt %d)", method, req.URL.Path, attempt)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrSheetsAPIFailure, ctx.Err())
			}
			log.Printf("[SHEETS] Request error (attempt %d): %v", attempt, err)
			lastErr = fmt.Errorf("%w: %v", domain.ErrSheetsAPIFailure, err)
			if err := sleep(ctx, exponentialBackoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, err := readLimitedBody(resp.Body, maxResponseBody)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrSheetsAPIFailure, err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		log.Printf("[SHEETS] API error (attempt %d) - Status: %d, Body: %s", attempt, resp.StatusCode, string(body))
		lastErr = fmt.Errorf("%w: status %d", domain.ErrSheetsAPIFailure, resp.StatusCode)
		if !retryable(resp.StatusCode) {
			return nil, lastErr
		}
		if attempt < maxAttempts {
			if err := sleep(ctx, exponentialBackoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	log.Printf("[SHEETS] All retries failed for %s %s", method, reqURL)
	return nil, lastErr
}

// exponentialBackoff returns 500ms, 1s, 2s... for attempts 1, 2, 3...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// readLimitedBody reads at most limit bytes from r.
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
