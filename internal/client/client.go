// Package client talks to the remote price backend over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/models"
	"go.uber.org/zap"
)

const maxBodyBytes = 10 << 20

// StatusError is returned when the backend answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// Client calls the price backend's REST endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend client with the given request timeout
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Locations handles GET /locations
func (c *Client) Locations(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	if err := c.getJSON(ctx, "/locations", nil, &locations); err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	return locations, nil
}

// Commodities handles GET /commodities
func (c *Client) Commodities(ctx context.Context) ([]models.Commodity, error) {
	var commodities []models.Commodity
	if err := c.getJSON(ctx, "/commodities", nil, &commodities); err != nil {
		return nil, fmt.Errorf("failed to fetch commodities: %w", err)
	}
	return commodities, nil
}

// PriceHistory handles GET /price-history
func (c *Client) PriceHistory(ctx context.Context, commodity, location string, r daterange.Range) (*models.PriceHistory, error) {
	q := url.Values{}
	q.Set("commodity", commodity)
	q.Set("location", location)
	q.Set("start_date", r.Start.String())
	q.Set("end_date", r.End.String())

	var history models.PriceHistory
	if err := c.getJSON(ctx, "/price-history", q, &history); err != nil {
		return nil, fmt.Errorf("failed to fetch price history for %s/%s: %w", commodity, location, err)
	}
	return &history, nil
}

// Forecast handles GET /forecast
func (c *Client) Forecast(ctx context.Context, commodity, location string, days int) (*models.Forecast, error) {
	q := url.Values{}
	q.Set("commodity", commodity)
	q.Set("location", location)
	q.Set("days", strconv.Itoa(days))

	var forecast models.Forecast
	if err := c.getJSON(ctx, "/forecast", q, &forecast); err != nil {
		return nil, fmt.Errorf("failed to fetch forecast for %s/%s: %w", commodity, location, err)
	}
	return &forecast, nil
}

// RealtimePrices handles GET /realtime-prices; an empty location returns all markets
func (c *Client) RealtimePrices(ctx context.Context, location string) ([]models.RealtimePrice, error) {
	var q url.Values
	if location != "" {
		q = url.Values{}
		q.Set("location", location)
	}

	var prices []models.RealtimePrice
	if err := c.getJSON(ctx, "/realtime-prices", q, &prices); err != nil {
		return nil, fmt.Errorf("failed to fetch realtime prices: %w", err)
	}
	return prices, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	c.logger.Debug("backend request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
