// Package remote implements the HTTP client for the automation API the
// supervisor drives: account balance and price, the user profile, job
// control and the order reports.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/quickcart/order-supervisor/internal/supervisor"
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// Config holds remote API connection settings.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// Client talks to the remote automation API. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a remote API client.
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// envelope is the common response wrapper of the remote API.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Balance reads the current account balance.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var resp struct {
		envelope
		Balance float64 `json:"balance"`
	}
	if err := c.getJSON(ctx, "/balance", &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("balance request failed: %s", resp.Error)
	}
	return resp.Balance, nil
}

// Price reads the per-order service price. A missing price is returned
// as zero, which admission rejects as not set.
func (c *Client) Price(ctx context.Context) (float64, error) {
	var resp struct {
		envelope
		Price float64 `json:"price"`
	}
	if err := c.getJSON(ctx, "/price", &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("price request failed: %s", resp.Error)
	}
	return resp.Price, nil
}

// startRequest is the wire payload of the start call. Product entries
// with empty URLs are dropped before this point.
type startRequest struct {
	Name               string        `json:"name"`
	HouseFlatNo        string        `json:"house_flat_no"`
	Landmark           string        `json:"landmark"`
	TotalOrders        int           `json:"total_orders"`
	MaxParallelWindows int           `json:"max_parallel_windows"`
	Products           []wireProduct `json:"products"`
	OrderAll           bool          `json:"order_all"`
	RetryOrders        bool          `json:"retry_orders"`
	Latitude           float64       `json:"latitude"`
	Longitude          float64       `json:"longitude"`
	SelectLocation     bool          `json:"select_location"`
	SearchInput        string        `json:"search_input"`
	LocationText       string        `json:"location_text"`
}

type wireProduct struct {
	URL      string `json:"url"`
	Quantity int    `json:"quantity"`
}

// StartJob issues the start request for an admitted config. A refusal
// is returned as a StartRejectedError carrying the remote reason.
func (c *Client) StartJob(ctx context.Context, cfg domain.JobConfig, plan supervisor.ExecutionPlan) error {
	products := make([]wireProduct, len(plan.Products))
	for i, p := range plan.Products {
		products[i] = wireProduct{URL: p.URL, Quantity: p.Quantity}
	}

	req := startRequest{
		Name:               cfg.Identity.Name,
		HouseFlatNo:        cfg.Identity.HouseFlatNo,
		Landmark:           cfg.Identity.Landmark,
		TotalOrders:        cfg.TotalUnits,
		MaxParallelWindows: cfg.MaxParallelism,
		Products:           products,
		OrderAll:           plan.OrderAll,
		RetryOrders:        cfg.RetryOnce,
		Latitude:           cfg.Location.Latitude,
		Longitude:          cfg.Location.Longitude,
		SelectLocation:     cfg.Location.SelectionEnabled,
		SearchInput:        cfg.Location.SearchQuery,
		LocationText:       cfg.Location.TargetLabel,
	}

	var resp envelope
	if err := c.postJSON(ctx, "/automation/start", req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &domain.StartRejectedError{Reason: resp.Error}
	}
	return nil
}

// StopJob asks the remote to cancel the live run. A refusal is
// returned as a StopFailedError so the caller can retry.
func (c *Client) StopJob(ctx context.Context) error {
	var resp envelope
	if err := c.postJSON(ctx, "/automation/stop", struct{}{}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &domain.StopFailedError{Reason: resp.Error}
	}
	return nil
}

// JobStatus reads the authoritative run status. The status endpoint
// returns the counters flat, without the success envelope.
func (c *Client) JobStatus(ctx context.Context) (domain.JobStatus, error) {
	var status domain.JobStatus
	if err := c.getJSON(ctx, "/automation/status", &status); err != nil {
		return domain.JobStatus{}, err
	}
	return status, nil
}

// Profile is the remotely stored job configuration.
type Profile struct {
	Name               *string          `json:"name,omitempty"`
	HouseFlatNo        *string          `json:"house_flat_no,omitempty"`
	Landmark           *string          `json:"landmark,omitempty"`
	TotalOrders        *int             `json:"total_orders,omitempty"`
	MaxParallelWindows *int             `json:"max_parallel_windows,omitempty"`
	RetryOrders        *bool            `json:"retry_orders,omitempty"`
	OrderAll           *bool            `json:"order_all,omitempty"`
	Products           []domain.Product `json:"products,omitempty"`
	Latitude           *float64         `json:"latitude,omitempty"`
	Longitude          *float64         `json:"longitude,omitempty"`
	SelectLocation     *bool            `json:"select_location,omitempty"`
	SearchInput        *string          `json:"search_input,omitempty"`
	LocationText       *string          `json:"location_text,omitempty"`
}

// FetchProfile reads the stored profile.
func (c *Client) FetchProfile(ctx context.Context) (*Profile, error) {
	var resp struct {
		envelope
		Profile *Profile `json:"profile"`
	}
	if err := c.getJSON(ctx, "/profile", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("profile request failed: %s", resp.Error)
	}
	return resp.Profile, nil
}

// UpdateProfile writes a partial profile update. Only set fields are
// sent.
func (c *Client) UpdateProfile(ctx context.Context, patch Profile) error {
	var resp envelope
	if err := c.putJSON(ctx, "/profile", patch, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("profile update failed: %s", resp.Error)
	}
	return nil
}

// Reports is the remote order report listing.
type Reports struct {
	Success []ReportEntry `json:"success"`
	Failed  []ReportEntry `json:"failed"`
}

// ReportEntry is one ordered (or failed) item in the remote report.
type ReportEntry struct {
	OrderID   string `json:"order_id"`
	Product   string `json:"product"`
	Timestamp string `json:"timestamp"`
	Detail    string `json:"detail"`
}

// FetchReports reads the remote success/failed order report. Like the
// status endpoint, the report comes back flat.
func (c *Client) FetchReports(ctx context.Context) (*Reports, error) {
	var reports Reports
	if err := c.getJSON(ctx, "/orders/report", &reports); err != nil {
		return nil, err
	}
	return &reports, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, dest)
}

func (c *Client) postJSON(ctx context.Context, path string, body, dest any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, dest)
}

func (c *Client) putJSON(ctx context.Context, path string, body, dest any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, dest)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Warn("remote API error response",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("remote API returned %d for %s %s", resp.StatusCode, method, path)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
