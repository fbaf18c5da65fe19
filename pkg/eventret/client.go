// Package eventret is a Go client for the eventret-server REST API.
package eventret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventret/internal/api"
	"eventret/internal/backtest"
	"eventret/internal/catalog"
)

// Re-exported wire types.
type (
	RunRequest  = api.RunRequest
	RunResponse = api.RunResponse
	EventView   = api.EventView
	CatalogView = api.CatalogView
	Snapshot    = backtest.Snapshot
	Offsets     = catalog.Offsets
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eventret: %d %s: %s", e.StatusCode, e.Kind, e.Message)
}

// Client provides a Go SDK for interacting with the eventret-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new eventret API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run posts a backtest request.
func (c *Client) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	var out RunResponse
	if err := c.do(ctx, http.MethodPost, "/api/backtest", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Latest retrieves the state of the newest run.
func (c *Client) Latest(ctx context.Context) (Snapshot, error) {
	var out Snapshot
	err := c.do(ctx, http.MethodGet, "/api/backtest/latest", nil, &out)
	return out, err
}

// Catalogs lists the server's catalogs.
func (c *Client) Catalogs(ctx context.Context) ([]CatalogView, error) {
	var out struct {
		Catalogs []CatalogView `json:"catalogs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/catalogs", nil, &out); err != nil {
		return nil, err
	}
	return out.Catalogs, nil
}

// Offsets retrieves the enumerated entry and exit offsets.
func (c *Client) Offsets(ctx context.Context) (Offsets, error) {
	var out Offsets
	err := c.do(ctx, http.MethodGet, "/api/offsets", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var eb struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &eb) != nil || eb.Error == "" {
			eb.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Kind: eb.Kind, Message: eb.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
