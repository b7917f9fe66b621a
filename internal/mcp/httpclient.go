package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lifesuit/companion/internal/device"
	"github.com/lifesuit/companion/internal/models"
	"github.com/lifesuit/companion/internal/sim"
	"github.com/lifesuit/companion/internal/storage"
)

// HTTPClient implements Controller by calling the LifeSuit REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the device lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends a request and decodes the JSON response into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpclient: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) command(ctx context.Context, method, path string, body any) (device.Result, error) {
	var res device.Result
	err := c.do(ctx, method, path, nil, body, &res)
	return res, err
}

func (c *HTTPClient) State(ctx context.Context) (device.Snapshot, error) {
	var snap device.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/v1/state", nil, nil, &snap)
	return snap, err
}

func (c *HTTPClient) Connect(ctx context.Context) (device.Result, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/connect", nil)
}

func (c *HTTPClient) Disconnect(ctx context.Context) (device.Result, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/disconnect", nil)
}

func (c *HTTPClient) StartSession(ctx context.Context) (device.Result, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/session/start", nil)
}

func (c *HTTPClient) EndSession(ctx context.Context) (device.Result, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/session/end", nil)
}

func (c *HTTPClient) SetVerticalMode(ctx context.Context, side sim.Side, mode sim.VerticalMode) (device.Result, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/limbs/"+url.PathEscape(string(side))+"/vertical",
		map[string]string{"mode": string(mode)})
}

func (c *HTTPClient) SetHorizontalMode(ctx context.Context, side sim.Side, mode sim.HorizontalMode) (device.Result, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/limbs/"+url.PathEscape(string(side))+"/horizontal",
		map[string]string{"mode": string(mode)})
}

func (c *HTTPClient) ConfigureSchedule(ctx context.Context, start, end string, enabled bool) (device.Result, error) {
	return c.command(ctx, http.MethodPut, "/api/v1/schedule", map[string]any{
		"window_start": start,
		"window_end":   end,
		"enabled":      enabled,
	})
}

func (c *HTTPClient) QuerySessions(ctx context.Context, start, end time.Time) ([]models.SessionRecord, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))

	var sessions []models.SessionRecord
	err := c.do(ctx, http.MethodGet, "/api/v1/sessions", params, nil, &sessions)
	return sessions, err
}

func (c *HTTPClient) RecentSessions(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var sessions []models.SessionRecord
	err := c.do(ctx, http.MethodGet, "/api/v1/sessions", params, nil, &sessions)
	return sessions, err
}

func (c *HTTPClient) SessionStats(ctx context.Context) (*storage.HistoryStats, error) {
	var stats storage.HistoryStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) Achievements(ctx context.Context) ([]models.Achievement, error) {
	var list []models.Achievement
	err := c.do(ctx, http.MethodGet, "/api/v1/achievements", nil, nil, &list)
	return list, err
}
