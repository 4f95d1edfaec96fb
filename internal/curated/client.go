// Package curated fetches daily curated snapshots and DQ logs over HTTP.
package curated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rewired-gh/dcompulse/internal/models"
)

const dateLayout = "2006-01-02"

// Client provides access to the curated data endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig tunes the underlying HTTP transport.
type ClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// NewClient creates a client rooted at baseURL. There are no retries: a
// failed request is final for the caller's refresh cycle.
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = cfg.IdleConnTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// SnapshotURL returns the curated snapshot location for date.
func (c *Client) SnapshotURL(date string) string {
	return fmt.Sprintf("%s/curated/dcom/date=%s/curated.json", c.baseURL, date)
}

// DQLogURL returns the DQ log location for date.
func (c *Client) DQLogURL(date string) string {
	return fmt.Sprintf("%s/dq_logs/date=%s/dq_log.json", c.baseURL, date)
}

// FetchSnapshot retrieves the full row set for date. Any failure, including a
// single invalid row or a body that is not exactly one JSON array, fails the
// whole day.
func (c *Client) FetchSnapshot(ctx context.Context, date string) ([]models.SnapshotRow, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}

	var rows []models.SnapshotRow
	if err := c.getJSON(ctx, c.SnapshotURL(date), &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot for %s: %w", date, err)
	}
	if rows == nil {
		return nil, fmt.Errorf("snapshot for %s is not a row array", date)
	}
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid row %d in snapshot for %s: %w", i, date, err)
		}
	}
	return rows, nil
}

// FetchDQLog retrieves the DQ diagnostic mapping for date.
func (c *Client) FetchDQLog(ctx context.Context, date string) (map[string]any, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}

	var log map[string]any
	if err := c.getJSON(ctx, c.DQLogURL(date), &log); err != nil {
		return nil, fmt.Errorf("failed to fetch dq log for %s: %w", date, err)
	}
	if log == nil {
		log = map[string]any{}
	}
	return log, nil
}

func (c *Client) getJSON(ctx context.Context, urlStr string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{URL: urlStr, StatusCode: resp.StatusCode}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func checkDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	return nil
}
