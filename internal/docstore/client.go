// Package docstore is a client for the document and metadata store, a
// PostgREST-style key-value REST interface. It records ingestion manifests.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agenthands/ontograph/internal/core/ontology"
)

var ErrNotConfigured = errors.New("document store is not configured")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("document store returned %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Insert writes one row into table.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, table, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Query returns the rows of table matching filters, given in PostgREST form
// such as {"run_id": "eq.<id>"}.
func (c *Client) Query(ctx context.Context, table string, filters map[string]string) ([]map[string]any, error) {
	q := url.Values{"select": {"*"}}
	for k, v := range filters {
		q.Set(k, v)
	}
	req, err := c.newRequest(ctx, http.MethodGet, table, q, nil)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := c.do(req, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Health reports whether the store answers without a server error.
func (c *Client) Health(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &StatusError{Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, table string, q url.Values, body io.Reader) (*http.Request, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if !ontology.IsIdentifier(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	u := c.baseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("document store request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
