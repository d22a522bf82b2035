// Package api is the HTTP client for the numbers backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"numtrack/internal/record"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL (for example http://localhost:5000/api).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// FetchAll lists every stored record.
func (c *Client) FetchAll(ctx context.Context) ([]record.Entry, error) {
	var entries []record.Entry
	if err := c.do(ctx, http.MethodGet, "/numbers", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PutRecord upserts the full record for number n.
func (c *Client) PutRecord(ctx context.Context, n int, r record.Record) error {
	return c.do(ctx, http.MethodPut, "/numbers/"+strconv.Itoa(n), r, nil)
}

type BulkRequest struct {
	Numbers []int  `json:"numbers"`
	Status  string `json:"status"`
}

// BulkUpdate sets status on every listed number.
func (c *Client) BulkUpdate(ctx context.Context, numbers []int, status record.Status) error {
	body := BulkRequest{Numbers: numbers, Status: string(status)}
	if body.Numbers == nil {
		body.Numbers = []int{}
	}
	return c.do(ctx, http.MethodPut, "/numbers/bulk-update", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, URL: url, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
