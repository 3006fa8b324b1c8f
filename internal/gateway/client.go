// Package gateway validates and issues mutation commands against the
// remote Mission Control service, and merges each response's
// authoritative objects back into the entity store. A command either
// completes and merges server truth, or fails and leaves local state
// exactly as it was; the optimistic run handle is the one deliberate
// exception and is rolled back on failure.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shabbark/pocketpaw/internal/errors"
)

// Client is a minimal Mission Control HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient creates a client with sane defaults.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 15 * time.Second,
	}
}

// apiError is the error body shape returned by the service.
type apiError struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func (e *apiError) message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Error != "" {
		return e.Error
	}
	return "request failed"
}

// doJSON issues a request with an optional JSON body and decodes the
// JSON response into out (when out is non-nil). Non-2xx responses are
// returned as CommandErrors carrying the sanitized server message.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	// Request id lets the service de-duplicate a retried command.
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.NewCommandError(op, 0, fmt.Errorf("%w: %v", errors.ErrServiceUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		return errors.NewCommandError(op, resp.StatusCode, fmt.Errorf("%s", errors.Sanitize(ae.message())))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewCommandError(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
