package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/lightweight/internal/ingest"
)

// Client sends exports to a LightWeight server's import endpoint.
type Client struct {
	serverURL  string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the LightWeight server.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// Ingest POSTs an export to /api/v1/import/alpha. Server errors and transport
// failures are retried up to 3 times with exponential backoff; client errors
// are returned immediately.
func (c *Client) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		result, retry, err := c.post(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, body []byte) (*ingest.Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.serverURL+"/api/v1/import/alpha", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("sending export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("import failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(msg))
		return nil, resp.StatusCode >= 500, err
	}

	var result ingest.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("decoding import result: %w", err)
	}
	return &result, false, nil
}
