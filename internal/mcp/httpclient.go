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

	"github.com/claude/lightweight/internal/models"
	"github.com/claude/lightweight/internal/storage"
)

// HTTPClient implements DataSource by calling the LightWeight REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends a request and returns the response body. Error statuses map back
// to the storage sentinels so callers can treat local and remote alike; a 400
// maps to badRequest.
func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, in any, badRequest error) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrDuplicateName)
	case resp.StatusCode == http.StatusBadRequest && badRequest != nil:
		return nil, fmt.Errorf("httpclient: %s: %s: %w", path, apiMessage(body), badRequest)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// apiMessage extracts the error field of a JSON error body.
func apiMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/exercises", nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var exercises []models.Exercise
	if err := json.Unmarshal(body, &exercises); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercises: %w", err)
	}
	return exercises, nil
}

func (c *HTTPClient) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/exercises/"+url.PathEscape(id), nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var e models.Exercise
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercise: %w", err)
	}
	return &e, nil
}

func (c *HTTPClient) FindExerciseByName(ctx context.Context, name string) (*models.Exercise, error) {
	params := url.Values{}
	params.Set("name", name)

	body, err := c.do(ctx, http.MethodGet, "/api/v1/exercises", params, nil, nil)
	if err != nil {
		return nil, err
	}

	var exercises []models.Exercise
	if err := json.Unmarshal(body, &exercises); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercises: %w", err)
	}
	if len(exercises) == 0 {
		return nil, fmt.Errorf("exercise %q: %w", name, storage.ErrNotFound)
	}
	return &exercises[0], nil
}

func (c *HTTPClient) CreateExercise(ctx context.Context, name, notes string) (*models.Exercise, error) {
	in := map[string]string{"name": name, "notes": notes}
	body, err := c.do(ctx, http.MethodPost, "/api/v1/exercises", nil, in, storage.ErrEmptyName)
	if err != nil {
		return nil, err
	}

	var e models.Exercise
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercise: %w", err)
	}
	return &e, nil
}

func (c *HTTPClient) ExerciseSessions(ctx context.Context, exerciseID string, restThreshold time.Duration, limit int) ([]models.SessionGroup, error) {
	params := url.Values{}
	if restThreshold > 0 {
		params.Set("rest", strconv.FormatFloat(restThreshold.Minutes(), 'f', -1, 64))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.do(ctx, http.MethodGet, "/api/v1/exercises/"+url.PathEscape(exerciseID)+"/sessions", params, nil, nil)
	if err != nil {
		return nil, err
	}

	var groups []models.SessionGroup
	if err := json.Unmarshal(body, &groups); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return groups, nil
}

func (c *HTTPClient) LogSet(ctx context.Context, s models.Set) (*models.Set, error) {
	in := map[string]any{"weight": s.Weight, "reps": s.Reps}
	if s.RPE != nil {
		in["rpe"] = *s.RPE
	}
	if !s.PerformedAt.IsZero() {
		in["performed_at"] = s.PerformedAt
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/exercises/"+url.PathEscape(s.ExerciseID)+"/sets", nil, in, storage.ErrInvalidSet)
	if err != nil {
		return nil, err
	}

	var created models.Set
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("httpclient: decode set: %w", err)
	}
	return &created, nil
}
