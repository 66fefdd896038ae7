// Package supabase implements the backend interfaces against a
// Supabase-shaped service: GoTrue auth over REST, PostgREST row storage,
// phoenix-channel realtime over websocket, and REST file storage.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avoronov/pasteboard/internal/backend"
	"github.com/avoronov/pasteboard/internal/client/models"
	"github.com/avoronov/pasteboard/internal/logging"
)

const defaultTimeout = 15 * time.Second

// Client is the shared transport for all backend surfaces. One Client is
// created per process; the table, realtime, and storage views borrow it.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     logging.Logger

	mu      sync.RWMutex
	session *models.Session

	events chan backend.AuthEvent
}

func New(baseURL, anonKey string, log logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
		events:  make(chan backend.AuthEvent, 16),
	}
}

// bearer returns the current access token, or the anon key when nobody is
// signed in.
func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}

// do performs a JSON request against the service. out may be nil when the
// response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError maps an HTTP failure onto the backend error taxonomy, keeping a
// snippet of the response body for diagnostics.
func apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", backend.ErrUnauthorized, msg)
	case http.StatusNotFound, http.StatusNotAcceptable:
		return fmt.Errorf("%w: %s", backend.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", backend.ErrConflict, msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", backend.ErrUnavailable, msg)
	default:
		return fmt.Errorf("backend error: status %d: %s", resp.StatusCode, msg)
	}
}
