package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/avoronov/pasteboard/internal/backend"
)

// Storage returns the blob-store view of the service (avatar uploads).
func (c *Client) Storage() backend.Storage { return &storageAPI{c: c} }

type storageAPI struct {
	c *Client
}

func (s *storageAPI) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	u := s.c.baseURL + "/storage/v1/object/" + bucket + "/" + path
	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("apikey", s.c.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.c.bearer())
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	return nil
}

func (s *storageAPI) PublicURL(bucket, path string) string {
	return s.c.baseURL + "/storage/v1/object/public/" + bucket + "/" + path
}
