// Package storage provides a minimal net/http-based blob store client.
// No dedicated SDK is narrow enough for a generic object store (see
// DESIGN.md), so this is a thin PUT/GET wrapper the media-generating
// adapters (imagegen, voice, videorender) share to turn provider output
// into a durable handle URL.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/castforge/castforge/internal/apperrors"
)

// Client uploads blobs to a base URL via HTTP PUT and returns the
// resulting object's address as its handle.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Put uploads data under key and returns the handle (URL) it can be
// fetched back from.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/%s", c.BaseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", apperrors.FailedTo("build storage put request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", apperrors.FailedTo("upload blob to storage", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("storage: PUT %s returned %d: %s", url, resp.StatusCode, body)
	}
	return url, nil
}
