// Package fetch performs the one-shot HTTP downloads setup depends on.
// There is no retry and no cache: every fetch is attempted exactly once
// and a failure aborts the caller.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Bytes downloads url and returns the full response body.
func Bytes(ctx context.Context, c *http.Client, url string) ([]byte, error) {
	body, err := get(ctx, c, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: reading body: %w", url, err)
	}
	return data, nil
}

// JSON downloads url and decodes the JSON response into v.
func JSON(ctx context.Context, c *http.Client, url string, v any) error {
	body, err := get(ctx, c, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", url, err)
	}
	return nil
}

func get(ctx context.Context, c *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s failed: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
