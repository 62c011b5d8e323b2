// Package segment talks to the local segmentation sidecar. The sidecar
// computes image embeddings ahead of interactive segmentation; warming
// them during analysis hides the embedding latency from the student.
package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Preloader warms the segmentation embedding for an uploaded image.
type Preloader interface {
	// Preload asks the sidecar to compute and cache the embedding for the
	// image at the given path. Blocks until the embedding is ready.
	Preload(ctx context.Context, imagePath string) error
}

// Client is an HTTP Preloader for the sidecar's /preload endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure Client implements Preloader interface
var _ Preloader = (*Client)(nil)

// NewClient creates a preload client for the sidecar at baseURL.
// If logger is nil, a default logger will be used.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "segment")),
	}
}

type preloadRequest struct {
	ImagePath string `json:"image_path"`
}

// Preload implements the Preloader interface.
func (c *Client) Preload(ctx context.Context, imagePath string) error {
	body, err := json.Marshal(preloadRequest{ImagePath: imagePath})
	if err != nil {
		return fmt.Errorf("failed to encode preload request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/preload",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to build preload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "preload request failed",
			"error", err,
			"image_path", imagePath)
		return fmt.Errorf("preload request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "preload returned non-OK status",
			"status", resp.StatusCode,
			"image_path", imagePath)
		return fmt.Errorf("preload returned status %d", resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "embedding preloaded", "image_path", imagePath)
	return nil
}
