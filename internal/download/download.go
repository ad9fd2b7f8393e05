// Package download fetches optional binding artifacts (wheels, engine
// archives, model files) during installation.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultRetryDelay = 2 * time.Second
	defaultMaxRetries = 3
	defaultTimeout    = 5 * time.Minute
)

// Client downloads artifacts over HTTP.
type Client struct {
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a download client with default retry behavior.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// FileSize issues a HEAD request and returns the Content-Length of the
// artifact, or 0 when the server does not advertise one.
func (c *Client) FileSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("download: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download: HEAD %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return 0, nil
	}

	return size, nil
}

// Fetch downloads the artifact at url into destDir and returns the local
// path. Retries transient failures before giving up.
func (c *Client) Fetch(ctx context.Context, url, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("download: failed to create directory: %w", err)
	}

	name := filepath.Base(url)
	if name == "." || name == "/" {
		name = "artifact"
	}
	destPath := filepath.Join(destDir, name)

	var lastErr error
	for attempt := range c.maxRetries {
		if attempt > 0 {
			slog.Info("Retrying download", "url", url, "attempt", attempt+1, "last_error", lastErr)
			time.Sleep(c.retryDelay)
		}

		if err := c.fetchOnce(ctx, url, destPath); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", fmt.Errorf("download: canceled: %w", err)
			}
			continue
		}

		return destPath, nil
	}

	return "", fmt.Errorf("download: failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}

	return out.Close()
}

// InstallArtifact downloads url into a temporary directory, runs the install
// step on the local file, and removes the temporary directory in all cases.
func (c *Client) InstallArtifact(ctx context.Context, url string, install func(path string) error) error {
	tempDir, err := os.MkdirTemp("", "bindery-install-")
	if err != nil {
		return fmt.Errorf("download: failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			slog.Warn("Failed to clean up temp dir", "path", tempDir, "error", err)
		}
	}()

	path, err := c.Fetch(ctx, url, tempDir)
	if err != nil {
		slog.Error("Failed to download artifact", "url", url, "error", err)
		return err
	}

	if install == nil {
		return nil
	}

	if err := install(path); err != nil {
		return fmt.Errorf("download: install step failed: %w", err)
	}

	slog.Info("Artifact installed", "url", url)
	return nil
}
