// Package scrape fetches readable page text for lead sites through a
// reader-proxy service.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxBodySize caps how much page text we pull per site.
const maxBodySize = 512 * 1024

// Client fetches readable text for a URL through a reader proxy
// (Jina-style: GET {base}/{url} returns extracted page text).
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a scrape client against the given reader base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "scrape"),
	}
}

// Fetch returns the readable text of the page at url, or "" on any
// failure. Failures are logged, never propagated: a site that cannot be
// scraped degrades to the default-message path upstream.
func (c *Client) Fetch(ctx context.Context, url string) string {
	if url == "" {
		return ""
	}

	target := fmt.Sprintf("%s/%s", c.baseURL, url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.logger.Warn("build scrape request failed", "url", url, "error", err)
		return ""
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("scrape request failed", "url", url, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("scrape returned non-2xx", "url", url, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.logger.Warn("read scrape body failed", "url", url, "error", err)
		return ""
	}

	return strings.TrimSpace(string(body))
}
