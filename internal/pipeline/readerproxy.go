package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// ReaderProxyConfig controls the readable-text fetch collector.
type ReaderProxyConfig struct {
	// Prefix is the reader proxy in front of the profile URL. The proxy
	// returns a plain-text rendering of public pages.
	Prefix    string
	UserAgent string
	Timeout   time.Duration
}

// ReaderProxyClient fetches readable-text snapshots of public profile pages
// through a reader proxy, avoiding any need for a browser.
type ReaderProxyClient struct {
	cfg           ReaderProxyConfig
	baseCollector *colly.Collector
}

// NewReaderProxyClient builds a reader proxy client.
func NewReaderProxyClient(cfg ReaderProxyConfig) *ReaderProxyClient {
	if cfg.Prefix == "" {
		cfg.Prefix = "https://r.jina.ai/http://"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)

	return &ReaderProxyClient{cfg: cfg, baseCollector: c}
}

// FetchProfileText returns the proxied plain-text snapshot of profileURL.
func (c *ReaderProxyClient) FetchProfileText(ctx context.Context, profileURL string) (string, error) {
	if profileURL == "" {
		return "", nil
	}
	target := c.cfg.Prefix + stripScheme(profileURL)

	var body []byte
	collector := c.baseCollector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})

	var visitErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		visitErr = collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("profile fetch canceled: %w", ctx.Err())
	case <-done:
	}

	if visitErr != nil {
		return "", fmt.Errorf("reader proxy fetch: %w", visitErr)
	}
	return string(body), nil
}

func stripScheme(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	return strings.TrimPrefix(rawURL, "http://")
}
