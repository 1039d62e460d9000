package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// DuckDuckGoConfig controls the search collector.
type DuckDuckGoConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// MinDelay/MaxDelay bound the randomized politeness pause after each
	// search request.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DuckDuckGoFinder locates public LinkedIn profiles through DuckDuckGo's
// HTML endpoint, which serves results without JavaScript.
type DuckDuckGoFinder struct {
	cfg           DuckDuckGoConfig
	baseCollector *colly.Collector
}

// NewDuckDuckGoFinder builds a finder.
func NewDuckDuckGoFinder(cfg DuckDuckGoConfig) *DuckDuckGoFinder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://duckduckgo.com/html/"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 1800 * time.Millisecond
	}
	if cfg.MaxDelay <= cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay + 1400*time.Millisecond
	}

	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)

	return &DuckDuckGoFinder{cfg: cfg, baseCollector: c}
}

// FindProfile searches for the lead and returns the first linkedin.com/in or
// linkedin.com/pub result link, or "" when no result matches.
func (f *DuckDuckGoFinder) FindProfile(ctx context.Context, name, company string) (string, error) {
	query := fmt.Sprintf("%s %s site:linkedin.com/in OR site:linkedin.com/pub",
		strings.TrimSpace(name), strings.TrimSpace(company))
	searchURL := f.cfg.BaseURL + "?q=" + url.QueryEscape(strings.TrimSpace(query))

	var profileURL string
	collector := f.baseCollector.Clone()
	collector.OnHTML("a.result__a[href]", func(e *colly.HTMLElement) {
		if profileURL != "" {
			return
		}
		href := resolveResultLink(e.Attr("href"))
		if isProfileLink(href) {
			profileURL = href
		}
	})

	var visitErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		visitErr = collector.Visit(searchURL)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("profile search canceled: %w", ctx.Err())
	case <-done:
	}

	f.politePause(ctx)

	if visitErr != nil {
		return "", fmt.Errorf("duckduckgo search: %w", visitErr)
	}
	return profileURL, nil
}

// resolveResultLink unwraps DuckDuckGo's redirect links, which carry the real
// target in the uddg query parameter.
func resolveResultLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func isProfileLink(href string) bool {
	return strings.Contains(href, "linkedin.com/in") || strings.Contains(href, "linkedin.com/pub")
}

func (f *DuckDuckGoFinder) politePause(ctx context.Context) {
	delay := f.cfg.MinDelay + time.Duration(rand.Int63n(int64(f.cfg.MaxDelay-f.cfg.MinDelay)))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
