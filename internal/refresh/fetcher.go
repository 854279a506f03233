// Package refresh fetches the content of newly adopted feeds in the
// background and records what it learned on the local hierarchy.
package refresh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/doyensec/safeurl"
	"github.com/mmcdole/gofeed"

	"github.com/klauern/feedsync/internal/cache"
	"github.com/klauern/feedsync/internal/security"
)

const (
	defaultUserAgent   = "feedsync/1.0"
	defaultMaxBodySize = 5 << 20
	acceptHeader       = "application/rss+xml, application/atom+xml, application/xml, text/xml, */*"
)

// ErrUnexpectedStatus is returned for responses that are neither 2xx nor 304.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Result is what one fetch learned about a feed.
type Result struct {
	// NotModified is set when the server answered 304 or the body hash
	// matched the previous fetch.
	NotModified bool
	Title       string
	Description string
	Podcast     bool
	Items       int
}

// Fetcher downloads and parses a single feed.
type Fetcher struct {
	client    *http.Client
	cache     *cache.Cache
	sanitizer *security.Sanitizer
	userAgent string
	maxBody   int64
}

// NewSafeClient returns an HTTP client that refuses private, loopback and
// link-local destinations, including after DNS resolution.
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(config).Client
}

// NewFetcher creates a fetcher. A nil client falls back to NewSafeClient and
// a nil cache disables conditional requests.
func NewFetcher(client *http.Client, c *cache.Cache, sanitizer *security.Sanitizer) *Fetcher {
	if client == nil {
		client = NewSafeClient(30 * time.Second)
	}
	if c == nil {
		c = cache.NewMemory()
	}
	if sanitizer == nil {
		sanitizer = security.NewSanitizer()
	}
	return &Fetcher{
		client:    client,
		cache:     c,
		sanitizer: sanitizer,
		userAgent: defaultUserAgent,
		maxBody:   defaultMaxBodySize,
	}
}

// Fetch retrieves url, using the cached validators for a conditional GET.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	prev, cached := f.cache.Get(url)
	if cached {
		if prev.ETag != "" {
			req.Header.Set("If-None-Match", prev.ETag)
		}
		if prev.LastModified != "" {
			req.Header.Set("If-Modified-Since", prev.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		f.cache.Touch(url)
		return &Result{NotModified: true, Title: prev.Title}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	entry := cache.Entry{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		ContentHash:  xxhash.Sum64(body),
	}
	if cached && prev.ContentHash == entry.ContentHash {
		entry.Title = prev.Title
		f.cache.Set(url, entry)
		return &Result{NotModified: true, Title: prev.Title}, nil
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	result := &Result{
		Title:       f.sanitizer.Text(parsed.Title),
		Description: f.sanitizer.Text(parsed.Description),
		Items:       len(parsed.Items),
	}
	for _, item := range parsed.Items {
		if len(item.Enclosures) > 0 {
			result.Podcast = true
			break
		}
	}

	entry.Title = result.Title
	f.cache.Set(url, entry)
	return result, nil
}
