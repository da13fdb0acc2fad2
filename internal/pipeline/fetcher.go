package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/linreg/internal/cache"
	"github.com/ppiankov/linreg/internal/logging"
	"github.com/ppiankov/linreg/internal/model"
	"github.com/ppiankov/linreg/internal/util"
)

const maxFetchAttempts = 3

// fetchSleepFunc is swapped out by tests
var fetchSleepFunc = time.Sleep

// ErrBodyTooLarge is returned when a response exceeds the configured size limit
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher downloads remote data sources
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	cache      cache.Cache
	cacheTTL   time.Duration
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		cache:     cache.NopCache{},
	}
}

// NewFetcherFromConfig builds a fetcher with robots and cache settings applied
func NewFetcherFromConfig(cfg *model.Config) *Fetcher {
	h := cfg.HTTP
	f := NewFetcher(h.Timeout, h.UserAgent, h.MaxBodyBytes, h.InsecureTLS, h.HTTPProxy, h.HTTPSProxy, h.NoProxy)
	if h.RespectRobots {
		f.WithRobots(util.NewRobotsChecker(h.UserAgent, h.Timeout).WithTransport(f.httpClient.Transport))
	}
	f.WithCache(cache.New(cfg.Cache), cfg.Cache.DiskTTL)
	return f
}

// WithRobots enables robots.txt checks before each fetch
func (f *Fetcher) WithRobots(r *util.RobotsChecker) *Fetcher {
	f.robots = r
	return f
}

// WithCache stores successful fetches in c
func (f *Fetcher) WithCache(c cache.Cache, ttl time.Duration) *Fetcher {
	if c == nil {
		c = cache.NopCache{}
	}
	f.cache = c
	f.cacheTTL = ttl
	return f
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body     string
	Meta     model.FetchMeta
	Subject  string
	FinalURL string
}

// FetchWithRetry serves from cache when possible, otherwise fetches with
// retries on transient failures (5xx, 429, network errors).
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.fetch(ctx, rawURL, true)
}

// FetchFresh is FetchWithRetry without the cache lookup. The result is still stored.
func (f *Fetcher) FetchFresh(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.fetch(ctx, rawURL, false)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, useCache bool) (*FetchResult, error) {
	logger := logging.FromContext(ctx)
	key := cache.SourceKey(rawURL)

	if useCache {
		if entry, ok := cache.GetEntry(f.cache, key); ok {
			logger.Debugw("source served from cache", "url", rawURL)
			return resultFromEntry(entry), nil
		}
	}

	if f.robots != nil {
		if err := f.robots.Check(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			f.store(ctx, key, rawURL, result)
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == maxFetchAttempts {
			break
		}

		backoff := time.Duration(attempt) * time.Second
		logger.Debugw("retrying fetch", "url", rawURL, "attempt", attempt, "backoff", backoff, "error", err)
		fetchSleepFunc(backoff)
	}

	return nil, lastErr
}

func (f *Fetcher) store(ctx context.Context, key, rawURL string, result *FetchResult) {
	entry := &cache.Entry{
		URL:          result.FinalURL,
		StatusCode:   result.Meta.StatusCode,
		ContentType:  result.Meta.ContentType,
		LastModified: result.Meta.LastModified,
		ETag:         result.Meta.ETag,
		Body:         []byte(result.Body),
		FetchedAt:    time.Now().UTC(),
	}
	if err := cache.SetEntry(f.cache, key, entry, f.cacheTTL); err != nil {
		logging.FromContext(ctx).Warnw("failed to cache source", "url", rawURL, "error", err)
	}
}

func resultFromEntry(e *cache.Entry) *FetchResult {
	return &FetchResult{
		Body: string(e.Body),
		Meta: model.FetchMeta{
			StatusCode:   e.StatusCode,
			ContentType:  e.ContentType,
			LastModified: e.LastModified,
			ETag:         e.ETag,
			FromCache:    true,
		},
		Subject:  extractSubject(e.URL),
		FinalURL: e.URL,
	}
}

// Fetch performs a single GET of rawURL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,text/html;q=0.8,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}

	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBytes)
	}

	finalURL := resp.Request.URL.String()

	return &FetchResult{
		Body:     string(body),
		Meta:     meta,
		Subject:  extractSubject(finalURL),
		FinalURL: finalURL,
	}, nil
}

// isRetryableFetchError reports whether a fetch failure is worth retrying
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}

// extractSubject extracts a human-readable subject from the URL
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
