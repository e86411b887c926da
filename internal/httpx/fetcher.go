package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"careersync/internal/config"
)

// Page is one fetched careers page
type Page struct {
	URL        string // final URL after redirects
	StatusCode int
	Body       string
}

// PageFetcher is the fetch capability strategies consume
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*Page, error)
}

// FetchError reports a failed page fetch
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s failed (status %d)", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s failed (status %d): %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CollyFetcher downloads careers pages politely: per-host rate limiting,
// bounded retries and a growing backoff after throttling responses.
type CollyFetcher struct {
	userAgent  string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration

	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
	hosts        map[string]*hostPolicy
}

type hostPolicy struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	nextAllowed time.Time
}

// NewCollyFetcher creates a fetcher from the fetcher configuration section
func NewCollyFetcher(cfg *config.Config) *CollyFetcher {
	delay := cfg.Fetcher.RequestDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	burst := cfg.Fetcher.Parallelism
	if burst <= 0 {
		burst = 2
	}
	retries := cfg.Fetcher.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	timeout := cfg.Fetcher.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &CollyFetcher{
		userAgent:    cfg.Fetcher.UserAgent,
		timeout:      timeout,
		maxRetries:   retries,
		baseDelay:    delay,
		defaultRate:  rate.Every(delay),
		defaultBurst: burst,
		hosts:        make(map[string]*hostPolicy),
	}
}

// FetchPage downloads one page and returns its body together with the
// final URL after redirects. Throttling and server errors are retried,
// anything else fails fast.
func (f *CollyFetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	host := hostKey(target)

	var page *Page
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := f.waitForHost(ctx, host); err != nil {
			return nil, err
		}

		page, lastErr = f.fetchOnce(ctx, target)
		if lastErr == nil {
			return page, nil
		}
		if page != nil && shouldBackoff(page.StatusCode) {
			f.applyBackoff(host, attempt)
			continue
		}
		break
	}

	status := 0
	if page != nil {
		status = page.StatusCode
	}
	if lastErr == nil {
		lastErr = errors.New("page fetch failed")
	}
	return nil, &FetchError{URL: target, Status: status, Err: lastErr}
}

func (f *CollyFetcher) fetchOnce(ctx context.Context, target string) (*Page, error) {
	c := colly.NewCollector(colly.UserAgent(f.userAgent))
	c.IgnoreRobotsTxt = false
	c.SetRequestTimeout(f.timeout)

	page := &Page{URL: target}
	var reqErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html")
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.Body = string(r.Body)
		if r.Request != nil && r.Request.URL != nil {
			page.URL = r.Request.URL.String()
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			page.StatusCode = r.StatusCode
		}
		reqErr = err
	})

	if err := c.Visit(target); err != nil {
		return page, err
	}
	if reqErr != nil {
		return page, reqErr
	}
	if page.StatusCode >= 400 {
		return page, fmt.Errorf("status %d", page.StatusCode)
	}
	if page.StatusCode == 0 {
		page.StatusCode = http.StatusOK
	}
	return page, nil
}

func (f *CollyFetcher) waitForHost(ctx context.Context, host string) error {
	policy := f.hostPolicy(host)
	if err := policy.waitBackoff(ctx); err != nil {
		return err
	}
	return policy.limiter.Wait(ctx)
}

func (f *CollyFetcher) hostPolicy(host string) *hostPolicy {
	f.mu.Lock()
	defer f.mu.Unlock()

	if host == "" {
		host = "default"
	}
	if policy, ok := f.hosts[host]; ok {
		return policy
	}
	policy := &hostPolicy{
		limiter: rate.NewLimiter(f.defaultRate, f.defaultBurst),
	}
	f.hosts[host] = policy
	return policy
}

func (f *CollyFetcher) applyBackoff(host string, attempt int) {
	if attempt < 0 {
		attempt = 0
	}
	policy := f.hostPolicy(host)
	delay := f.baseDelay * time.Duration(1<<attempt)

	policy.mu.Lock()
	next := time.Now().Add(delay)
	if next.After(policy.nextAllowed) {
		policy.nextAllowed = next
	}
	policy.mu.Unlock()
}

func (p *hostPolicy) waitBackoff(ctx context.Context) error {
	for {
		p.mu.Lock()
		next := p.nextAllowed
		p.mu.Unlock()

		now := time.Now()
		if !now.Before(next) {
			return nil
		}
		if err := sleepWithContext(ctx, next.Sub(now)); err != nil {
			return err
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func normalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "default"
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func shouldBackoff(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}
