// Package httpclient provides the single HTTP client shared by every
// source adapter and webhook dispatch, grounded on the teacher's
// internal/httpclient but generalized with a minimum TLS version, a fixed
// User-Agent, bounded redirects, and a per-host rate limiter (the rate
// limiter itself is grounded on the colly/x/time-rate pattern seen in the
// retrieval pack's standalone job-scraper reference, since the teacher has
// none of its own).
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobsentinel/jobsentinel/internal/common"
)

// ErrTooManyRedirects is returned when a request chains through more than
// the configured redirect limit.
var ErrTooManyRedirects = fmt.Errorf("stopped after too many redirects")

// Client wraps http.Client with a fixed User-Agent header and a per-host
// limiter, so every adapter gets polite pacing for free.
type Client struct {
	http      *http.Client
	userAgent string
	limiters  *hostLimiters
}

// New builds a Client from HTTPClientConfig.
func New(cfg common.HTTPClientConfig) *Client {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:    20,
		IdleConnTimeout: 90 * time.Second,
	}

	httpClient := &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 0.5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		http:      httpClient,
		userAgent: cfg.UserAgent,
		limiters:  newHostLimiters(rate.Limit(rps), burst),
	}
}

// Do sends req after waiting on this host's rate limiter, stamping the
// fixed User-Agent if the caller did not already set one.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	limiter := c.limiters.forHost(req.URL.Hostname())
	if err := limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	return c.http.Do(req)
}

// Raw exposes the underlying *http.Client for callers (e.g. webhook
// dispatch) that build requests entirely themselves but still want the
// shared transport and timeout.
func (c *Client) Raw() *http.Client {
	return c.http
}

// hostLimiters lazily creates one rate.Limiter per hostname, so a burst of
// requests to one job board never starves polling of another.
type hostLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	byHost map[string]*rate.Limiter
}

func newHostLimiters(limit rate.Limit, burst int) *hostLimiters {
	return &hostLimiters{limit: limit, burst: burst, byHost: make(map[string]*rate.Limiter)}
}

func (h *hostLimiters) forHost(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.byHost[host]; ok {
		return l
	}
	l := rate.NewLimiter(h.limit, h.burst)
	h.byHost[host] = l
	return l
}
