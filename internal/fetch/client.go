// Package fetch is the outbound HTTP layer shared by every provider.
//
// A Client bounds each request by a connect timeout and a total timeout,
// rate-limits outbound calls, retries transient server failures, and maps
// every failure onto the provider error taxonomy in package feeds.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/abelbrown/feedterm/internal/feeds"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultTimeout        = 30 * time.Second
	DefaultUserAgent      = "feedterm/0.1 (+https://github.com/abelbrown/feedterm)"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20
)

// Options configures a Client. Zero values pick defaults.
type Options struct {
	ConnectTimeout time.Duration
	// Timeout bounds each attempt, not the whole Get: with retries one
	// call can take len(Backoffs)+1 timeouts plus the backoff delays.
	Timeout   time.Duration
	UserAgent string

	// Rate is the sustained request rate; zero means unlimited.
	Rate  rate.Limit
	Burst int

	// Backoffs lists the delays between retries of 5xx and transport
	// failures. Its length is the retry count. Nil means no retries.
	Backoffs []time.Duration

	MaxBodyBytes int64
}

// Client performs GET requests on behalf of one provider.
type Client struct {
	provider string
	http     *http.Client
	limiter  *rate.Limiter
	ua       string
	backoffs []time.Duration
	maxBody  int64
}

// New creates a client whose errors are attributed to provider.
func New(provider string, opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = maxBodyBytes
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.Rate, burst)
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		provider: provider,
		http:     &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:  limiter,
		ua:       opts.UserAgent,
		backoffs: opts.Backoffs,
		maxBody:  opts.MaxBodyBytes,
	}
}

// Provider returns the provider id errors are attributed to.
func (c *Client) Provider() string {
	return c.provider
}

// Get fetches url and returns the body of a 2xx response. Options.Timeout
// applies per attempt; bound the total with ctx.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, feeds.Wrap(feeds.KindNetwork, c.provider, fmt.Errorf("rate limiter: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.backoffs); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, feeds.Wrap(feeds.KindNetwork, c.provider, ctx.Err())
			case <-time.After(c.backoffs[attempt-1]):
			}
		}

		body, retry, err := c.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// do performs one attempt. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, url string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, feeds.Wrap(feeds.KindOther, c.provider, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.ua)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, feeds.Wrap(feeds.KindNetwork, c.provider, describeTransportError(err))
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, true, feeds.Wrap(feeds.KindNetwork, c.provider, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, false, nil
	}
	return nil, resp.StatusCode >= 500, StatusError(c.provider, resp.StatusCode)
}

// StatusError maps a non-2xx HTTP status onto the provider error taxonomy.
func StatusError(provider string, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return feeds.Errorf(feeds.KindAuth, provider, "HTTP %d %s", status, http.StatusText(status))
	case status == http.StatusTooManyRequests:
		return feeds.Errorf(feeds.KindRateLimit, provider, "HTTP %d %s", status, http.StatusText(status))
	default:
		return feeds.Errorf(feeds.KindNetwork, provider, "HTTP %d %s", status, http.StatusText(status))
	}
}

func describeTransportError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("timeout: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout: %w", err)
	}
	return err
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return feeds.Wrap(feeds.KindParse, c.provider, fmt.Errorf("decode JSON: %w", err))
	}
	return nil
}

// GetFeed fetches url and parses it as RSS, Atom or JSON Feed.
func (c *Client) GetFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	// gofeed parsers keep per-parse state; one per call.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, feeds.Wrap(feeds.KindParse, c.provider, fmt.Errorf("parse feed: %w", err))
	}
	return feed, nil
}
