// Package hackernews is a read-only client for the Hacker News Firebase API
// with retries for transient failures.
package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://hacker-news.firebaseio.com"
	DefaultTimeout    = 5 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond

	userAgent = "beststories/1.0"
)

type Client struct {
	http    *http.Client
	baseURL *url.URL
	rawBase string

	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
	limiter    *rate.Limiter // optional; nil means unlimited
	logger     zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithBaseURL(raw string) Option {
	return func(c *Client) { c.rawBase = raw }
}

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets how many extra attempts a transient failure gets and the
// base of the exponential backoff.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(c *Client) { c.maxRetries, c.retryBase = maxRetries, base }
}

// WithRateLimit caps upstream requests per second. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(opts ...Option) (*Client, error) {
	c := &Client{
		http:       http.DefaultClient,
		rawBase:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryBase:  DefaultRetryDelay,
		logger:     zerolog.Nop(),
		sleep:      sleepContext,
	}
	for _, o := range opts {
		o(c)
	}

	u, err := url.Parse(c.rawBase)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", c.rawBase, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", c.rawBase)
	}
	c.baseURL = u
	if c.timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %v", c.timeout)
	}
	if c.maxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative, got %d", c.maxRetries)
	}
	return c, nil
}

// BestStoryIDs returns the upstream best stories ranking, in upstream order.
func (c *Client) BestStoryIDs(ctx context.Context) ([]int, error) {
	var ids []int
	if err := c.getJSON(ctx, "/v0/beststories.json", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Story fetches a single item. A null, deleted or dead item is NotFound.
func (c *Client) Story(ctx context.Context, id int) (Lookup, error) {
	var item *Item
	if err := c.getJSON(ctx, fmt.Sprintf("/v0/item/%d.json", id), &item); err != nil {
		return NotFound, err
	}
	if item == nil || item.Deleted || item.Dead {
		return NotFound, nil
	}
	return Found(*item), nil
}

func (c *Client) newReq(ctx context.Context, p string) (*http.Request, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, p)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// getJSON runs attempts until one succeeds, a non-transient failure occurs,
// the caller's context is done or the retry budget is spent. The delay
// before retry k is retryBase * 2^k.
func (c *Client) getJSON(ctx context.Context, p string, out any) error {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := c.retryBase << attempt
			if err := c.sleep(ctx, delay); err != nil {
				return &UpstreamError{Path: p, Attempts: attempt, Kind: ErrTransient, Err: err}
			}
		}

		status, transient, err := c.attempt(ctx, p, out)
		if err == nil {
			return nil
		}

		ue := &UpstreamError{Path: p, StatusCode: status, Attempts: attempt + 1, Err: err}
		switch {
		case !transient:
			ue.Kind = ErrNonTransient
			return ue
		case ctx.Err() != nil:
			ue.Kind, ue.Err = ErrTransient, fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
			return ue
		case attempt >= c.maxRetries:
			ue.Kind = ErrRetriesExhausted
			return ue
		}

		c.logger.Warn().
			Str("path", p).
			Int("attempt", attempt+1).
			Int("status", status).
			Dur("backoff", c.retryBase<<(attempt+1)).
			Err(err).
			Msg("retrying upstream request")
	}
}

// attempt performs one bounded request and decodes a 200 body into out.
func (c *Client) attempt(ctx context.Context, p string, out any) (status int, transient bool, err error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, true, fmt.Errorf("rate limit: %w", err)
		}
	}

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newReq(actx, p)
	if err != nil {
		return 0, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, true, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, true, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, false, fmt.Errorf("decode body: %w", err)
		}
		return resp.StatusCode, false, nil
	case isTransientStatus(resp.StatusCode):
		return resp.StatusCode, true, fmt.Errorf("%s: %s", resp.Status, snippet(body))
	default:
		return resp.StatusCode, false, fmt.Errorf("%s: %s", resp.Status, snippet(body))
	}
}

func isTransientStatus(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout
}

func snippet(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
