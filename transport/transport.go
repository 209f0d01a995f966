// Package transport is the shared HTTP plumbing used by provider adapters:
// a go-stealth browser client, JSON/form helpers, per-endpoint rate limiting
// and retries for idempotent calls.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

const defaultRetries = 3

// defaultUserAgent is sent to solver APIs when the caller sets none.
const defaultUserAgent = "go-captcha/1.0"

// apiHeaderOrder keeps header order stable across requests.
var apiHeaderOrder = []string{
	"authorization",
	"content-type",
	"accept",
	"user-agent",
}

// Doer executes one HTTP exchange. *stealth.BrowserClient satisfies it.
type Doer interface {
	DoWithHeaderOrder(method, url string, headers map[string]string, body io.Reader, order []string) ([]byte, map[string]string, int, error)
}

// Options configures a Client.
type Options struct {
	// Proxy is used to reach the solver API itself, not the target site.
	Proxy string

	// Doer overrides the default stealth client.
	Doer Doer

	// RateLimit enables per-endpoint throttling when RequestsPerWindow > 0.
	RateLimit ratelimit.Config

	// Retries is the attempt count for idempotent requests. Default: 3.
	Retries int

	// Backoff spaces retries. Zero value means stealth.DefaultBackoff.
	Backoff stealth.BackoffConfig

	// UserAgent is sent with every API request.
	UserAgent string
}

// Client is safe for concurrent use and shared by all solve calls of a provider.
type Client struct {
	doer    Doer
	limiter *ratelimit.Limiter
	retries int
	backoff func(attempt int) time.Duration
	ua      string
}

// New builds a Client. Without an explicit Doer it creates a go-stealth client.
func New(opts Options) (*Client, error) {
	doer := opts.Doer
	if doer == nil {
		copts := []stealth.ClientOption{stealth.WithHeaderOrder(apiHeaderOrder)}
		if opts.Proxy != "" {
			copts = append(copts, stealth.WithProxy(opts.Proxy))
			slog.Debug("solver api proxy configured", slog.String("proxy", stealth.MaskProxy(opts.Proxy)))
		}
		bc, err := stealth.NewClient(copts...)
		if err != nil {
			return nil, fmt.Errorf("stealth client: %w", err)
		}
		doer = bc
	}
	c := &Client{doer: doer, retries: opts.Retries, backoff: stealth.DefaultBackoff.Duration, ua: opts.UserAgent}
	if opts.Backoff.InitialWait > 0 {
		c.backoff = opts.Backoff.Duration
	}
	if c.retries <= 0 {
		c.retries = defaultRetries
	}
	if c.ua == "" {
		c.ua = defaultUserAgent
	}
	if opts.RateLimit.RequestsPerWindow > 0 {
		c.limiter = ratelimit.NewLimiter(opts.RateLimit)
	}
	return c, nil
}

// Request describes one API call.
type Request struct {
	Method string
	URL    string
	// Endpoint is the rate-limit key, e.g. "createTask".
	Endpoint string
	Headers  map[string]string
	Body     []byte
	// Idempotent requests are retried on transport errors, 429 and 5xx.
	Idempotent bool
}

// Result is a completed HTTP exchange.
type Result struct {
	Status  int
	Body    []byte
	Headers map[string]string
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// Do executes req. Cancellation is checked before every attempt; an attempt
// already on the wire is not interrupted.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	attempts := 1
	if req.Idempotent {
		attempts = c.retries
	}

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			delay := c.backoff(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := c.waitTurn(ctx, req.Endpoint); err != nil {
			return nil, err
		}

		res, err := c.once(req)
		if err != nil {
			slog.Debug("solver api request failed", slog.String("endpoint", req.Endpoint), slog.Int("attempt", attempt+1), slog.Any("error", err))
			lastErr = err
			continue
		}
		if res.Status == 429 {
			if c.limiter != nil {
				c.limiter.MarkRateLimited(req.Endpoint, parseRetryAfter(res.Headers["retry-after"]))
			}
			lastErr = &StatusError{Endpoint: req.Endpoint, Status: res.Status, Body: truncateBytes(res.Body, 200)}
			continue
		}
		if res.Status >= 500 {
			lastErr = &StatusError{Endpoint: req.Endpoint, Status: res.Status, Body: truncateBytes(res.Body, 200)}
			continue
		}
		return res, nil
	}
	if attempts > 1 {
		return nil, fmt.Errorf("%s failed after %d attempts: %w", req.Endpoint, attempts, lastErr)
	}
	return nil, fmt.Errorf("%s: %w", req.Endpoint, lastErr)
}

func (c *Client) once(req Request) (*Result, error) {
	headers := map[string]string{
		"accept":     "*/*",
		"user-agent": c.ua,
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	data, respHdrs, status, err := c.doer.DoWithHeaderOrder(req.Method, req.URL, headers, body, apiHeaderOrder)
	if err != nil {
		return nil, err
	}
	return &Result{Status: status, Body: data, Headers: respHdrs}, nil
}

// waitTurn blocks until the endpoint is allowed by the limiter.
func (c *Client) waitTurn(ctx context.Context, endpoint string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.limiter == nil || endpoint == "" {
		return nil
	}
	for !c.limiter.Allow(endpoint) {
		wait := time.Until(c.limiter.AvailableAt(endpoint))
		if wait <= 0 {
			wait = 50 * time.Millisecond
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// PostJSON sends payload as JSON and decodes a 2xx response into out.
func (c *Client) PostJSON(ctx context.Context, endpoint, rawURL string, payload, out any, idempotent bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.DoJSON(ctx, Request{
		Method:     "POST",
		URL:        rawURL,
		Endpoint:   endpoint,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       body,
		Idempotent: idempotent,
	}, out)
}

// DoJSON executes req and decodes a 2xx JSON response into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	res, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if res.Status < 200 || res.Status > 299 {
		return &StatusError{Endpoint: req.Endpoint, Status: res.Status, Body: truncateBytes(res.Body, 200)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.Endpoint, err)
	}
	return nil
}

// PostForm sends form-encoded values and returns the raw body of a 2xx response.
func (c *Client) PostForm(ctx context.Context, endpoint, rawURL string, form url.Values) ([]byte, error) {
	res, err := c.Do(ctx, Request{
		Method:   "POST",
		URL:      rawURL,
		Endpoint: endpoint,
		Headers:  map[string]string{"content-type": "application/x-www-form-urlencoded"},
		Body:     []byte(form.Encode()),
	})
	if err != nil {
		return nil, err
	}
	return okBody(endpoint, res)
}

// Get issues an idempotent GET and returns the raw body of a 2xx response.
func (c *Client) Get(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	res, err := c.Do(ctx, Request{Method: "GET", URL: rawURL, Endpoint: endpoint, Idempotent: true})
	if err != nil {
		return nil, err
	}
	return okBody(endpoint, res)
}

func okBody(endpoint string, res *Result) ([]byte, error) {
	if res.Status < 200 || res.Status > 299 {
		return nil, &StatusError{Endpoint: endpoint, Status: res.Status, Body: truncateBytes(res.Body, 200)}
	}
	return res.Body, nil
}

// parseRetryAfter parses a Retry-After seconds value. Falls back to 10 seconds.
func parseRetryAfter(v string) time.Time {
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}
	return time.Now().Add(10 * time.Second)
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
