package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"booking-frontend/internal/auth"
)

type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker BreakerConfig
}

// Client talks to the marketplace REST API. Reads go through a circuit
// breaker; booking writes do not, so a submission is never refused by a
// breaker that tripped on unrelated reads.
type Client struct {
	base    *url.URL
	rt      http.RoundTripper
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[*http.Response]
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", cfg.BaseURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		base:    base,
		rt:      otelhttp.NewTransport(http.DefaultTransport),
		timeout: cfg.Timeout,
		log:     log,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](breakerSettings(cfg.Breaker, log))
	return c, nil
}

func breakerSettings(bc BreakerConfig, log *zap.Logger) gobreaker.Settings {
	threshold := bc.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.Settings{
		Name:        "marketplace-api",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// client errors say nothing about the health of the API
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *Error
			return errors.As(err, &apiErr) && apiErr.Status < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
}

func (c *Client) httpClient(cred auth.Credential) *http.Client {
	rt := c.rt
	if cred.Present() {
		rt = &oauth2.Transport{Source: cred.TokenSource(), Base: c.rt}
	}
	return &http.Client{Transport: rt, Timeout: c.timeout}
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// get performs a breaker-guarded read and decodes the JSON answer into out.
func (c *Client) get(ctx context.Context, cred auth.Credential, path string, q url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	hc := c.httpClient(cred)
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := hc.Do(req)
		if err != nil {
			return nil, transportError(ctx, req, err)
		}
		if resp.StatusCode >= 400 {
			defer resp.Body.Close()
			return nil, statusError(req, resp)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w: %w", req.Method, path, ErrUnavailable, err)
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(req, resp, out)
}

// send performs an unguarded write. It is issued exactly once.
func (c *Client) send(ctx context.Context, cred auth.Credential, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient(cred).Do(req)
	if err != nil {
		return transportError(ctx, req, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return statusError(req, resp)
	}
	return decode(req, resp, out)
}

func transportError(ctx context.Context, req *http.Request, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ctxErr)
	}
	return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, ErrUnavailable, err)
}

func statusError(req *http.Request, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &Error{
		Method:  req.Method,
		Path:    req.URL.Path,
		Status:  resp.StatusCode,
		Message: errorMessage(b),
	}
}

// errorMessage pulls {"error": "..."} or {"message": "..."} out of an error
// body and falls back to the raw text.
func errorMessage(b []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(b))
}

func decode(req *http.Request, resp *http.Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// BreakerState exposes the read breaker state for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
