// Package apiclient talks to the marketplace backend API. Every failure is
// normalized into a *domain.APIError and a 401 response triggers the
// unauthorized hook where it is detected.
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
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/marketlink/marketplace-web/internal/api/metrics"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

const (
	defaultTimeout    = 10 * time.Second
	maxErrorBodyBytes = 64 << 10
)

// Config captures the backend connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outbound requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Client    *http.Client
}

// UnauthorizedFunc runs when the backend rejects the caller's credentials.
type UnauthorizedFunc func(ctx context.Context)

// Client implements ports.APIClient over HTTP/JSON.
type Client struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	onUnauthorized atomic.Pointer[UnauthorizedFunc]
}

var _ ports.APIClient = (*Client)(nil)

// NewClient builds a backend client. BaseURL must be an absolute http(s) URL.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute http(s)", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		base:   base,
		client: hc,
		log:    log,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
			if burst < 1 {
				burst = 1
			}
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// SetUnauthorizedHandler installs the hook run on every 401 response.
func (c *Client) SetUnauthorizedHandler(fn UnauthorizedFunc) {
	if fn == nil {
		c.onUnauthorized.Store(nil)
		return
	}
	c.onUnauthorized.Store(&fn)
}

// Do sends req and decodes a successful JSON response into out (when non-nil).
func (c *Client) Do(ctx context.Context, req ports.APIRequest, out any) error {
	start := time.Now()
	err := c.do(ctx, req, out)

	metrics.APIRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	metrics.APIRequestsTotal.WithLabelValues(outcome).Inc()

	if domain.IsAuthError(err) {
		if fn := c.onUnauthorized.Load(); fn != nil {
			(*fn)(ctx)
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, req ports.APIRequest, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &domain.APIError{Kind: domain.KindNetwork, Message: "request cancelled", Cause: err}
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return &domain.APIError{Kind: domain.KindUnknown, Message: "build request", Cause: err}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("backend unreachable")
		return &domain.APIError{Kind: domain.KindNetwork, Message: "backend unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &domain.APIError{
			Kind:    domain.KindUnknown,
			Status:  resp.StatusCode,
			Message: "decode response",
			Cause:   err,
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req ports.APIRequest) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	// req.Path is already escaped; setting RawPath keeps it from being
	// escaped a second time.
	u := *c.base
	u.RawPath = c.base.EscapedPath() + "/" + strings.TrimLeft(req.Path, "/")
	p, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, fmt.Errorf("request path %q: %w", req.Path, err)
	}
	u.Path = p
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	return httpReq, nil
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, ports.APIRequest{Method: http.MethodGet, Path: "/health"}, nil)
}
