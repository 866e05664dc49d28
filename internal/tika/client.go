// Package tika talks to Apache Tika servers over their /rmeta endpoint.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
	"github.com/JakeFAU/tika-extractor/internal/metrics"
)

// Content types understood by the Tika parsers this tool drives.
const (
	ContentTypeText     = "text/plain"
	ContentTypeGeoTopic = "application/geotopic"
)

// DefaultRequestTimeout bounds a single annotation call end to end.
const DefaultRequestTimeout = 600 * time.Second

const rmetaPath = "/rmeta"

// Waiter throttles outgoing requests. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, target string) (time.Duration, error)
}

// PoolConfig tunes the shared HTTP transport.
type PoolConfig struct {
	Timeout         time.Duration
	MaxConnsPerHost int
	// Limiter, when set, is consulted before every request.
	Limiter Waiter
}

// Pool owns the connection pool shared by every Client.
type Pool struct {
	http      *http.Client
	transport *http.Transport
	limiter   Waiter
}

// NewPool builds the shared client. A zero timeout falls back to DefaultRequestTimeout.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: 32,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &Pool{
		http:      &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport: transport,
		limiter:   cfg.Limiter,
	}
}

// Client binds an endpoint and its content type to the pool.
func (p *Pool) Client(endpoint, contentType, pipeline string) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must include scheme and host", endpoint)
	}
	target := *u
	target.Path = rmetaPath
	target.RawPath = ""
	target.RawQuery = ""
	target.Fragment = ""
	return &Client{
		target:      target.String(),
		contentType: contentType,
		pipeline:    pipeline,
		http:        p.http,
		limiter:     p.limiter,
	}, nil
}

// Close releases idle connections held by the pool.
func (p *Pool) Close() {
	p.transport.CloseIdleConnections()
}

// Client issues PUT requests to one Tika endpoint.
type Client struct {
	target      string
	contentType string
	pipeline    string
	http        *http.Client
	limiter     Waiter
}

var _ annotate.Client = (*Client)(nil)

// URL is the request target.
func (c *Client) URL() string {
	return c.target
}

// Call sends payload and returns the status code and body verbatim.
func (c *Client) Call(ctx context.Context, payload []byte) (annotate.Response, error) {
	if c.limiter != nil {
		waited, err := c.limiter.Wait(ctx, c.target)
		metrics.ObserveRateLimitDelay(c.pipeline, waited)
		if err != nil {
			return annotate.Response{}, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.target, bytes.NewReader(payload))
	if err != nil {
		return annotate.Response{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", c.contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveRequest(c.pipeline, 0, time.Since(start))
		return annotate.Response{}, fmt.Errorf("do request: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	metrics.ObserveRequest(c.pipeline, resp.StatusCode, time.Since(start))
	if readErr != nil {
		return annotate.Response{}, fmt.Errorf("read response body: %w", readErr)
	}
	if closeErr != nil {
		return annotate.Response{}, fmt.Errorf("close response body: %w", closeErr)
	}
	return annotate.Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
