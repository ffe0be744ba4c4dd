// Package source polls the external monitoring API.
package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

// API paths.
const (
	PathOverview = "/api/dashboard/overview"
	PathPatients = "/api/patients"
	PathAlerts   = "/api/alerts"
)

// Default client configuration.
const (
	defaultTimeout       = 10 * time.Second
	defaultRetryCount    = 1
	defaultRetryWait     = 500 * time.Millisecond
	defaultRetryMaxWait  = 2 * time.Second
	defaultAlertPageSize = 20
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryCount sets how many times a failed request is retried within one
// poll. The poll timer remains the outer retry.
func WithRetryCount(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// Client fetches snapshots from the monitoring API.
type Client struct {
	http    *resty.Client
	hc      *http.Client
	log     logger.Logger
	timeout time.Duration
	retries int
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		log:     logger.NewNop(),
		timeout: defaultTimeout,
		retries: defaultRetryCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	var rc *resty.Client
	if c.hc != nil {
		rc = resty.NewWithClient(c.hc)
	} else {
		rc = resty.New()
	}
	c.http = rc.
		SetBaseURL(baseURL).
		SetTimeout(c.timeout).
		SetRetryCount(c.retries).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		SetHeader("Accept", "application/json")
	return c
}

// FetchOverview retrieves the dashboard overview.
func (c *Client) FetchOverview(ctx context.Context) (Overview, error) {
	body, err := c.get(ctx, "overview", PathOverview, nil)
	if err != nil {
		return Overview{}, err
	}
	o, err := DecodeOverview(body)
	if err != nil {
		return Overview{}, fmt.Errorf("decode overview: %w", err)
	}
	return o, nil
}

// FetchRoster retrieves the patient roster with device assignments.
func (c *Client) FetchRoster(ctx context.Context) (Roster, error) {
	body, err := c.get(ctx, "roster", PathPatients, nil)
	if err != nil {
		return Roster{}, err
	}
	r, err := DecodeRoster(body)
	if err != nil {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	return r, nil
}

// AlertQuery selects one page of alert history.
type AlertQuery struct {
	Page   int
	Limit  int
	Search string
	Start  time.Time
	End    time.Time
}

// Params renders q as query parameters.
func (q AlertQuery) Params() map[string]string {
	p := map[string]string{
		"page":  strconv.Itoa(max(q.Page, 1)),
		"limit": strconv.Itoa(defaultAlertPageSize),
	}
	if q.Limit > 0 {
		p["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Search != "" {
		p["search"] = q.Search
	}
	if !q.Start.IsZero() {
		p["startDate"] = q.Start.UTC().Format(time.DateOnly)
	}
	if !q.End.IsZero() {
		p["endDate"] = q.End.UTC().Format(time.DateOnly)
	}
	return p
}

// QueryAlerts retrieves one page of alerts.
func (c *Client) QueryAlerts(ctx context.Context, q AlertQuery) (AlertPage, error) {
	body, err := c.get(ctx, "alerts", PathAlerts, q.Params())
	if err != nil {
		return AlertPage{}, err
	}
	pg, err := DecodeAlertPage(body)
	if err != nil {
		return AlertPage{}, fmt.Errorf("decode alerts: %w", err)
	}
	return pg, nil
}

func (c *Client) get(ctx context.Context, kind, path string, params map[string]string) ([]byte, error) {
	start := time.Now()
	req := c.http.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(path)
	metrics.RecordFetchLatency(kind, time.Since(start))
	if err != nil {
		metrics.RecordErrorByComponent("source", "transport")
		c.log.Warn(ctx, "source request failed", logger.String("path", path), logger.Error(err))
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.IsError() {
		metrics.RecordErrorByComponent("source", "http_status")
		c.log.Warn(ctx, "source returned error status",
			logger.String("path", path), logger.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, path, resp.StatusCode())
	}
	return resp.Body(), nil
}
