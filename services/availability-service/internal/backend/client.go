package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/md-rashed-zaman/cabook/libs/httpx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNotFound = errors.New("backend: not found")

// StatusError is a non-2xx answer other than 404.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s returned %d: %s", e.Path, e.Code, e.Body)
}

type Options struct {
	BaseURL    string
	BusinessID string
	Timeout    time.Duration
	// Location is the business timezone that timestamped dates are converted to. Defaults to UTC.
	Location *time.Location
	// Transport defaults to an otelhttp-wrapped http.DefaultTransport.
	Transport http.RoundTripper
}

// Client reads settings, appointments and professionals from the booking backend.
type Client struct {
	baseURL    *url.URL
	businessID string
	loc        *time.Location
	http       *http.Client
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	transport := opts.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	return &Client{
		baseURL:    base,
		businessID: opts.BusinessID,
		loc:        opts.Location,
		http:       &http.Client{Timeout: opts.Timeout, Transport: transport},
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := *c.baseURL
	u.Path += path
	if query == nil {
		query = url.Values{}
	}
	if c.businessID != "" {
		query.Set("business_id", c.businessID)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.businessID != "" {
		req.Header.Set("X-Business-Id", c.businessID)
	}
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(httpx.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}
