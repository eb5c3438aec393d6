// Package client talks to the daily task service the way the task page does:
// same-origin requests carrying the session cookie.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// SessionCookie carries the session token on same-origin requests.
const SessionCookie = "daily_session"

// IdempotencyHeader marks a save request so the server can drop duplicates.
const IdempotencyHeader = "Idempotency-Key"

// Options configures a Client.
type Options struct {
	// Token is stored as the session cookie for BaseURL.
	Token string
	// Timeout bounds each request; zero means no timeout.
	Timeout time.Duration
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client wraps http.Client with a cookie jar scoped to one origin.
type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client
}

// New creates a Client for the origin of baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if opts.Token != "" {
		jar.SetCookies(u, []*http.Cookie{{Name: SessionCookie, Value: opts.Token, Path: "/"}})
	}
	return &Client{
		BaseURL: u,
		HTTP:    &http.Client{Jar: jar, Timeout: opts.Timeout, Transport: opts.Transport},
	}, nil
}

// Origin returns scheme://host of the base URL.
func (c *Client) Origin() string {
	return c.BaseURL.Scheme + "://" + c.BaseURL.Host
}

func (c *Client) url(path string) string {
	return c.BaseURL.String() + path
}

// Get issues a GET request. The caller closes the response body.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html, application/json")
	return c.HTTP.Do(req)
}

// Post issues a body-less POST request. The caller closes the response body.
func (c *Client) Post(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Origin", c.Origin())
	return c.HTTP.Do(req)
}

// PostJSON issues a POST request with a JSON body and a fresh idempotency
// key. The caller closes the response body.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := sonic.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.Origin())
	req.Header.Set(IdempotencyHeader, uuid.NewString())
	return c.HTTP.Do(req)
}

// Drain discards and closes a response body so the connection can be reused.
func Drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
