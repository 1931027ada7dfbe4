package yahoo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketquotes/internal/httpx"
)

const baseURL = "https://query2.finance.yahoo.com"

// ErrNoResult is returned when Yahoo answers without a usable result.
var ErrNoResult = errors.New("yahoo: empty result")

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Yahoo Finance JSON API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// attempts and backoff control retries of transient failures.
	attempts int
	backoff  time.Duration
	// session supplies the cookie and crumb. Nil disables crumb handling.
	session *Session
}

// ClientOption is a configuration option for the Yahoo client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRetry retries transient failures up to attempts times in total,
// doubling backoff after each try.
func WithRetry(attempts int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts = attempts
		c.backoff = backoff
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithSession sets the session provider used to authorize requests.
func WithSession(session *Session) ClientOption {
	return func(c *Client) {
		c.session = session
	}
}

// NewClient creates a new Yahoo Finance client. Without WithSession the
// client builds a default cookie/crumb session over its HTTP client.
func NewClient(options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{"Accept": []string{"application/json"}},
	}
	for _, option := range options {
		option(client)
	}
	if client.session == nil {
		client.session = NewSession(CrumbFetcher(client.httpClient, client.baseURL))
	}
	return client, nil
}

// get performs an authorized GET. A 401 or 403 invalidates the session and
// the request is retried once with fresh credentials.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	err := c.getRetry(ctx, path, query, out)
	if code := httpx.StatusCode(err); c.session != nil && (code == http.StatusUnauthorized || code == http.StatusForbidden) {
		c.session.Invalidate()
		err = c.getRetry(ctx, path, query, out)
	}
	return err
}

func (c *Client) getRetry(ctx context.Context, path string, query url.Values, out any) error {
	return httpx.Retry(ctx, c.attempts, c.backoff, func() error {
		return c.getOnce(ctx, path, query, out)
	})
}

func (c *Client) getOnce(ctx context.Context, path string, query url.Values, out any) error {
	q := maps.Clone(query)
	if q == nil {
		q = url.Values{}
	}
	header := c.header.Clone()
	if c.session != nil {
		creds, err := c.session.Get(ctx)
		if err != nil {
			return fmt.Errorf("yahoo session: %w", err)
		}
		if creds.Crumb != "" {
			q.Set("crumb", creds.Crumb)
		}
		if creds.Cookie != "" {
			header.Set("Cookie", creds.Cookie)
		}
	}
	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return httpx.GetJSON(ctx, c.httpClient, u, header, out)
}
