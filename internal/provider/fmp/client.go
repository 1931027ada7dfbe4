package fmp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketquotes/internal/httpx"
)

const baseURL = "https://financialmodelingprep.com/api/v3"

// ErrDisabled is returned by every call when no API key is configured.
var ErrDisabled = errors.New("fmp: api key not configured")

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=fmp_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Financial Modeling Prep v3 API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// apiKey is sent as the apikey query parameter.
	apiKey string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// attempts and backoff control retries of transient failures.
	attempts int
	backoff  time.Duration
}

// ClientOption is a configuration option for the FMP client.
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

// NewClient creates a new FMP client. An empty apiKey yields a client whose
// calls all fail with ErrDisabled.
func NewClient(apiKey string, options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: http.DefaultClient,
		header:     http.Header{"Accept": []string{"application/json"}},
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Enabled reports whether the client has an API key.
func (c *Client) Enabled() bool { return c.apiKey != "" }

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	q.Set("apikey", c.apiKey)
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, strings.TrimLeft(path, "/"), q.Encode())
	return httpx.Retry(ctx, c.attempts, c.backoff, func() error {
		return httpx.GetJSON(ctx, c.httpClient, u, c.header, out)
	})
}
