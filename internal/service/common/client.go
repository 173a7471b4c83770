//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/nvim-installer/internal/config"
	"github.com/oshokin/nvim-installer/internal/version"
)

// Client downloads release artifacts over HTTP(S).
type Client struct {
	// http performs the requests; redirects are followed by its default policy.
	http *http.Client
	// timeout bounds a whole request including the body transfer.
	timeout time.Duration
	// userAgent is sent with every request.
	userAgent string
}

// Option configures client behaviour.
type Option func(*Client)

// WithTimeout sets the overall timeout of a download.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying transport, e.g. with an httptest TLS client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

var (
	// ErrBadHTTPStatus is returned for responses outside the 2xx range.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// errURLRequired is returned when no URL is given.
	errURLRequired = errors.New("url must be provided")
)

// NewClient builds a Client with the default timeout and user agent.
func NewClient(opts ...Option) *Client {
	client := &Client{
		http:      http.DefaultClient,
		timeout:   config.DefaultTimeout,
		userAgent: version.UserAgent(),
	}

	for _, opt := range opts {
		opt(client)
	}

	// Never mutate the shared client; the timeout lives on a copy.
	httpClient := *client.http
	httpClient.Timeout = client.timeout
	client.http = &httpClient

	return client
}

// Download fetches rawURL and returns the full response body.
// Any status outside 2xx, transport failure or interrupted body is an error.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, errURLRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	response, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s, %s: %w", rawURL, response.Status, ErrBadHTTPStatus)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if response.ContentLength >= 0 && int64(len(data)) != response.ContentLength {
		return nil, fmt.Errorf("read response body: got %d of %d bytes: %w",
			len(data), response.ContentLength, io.ErrUnexpectedEOF)
	}

	return data, nil
}
