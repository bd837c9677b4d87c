// Package upstream holds the outbound HTTP client the dispatcher forwards
// through. Responses are relayed as-is; upstream error statuses are the
// caller's to see, not this client's to interpret.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the outbound transport collaborator. Safe for concurrent use.
type Client struct {
	http *http.Client
}

// NewClient creates a client with the given request timeout. A zero timeout
// uses the default of 60 seconds.
func NewClient(timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			// Redirects are relayed to the caller, not followed.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// NewClientWith wraps an existing http.Client, for tests.
func NewClientWith(hc *http.Client) *Client {
	return &Client{http: hc}
}

// Do sends the prepared request. The caller owns the response and closes its
// body.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if header != nil {
		req.Header = header.Clone()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}
