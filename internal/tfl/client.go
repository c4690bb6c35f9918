// Package tfl fetches the road disruption feed from the TfL unified API.
// The endpoint is a single unauthenticated GET returning a JSON array of
// loosely-structured disruption objects; the schema is not guaranteed, so
// items are decoded as raw maps and normalized downstream.
package tfl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultURL is the all-roads disruption endpoint.
const DefaultURL = "https://api.tfl.gov.uk/Road/all/Disruption"

// Fetch failures are classified so the store can produce a more specific
// user-facing message. All three are equally recoverable via retry.
var (
	// ErrTransport means no response was received (connectivity, DNS).
	ErrTransport = errors.New("transport failure")
	// ErrStatus means a response arrived with a non-2xx status code.
	ErrStatus = errors.New("unexpected status")
	// ErrPayload means the response body was not a JSON array.
	ErrPayload = errors.New("malformed payload")
)

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchDisruptions performs one GET against the feed and returns the raw,
// structurally unverified items. Errors wrap one of the package sentinels.
func (c *Client) FetchDisruptions(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d - %s", ErrStatus, resp.StatusCode, resp.Status)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}

	return items, nil
}
