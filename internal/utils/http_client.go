package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "go-sync15/1.5"

// HTTPClient is a wrapper around the resty.Client HTTP client.
// It embeds *resty.Client to expose all of its methods directly,
// while allowing extension with additional application-specific behavior.
//
// Example usage:
//
//	client := utils.NewHTTPClient().WithTimeout(30 * time.Second)
//	resp, err := client.R().Get("https://token.example.com/1.0/sync/1.5")
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient creates a new HTTPClient with its own resty.Client and the
// client's User-Agent header set.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{Client: resty.New().SetHeader("User-Agent", userAgent)}
}

// WithTimeout sets the per-request timeout. Non-positive values leave the
// resty default (no timeout) in place.
func (c *HTTPClient) WithTimeout(d time.Duration) *HTTPClient {
	if d > 0 {
		c.SetTimeout(d)
	}
	return c
}
