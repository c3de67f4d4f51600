// Package spotify implements the catalog boundary: a bearer-token HTTP
// client whose only job is the batched artist-genre lookup.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/ewilliams-labs/resonate/internal/core/ports"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// Client is an HTTP client for the Spotify catalog adapter. SetToken may be
// called concurrently with in-flight catalog calls.
type Client struct {
	mu          sync.RWMutex // guards httpClient and hasToken
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
	batchDelay  time.Duration
	hasToken    bool
}

// compile-time interface assertion
var _ ports.CatalogProvider = (*Client)(nil)

// NewClient constructs a catalog client. The client is unusable for catalog
// calls until SetToken installs a bearer token.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxRetries, baseBackoff := getRetryConfig()
	return &Client{
		httpClient:  http.DefaultClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		batchDelay:  defaultBatchDelay,
	}
}

// SetToken installs the bearer token for subsequent catalog calls. Token
// acquisition and refresh happen elsewhere; the adapter only consumes one.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == "" {
		c.httpClient = http.DefaultClient
		c.hasToken = false
		return
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	c.httpClient = oauth2.NewClient(context.Background(), src)
	c.hasToken = true
}

func (c *Client) client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpClient
}

func (c *Client) tokenInstalled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasToken
}
