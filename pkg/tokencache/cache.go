package tokencache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/loginlab/loginlab/pkg/observability"
)

// ErrAuthFailure indicates a machine token could not be obtained from the
// token endpoint. Fatal for the call that needed the token.
var ErrAuthFailure = errors.New("failed to obtain machine token")

// DefaultExpiryMargin is how close to expiry a cached token may get before
// it is considered stale. Covers clock skew between us and the issuer.
const DefaultExpiryMargin = 60 * time.Second

// Source issues client-credentials tokens. *clientcredentials.Config
// satisfies it.
type Source interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// Option configures a Cache
type Option func(*Cache)

// WithExpiryMargin overrides the staleness margin
func WithExpiryMargin(margin time.Duration) Option {
	return func(c *Cache) { c.margin = margin }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics records token refreshes and failures
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// Cache holds at most one live machine token for a single external API.
// The cached token is replaced, never merged, on refresh; callers never
// observe a token within the expiry margin.
type Cache struct {
	api     string
	source  Source
	margin  time.Duration
	now     func() time.Time
	metrics *observability.Metrics

	mu    sync.Mutex
	token *oauth2.Token

	group singleflight.Group
}

// New creates a token cache for the named external API
func New(api string, source Source, opts ...Option) *Cache {
	c := &Cache{
		api:    api,
		source: source,
		margin: DefaultExpiryMargin,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientCredentials creates a token cache backed by an OAuth2
// client-credentials flow. The audience is sent as an endpoint parameter,
// as both Auth0 and FGA issuers require.
func NewClientCredentials(api, tokenURL, clientID, clientSecret, audience string, httpClient *http.Client, opts ...Option) *Cache {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if audience != "" {
		cfg.EndpointParams = map[string][]string{"audience": {audience}}
	}
	return New(api, &clientCredentialsSource{cfg: cfg, httpClient: httpClient}, opts...)
}

// clientCredentialsSource adapts clientcredentials.Config, injecting the
// configured HTTP client into the fetch context.
type clientCredentialsSource struct {
	cfg        *clientcredentials.Config
	httpClient *http.Client
}

func (s *clientCredentialsSource) Token(ctx context.Context) (*oauth2.Token, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	return s.cfg.Token(ctx)
}

// API returns the name of the external API this cache serves
func (c *Cache) API() string {
	return c.api
}

// Token returns a machine token for the API, fetching a fresh one
// synchronously when the cached token is absent or within the expiry
// margin. Concurrent refreshes are collapsed into a single upstream fetch.
func (c *Cache) Token(ctx context.Context) (string, error) {
	if tok := c.cached(); tok != nil {
		return tok.AccessToken, nil
	}

	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		// A racing caller may have refreshed while we waited on the group.
		if tok := c.cached(); tok != nil {
			return tok, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(*oauth2.Token).AccessToken, nil
}

// cached returns the stored token only while it is outside the expiry margin
func (c *Cache) cached() *oauth2.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil || c.token.AccessToken == "" {
		return nil
	}
	if !c.now().Add(c.margin).Before(c.token.Expiry) {
		return nil
	}
	return c.token
}

func (c *Cache) refresh(ctx context.Context) (*oauth2.Token, error) {
	tok, err := c.source.Token(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.TokenFetchFailures.WithLabelValues(c.api).Inc()
		}
		return nil, fmt.Errorf("%w for %s: %v", ErrAuthFailure, c.api, err)
	}
	if c.metrics != nil {
		c.metrics.TokenRefreshesTotal.WithLabelValues(c.api).Inc()
	}

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()

	return tok, nil
}

// Invalidate drops the cached token, forcing the next call to refresh
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}
