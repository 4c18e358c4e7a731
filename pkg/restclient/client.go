package restclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/fivetwenty-io/restpipe/internal/auth"
	"github.com/fivetwenty-io/restpipe/internal/constants"
	resthttp "github.com/fivetwenty-io/restpipe/internal/http"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/breaker"
	"github.com/fivetwenty-io/restpipe/pkg/rest/cache"
	"github.com/fivetwenty-io/restpipe/pkg/rest/filters"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired   = errors.New("config is required")
	ErrEndpointRequired = errors.New("API endpoint is required")
)

// Client is a configured invoker together with the resources it owns.
type Client struct {
	invoker *rest.Invoker
	cache   cache.Cache
	caching *cache.Dispatcher
	logger  rest.Logger
}

// New creates a client from config.
func New(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	endpoint, err := normalizeEndpoint(config.Endpoint)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = rest.NopLogger()
	}

	client := &Client{logger: logger}

	dispatcher := config.Dispatcher
	if dispatcher == nil {
		transport, err := newTransport(config, logger)
		if err != nil {
			return nil, err
		}

		dispatcher = transport
	}

	if config.CircuitBreaker != nil {
		dispatcher = breaker.NewDispatcher(dispatcher, config.CircuitBreaker, breaker.WithLogger(logger))
	}

	if config.Cache != nil && config.Cache.Type != cache.TypeNone {
		backend, err := cache.NewFromConfig(config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating response cache: %w", err)
		}

		client.cache = backend
		client.caching = cache.NewDispatcher(dispatcher, backend, cache.WithLogger(logger))
		dispatcher = client.caching
	}

	metrics := rest.NewMetricsCollector()
	if config.OnMetrics != nil {
		metrics.SetOnChange(config.OnMetrics)
	}

	maxConcurrency := config.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = constants.DefaultConcurrencyLimit
	}

	maxRetries := config.MaxFallbackRetries
	if maxRetries == 0 {
		maxRetries = constants.DefaultFallbackRetries
	}

	opts := []rest.InvokerOption{
		rest.WithFilters(clientFilters(config)...),
		rest.WithExecutor(rest.NewBoundedExecutor(maxConcurrency)),
		rest.WithLogger(logger),
		rest.WithMetrics(metrics),
		rest.WithMaxFallbackRetries(maxRetries),
	}

	if config.Registry != nil {
		opts = append(opts, rest.WithRegistry(config.Registry))
	}

	client.invoker = rest.NewInvoker(endpoint, dispatcher, opts...)

	logger.Debug("Client created", map[string]interface{}{
		"endpoint": endpoint.String(),
		"cached":   client.cache != nil,
	})

	return client, nil
}

// NewWithEndpoint creates a client with just an API endpoint (no auth).
func NewWithEndpoint(ctx context.Context, endpoint string) (*Client, error) {
	return New(ctx, &Config{
		Endpoint: endpoint,
	})
}

// NewWithToken creates a client with an API endpoint and access token.
func NewWithToken(ctx context.Context, endpoint, token string) (*Client, error) {
	return New(ctx, &Config{
		Endpoint:    endpoint,
		AccessToken: token,
	})
}

// NewWithPassword creates a client using Basic authentication.
func NewWithPassword(ctx context.Context, endpoint, username, password string) (*Client, error) {
	return New(ctx, &Config{
		Endpoint: endpoint,
		Username: username,
		Password: password,
	})
}

// Invoker returns the configured invoker.
func (c *Client) Invoker() *rest.Invoker {
	return c.invoker
}

// Metrics returns per-descriptor call metrics.
func (c *Client) Metrics() *rest.MetricsCollector {
	return c.invoker.Metrics()
}

// Cache returns the response cache, or nil when caching is disabled.
func (c *Client) Cache() cache.Cache {
	return c.cache
}

// Request synthesizes, binds and filters a call without dispatching it.
func (c *Client) Request(ctx context.Context, d *rest.Descriptor, args rest.Args) (*rest.Request, error) {
	return c.invoker.Request(ctx, d, args)
}

// Call invokes d and returns the untyped result.
func (c *Client) Call(ctx context.Context, d *rest.Descriptor, args rest.Args) (interface{}, error) {
	return c.invoker.Call(ctx, d, args)
}

// Invalidate drops the cached response of a call.
func (c *Client) Invalidate(ctx context.Context, d *rest.Descriptor, args rest.Args) error {
	if c.caching == nil {
		return nil
	}

	req, err := c.invoker.Request(ctx, d, args)
	if err != nil {
		return err
	}

	return c.caching.Invalidate(ctx, req)
}

// Close releases the connections held by the cache backend.
func (c *Client) Close() error {
	if closer, ok := c.cache.(interface{ Close() }); ok {
		closer.Close()
	}

	return nil
}

// Invoke is rest.Invoke on the client's invoker.
func Invoke[T any](ctx context.Context, c *Client, d *rest.Descriptor, args rest.Args) (T, error) {
	return rest.Invoke[T](ctx, c.invoker, d, args)
}

// InvokeAsync is rest.InvokeAsync on the client's invoker.
func InvokeAsync[T any](ctx context.Context, c *Client, d *rest.Descriptor, args rest.Args) *rest.Pending[T] {
	return rest.InvokeAsync[T](ctx, c.invoker, d, args)
}

func normalizeEndpoint(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, ErrEndpointRequired
	}

	endpoint := strings.TrimSuffix(raw, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing API endpoint: %w", err)
	}

	return parsed, nil
}

// isDevelopmentEnvironment checks if we're in a development environment.
func isDevelopmentEnvironment() bool {
	devMode := os.Getenv("RESTPIPE_DEV_MODE")

	return devMode == "true" || devMode == "1"
}

func newTransport(config *Config, logger rest.Logger) (*resthttp.Client, error) {
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}

	opts := []resthttp.Option{
		resthttp.WithLogger(logger),
		resthttp.WithDebug(config.Debug),
		resthttp.WithUserAgent(userAgent),
	}

	if config.HTTPTimeout > 0 {
		opts = append(opts, resthttp.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		waitMin := config.RetryWaitMin
		if waitMin <= 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		waitMax := config.RetryWaitMax
		if waitMax <= 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		opts = append(opts, resthttp.WithRetryConfig(config.RetryMax, waitMin, waitMax))
	}

	if config.SkipTLSVerify {
		if !isDevelopmentEnvironment() {
			return nil, constants.ErrSkipTLSOnlyInDev
		}

		opts = append(opts, resthttp.WithTLSConfig(&tls.Config{InsecureSkipVerify: true})) // #nosec G402 -- Protected by development environment check above
	}

	return resthttp.NewClient(opts...), nil
}

// clientFilters returns the filters applied to every request, the
// Authorization filter first.
func clientFilters(config *Config) []rest.Filter {
	var chain []rest.Filter

	switch {
	case config.TokenSource != nil:
		chain = append(chain, filters.BearerToken(config.TokenSource))
	case config.TokenURL != "":
		chain = append(chain, filters.BearerToken(auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Username:     config.Username,
			Password:     config.Password,
			RefreshToken: config.RefreshToken,
			AccessToken:  config.AccessToken,
			Scopes:       config.Scopes,
		})))
	case config.AccessToken != "":
		chain = append(chain, filters.BearerToken(filters.StaticToken(config.AccessToken)))
	case config.Username != "" && config.Password != "":
		chain = append(chain, filters.BasicAuth(config.Username, config.Password))
	case config.Signer != nil:
		chain = append(chain, filters.Signature(config.Signer))
	case config.HMACIdentity != "" && config.HMACSecret != "":
		chain = append(chain, filters.Signature(filters.HMACSigner{
			Identity: config.HMACIdentity,
			Secret:   []byte(config.HMACSecret),
		}))
	}

	if len(config.Headers) > 0 {
		chain = append(chain, filters.Headers(config.Headers))
	}

	chain = append(chain, filters.RequestID())

	return append(chain, config.Filters...)
}
