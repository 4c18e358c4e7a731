package restclient

import (
	"time"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/breaker"
	"github.com/fivetwenty-io/restpipe/pkg/rest/cache"
	"github.com/fivetwenty-io/restpipe/pkg/rest/filters"
)

// Config represents client configuration for building a Client.
type Config struct {
	// Endpoint is the API root, e.g. "https://api.example.com/v1". New trims
	// a trailing slash and adds "https://" when no scheme is present.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// Authentication options (provide one)
	AccessToken  string `yaml:"access_token"  mapstructure:"access_token"`
	Username     string `yaml:"username"      mapstructure:"username"`
	Password     string `yaml:"password"      mapstructure:"password"`
	HMACIdentity string `yaml:"hmac_identity" mapstructure:"hmac_identity"`
	HMACSecret   string `yaml:"hmac_secret"   mapstructure:"hmac_secret"`

	// OAuth2 token endpoint. When set, tokens are fetched and refreshed with
	// the refresh token, password or client credentials grant.
	TokenURL     string   `yaml:"token_url"     mapstructure:"token_url"`
	ClientID     string   `yaml:"client_id"     mapstructure:"client_id"`
	ClientSecret string   `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken string   `yaml:"refresh_token" mapstructure:"refresh_token"`
	Scopes       []string `yaml:"scopes"        mapstructure:"scopes"`

	// TokenSource supplies Bearer tokens, e.g. from an OAuth2 manager.
	TokenSource filters.TokenSource `yaml:"-" mapstructure:"-"`
	// Signer replaces the HMAC signer built from HMACIdentity and HMACSecret.
	Signer filters.Signer `yaml:"-" mapstructure:"-"`

	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// Filters run after the built-in client filters.
	Filters []rest.Filter `yaml:"-" mapstructure:"-"`
	// Registry resolves InvokeID calls. Defaults to rest.DefaultRegistry().
	Registry *rest.Registry `yaml:"-" mapstructure:"-"`
	// Dispatcher replaces the HTTP transport.
	Dispatcher rest.Dispatcher `yaml:"-" mapstructure:"-"`
	// OnMetrics is called after every invocation with the updated metrics.
	OnMetrics func(method string, metrics rest.Metrics) `yaml:"-" mapstructure:"-"`

	// Optional configurations
	// HTTPTimeout bounds each HTTP attempt. Zero uses the default.
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
	// RetryMax is the number of transport retries for 5xx, 429 and
	// connection errors. Zero or negative sends every request once.
	RetryMax     int           `yaml:"retry_max"      mapstructure:"retry_max"`
	RetryWaitMin time.Duration `yaml:"retry_wait_min" mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max" mapstructure:"retry_wait_max"`
	// MaxFallbackRetries bounds retries requested by fallback policies.
	MaxFallbackRetries int `yaml:"max_fallback_retries" mapstructure:"max_fallback_retries"`
	// MaxConcurrency bounds concurrent asynchronous invocations.
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	// Debug enables request and response logging when a Logger is provided.
	Debug  bool        `yaml:"debug" mapstructure:"debug"`
	Logger rest.Logger `yaml:"-"     mapstructure:"-"`
	// SkipTLSVerify is honored only when RESTPIPE_DEV_MODE is set.
	SkipTLSVerify bool   `yaml:"skip_tls_verify" mapstructure:"skip_tls_verify"`
	UserAgent     string `yaml:"user_agent"      mapstructure:"user_agent"`
	// CircuitBreaker fails requests fast after repeated transport errors or
	// 5xx responses. Nil disables it.
	CircuitBreaker *breaker.Config `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	// Cache enables response caching for descriptors with a cache TTL.
	// Nil disables caching.
	Cache *cache.Config `yaml:"cache" mapstructure:"cache"`
}
