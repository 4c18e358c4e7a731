package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry and concurrency limits.
const (
	// DefaultRetryMax is the default number of transport retries. Transport
	// retries are opt-in; fallback policies decide retries otherwise.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between transport retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used for operations that need longer waits.
	ExtendedRetryWaitMax = 30 * time.Second

	// DefaultFallbackRetries bounds retries requested by a fallback policy.
	DefaultFallbackRetries = 2

	// DefaultConcurrencyLimit limits concurrent asynchronous invocations.
	DefaultConcurrencyLimit = 8
)

// Circuit breaker settings.
const (
	// CircuitBreakerThreshold is the failure threshold for circuit breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold is the success threshold for circuit breaker.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is the timeout for circuit breaker.
	CircuitBreakerTimeout = 30 * time.Second
)

// Cache settings.
const (
	// DefaultCacheSize is the default number of entries of the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is used when a cache entry carries no TTL.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultNATSBucket is the default NATS key-value bucket.
	DefaultNATSBucket = "restpipe-responses"

	// DefaultNATSTimeout bounds NATS connection attempts.
	DefaultNATSTimeout = 10 * time.Second
)

// Logging and parsing limits.
const (
	// MaxLoggedBodySize caps how much of a body debug logging prints.
	MaxLoggedBodySize = 1024

	// FragmentSize is the size of a body excerpt reported by parse errors.
	FragmentSize = 64
)

// Media types.
const (
	// MediaTypeJSON is the JSON media type.
	MediaTypeJSON = "application/json"

	// MediaTypeXML is the XML media type.
	MediaTypeXML = "application/xml"

	// MediaTypeText is the plain text media type.
	MediaTypeText = "text/plain"

	// MediaTypeForm is the urlencoded form media type.
	MediaTypeForm = "application/x-www-form-urlencoded"

	// MediaTypeOctetStream is the binary media type.
	MediaTypeOctetStream = "application/octet-stream"
)

// Header names.
const (
	// HeaderAccept is the Accept header.
	HeaderAccept = "Accept"

	// HeaderAuthorization is the Authorization header.
	HeaderAuthorization = "Authorization"

	// HeaderContentType is the Content-Type header.
	HeaderContentType = "Content-Type"

	// HeaderUserAgent is the User-Agent header.
	HeaderUserAgent = "User-Agent"

	// HeaderRequestID is the request correlation header.
	HeaderRequestID = "X-Request-Id"

	// HeaderDate is the Date header used by signing filters.
	HeaderDate = "Date"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "restpipe/1.0"

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// None is used when no value is present.
	None = "none"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)
