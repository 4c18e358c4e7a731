// Package http is the production rest.Dispatcher: a pooled net/http
// transport with retries on 5xx, 429 and connection failures.
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// Client dispatches rest requests over HTTP.
type Client struct {
	httpClient *retryablehttp.Client
	logger     rest.Logger
	debug      bool
	userAgent  string
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger rest.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent sent when the request has none.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig sets the transport retry policy. retryMax 0 disables
// retries.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithTLSConfig sets the TLS configuration of the pooled transport.
func WithTLSConfig(config *tls.Config) Option {
	return func(c *Client) {
		transport, ok := c.httpClient.HTTPClient.Transport.(*http.Transport)
		if !ok || transport == nil {
			transport = http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
		} else {
			transport = transport.Clone()
		}

		transport.TLSClientConfig = config
		c.httpClient.HTTPClient.Transport = transport
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// NewClient creates a new HTTP dispatcher. Each request is sent once unless
// WithRetryConfig enables transport retries.
func NewClient(opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		httpClient: retryClient,
		logger:     rest.NopLogger(),
		userAgent:  constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// checkRetry retries connection failures, 429 and 5xx except 501. Client
// errors are never retried.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}

	if resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}

	return false, nil
}

// Dispatch implements rest.Dispatcher. A 2xx answer returns the streaming
// response; other statuses return *rest.HTTPStatusError with the body read.
func (c *Client) Dispatch(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return nil, err
	}

	if c.userAgent != "" && !req.Header.Has(constants.HeaderUserAgent) {
		httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)
	}

	retryReq, err := retryablehttp.FromRequest(httpReq)
	if err != nil {
		return nil, fmt.Errorf("creating retryable request: %w", err)
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method":  req.Method,
			"url":     req.Endpoint.String(),
			"headers": maskHeaders(httpReq.Header),
		})
	}

	start := time.Now()

	resp, err := c.httpClient.Do(retryReq)
	if err != nil {
		return nil, &rest.TransportError{
			Kind:   classify(ctx, err),
			Method: req.Method,
			URL:    req.Endpoint.String(),
			Err:    err,
		}
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":   req.Method,
			"url":      req.Endpoint.String(),
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
		})
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, statusError(req, resp)
	}

	return rest.NewResponse(resp), nil
}

func statusError(req *rest.Request, resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	return &rest.HTTPStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Method:     req.Method,
		URL:        req.Endpoint.String(),
		Header:     resp.Header,
		Body:       body,
	}
}

// classify maps a failed round trip to a transport error kind.
func classify(ctx context.Context, err error) rest.TransportErrorKind {
	switch {
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return rest.TransportCancelled
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return rest.TransportTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return rest.TransportTimeout
	}

	return rest.TransportConnection
}

func maskHeaders(headers http.Header) map[string]string {
	masked := make(map[string]string, len(headers))

	for key, values := range headers {
		if strings.EqualFold(key, constants.HeaderAuthorization) {
			masked[key] = constants.MaskedSecret

			continue
		}

		masked[key] = strings.Join(values, ", ")
	}

	return masked
}
