// Package filters provides request filters: authentication, signing and
// common headers. Every filter replaces the headers it owns, so replaying a
// filter chain leaves the request unchanged.
package filters

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// BasicAuth sets HTTP basic credentials.
func BasicAuth(username, password string) rest.Filter {
	value := "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))

	return rest.FilterFunc("basic-auth", func(_ context.Context, req *rest.Request) error {
		req.Header.Set(constants.HeaderAuthorization, value)

		return nil
	})
}

// TokenSource provides bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// BearerToken adds authentication headers.
func BearerToken(source TokenSource) rest.Filter {
	return rest.FilterFunc("bearer-token", func(ctx context.Context, req *rest.Request) error {
		token, err := source.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get authentication token: %w", err)
		}

		req.Header.Set(constants.HeaderAuthorization, "Bearer "+token)

		return nil
	})
}

// Headers adds custom headers to requests.
func Headers(headers map[string]string) rest.Filter {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return rest.FilterFunc("headers", func(_ context.Context, req *rest.Request) error {
		for _, key := range keys {
			req.Header.Set(key, headers[key])
		}

		return nil
	})
}

// UserAgent sets the User-Agent header.
func UserAgent(userAgent string) rest.Filter {
	return rest.FilterFunc("user-agent", func(_ context.Context, req *rest.Request) error {
		req.Header.Set(constants.HeaderUserAgent, userAgent)

		return nil
	})
}

// RequestID tags the request with a correlation ID. An existing ID is kept,
// so retries share one ID.
func RequestID() rest.Filter {
	return rest.FilterFunc("request-id", func(_ context.Context, req *rest.Request) error {
		if req.Header.Has(constants.HeaderRequestID) {
			return nil
		}

		req.Header.Set(constants.HeaderRequestID, uuid.NewString())

		return nil
	})
}
