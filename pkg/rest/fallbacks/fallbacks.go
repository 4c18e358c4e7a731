// Package fallbacks provides the fallback policies that decide what a failed
// dispatch turns into.
package fallbacks

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// onStatus substitutes value when the failure carries one of codes and
// propagates everything else unchanged.
func onStatus(value interface{}, codes ...int) rest.Fallback {
	return rest.FallbackFunc(func(err error) rest.Outcome {
		if slices.Contains(codes, rest.StatusCode(err)) {
			return rest.Substitute(value)
		}

		return rest.Propagate(err)
	})
}

// NullOnNotFound returns nil for a missing single item.
func NullOnNotFound() rest.Fallback {
	return onStatus(nil, http.StatusNotFound)
}

// VoidOnNotFound treats deleting a missing resource as success.
func VoidOnNotFound() rest.Fallback {
	return onStatus(nil, http.StatusNotFound)
}

// EmptyOnNotFound returns an empty collection for a missing list.
func EmptyOnNotFound() rest.Fallback {
	return onStatus(rest.Empty, http.StatusNotFound)
}

// FalseOnNotFoundOr422 returns false when the target is missing or the
// server refused the entity.
func FalseOnNotFoundOr422() rest.Fallback {
	return onStatus(false, http.StatusNotFound, http.StatusUnprocessableEntity)
}

// Propagate returns every failure unchanged.
func Propagate() rest.Fallback {
	return rest.FallbackFunc(rest.Propagate)
}

// TranslateStatus maps status codes to sentinel errors. The result wraps
// both the sentinel and the original status error. Unlisted failures
// propagate unchanged.
func TranslateStatus(mapping map[int]error) rest.Fallback {
	return rest.FallbackFunc(func(err error) rest.Outcome {
		sentinel, ok := mapping[rest.StatusCode(err)]
		if !ok {
			return rest.Propagate(err)
		}

		return rest.Propagate(fmt.Errorf("%w: %w", sentinel, err))
	})
}

// DefaultTranslations maps common client errors to the rest sentinels.
func DefaultTranslations() map[int]error {
	return map[int]error{
		http.StatusUnauthorized:          rest.ErrNotAuthorized,
		http.StatusForbidden:             rest.ErrNotAuthorized,
		http.StatusNotFound:              rest.ErrResourceNotFound,
		http.StatusConflict:              rest.ErrConflict,
		http.StatusRequestEntityTooLarge: rest.ErrInsufficientQuota,
	}
}

// RetryOnStatus asks for another attempt when the failure carries one of
// codes. The invoker bounds the number of attempts.
func RetryOnStatus(codes ...int) rest.Fallback {
	return rest.FallbackFunc(func(err error) rest.Outcome {
		if slices.Contains(codes, rest.StatusCode(err)) {
			return rest.Retry()
		}

		return rest.Propagate(err)
	})
}

// RetryOnTransport asks for another attempt after connection failures and
// timeouts. Cancellation is never retried.
func RetryOnTransport() rest.Fallback {
	return rest.FallbackFunc(func(err error) rest.Outcome {
		var transportErr *rest.TransportError
		if errors.As(err, &transportErr) && transportErr.Kind != rest.TransportCancelled {
			return rest.Retry()
		}

		return rest.Propagate(err)
	})
}
