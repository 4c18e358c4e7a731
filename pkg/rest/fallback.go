package rest

// OutcomeKind is the decision of a fallback policy.
type OutcomeKind int

const (
	// OutcomePropagate returns the error to the caller.
	OutcomePropagate OutcomeKind = iota
	// OutcomeSubstitute returns Value as a successful result.
	OutcomeSubstitute
	// OutcomeRetry dispatches the request again.
	OutcomeRetry
)

// String returns the outcome name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomePropagate:
		return "propagate"
	case OutcomeSubstitute:
		return "substitute"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Outcome is what a Fallback decides for a failed call.
type Outcome struct {
	Kind  OutcomeKind
	Value interface{}
	Err   error
}

// Substitute returns value instead of the failure.
func Substitute(value interface{}) Outcome {
	return Outcome{Kind: OutcomeSubstitute, Value: value}
}

// Propagate returns err to the caller.
func Propagate(err error) Outcome {
	return Outcome{Kind: OutcomePropagate, Err: err}
}

// Retry asks the invoker to dispatch again.
func Retry() Outcome {
	return Outcome{Kind: OutcomeRetry}
}

// Fallback decides what a failed dispatch (HTTPStatusError or
// TransportError) turns into. It is the only component allowed to convert a
// failure into a success value.
type Fallback interface {
	Recover(err error) Outcome
}

// FallbackFunc adapts a function to the Fallback interface.
type FallbackFunc func(err error) Outcome

// Recover implements Fallback.
func (f FallbackFunc) Recover(err error) Outcome {
	return f(err)
}

// propagateFallback is the default policy.
type propagateFallback struct{}

func (propagateFallback) Recover(err error) Outcome {
	return Propagate(err)
}
