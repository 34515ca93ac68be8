package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind is the closed failure taxonomy for venue calls. Classification is
// the single place retry decisions are made: only Transient is retryable.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindAuthentication
	KindValidation
	KindInsufficientFunds
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unknown"
	}
}

// Error wraps a raw venue failure with its classified kind and the
// operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exchange: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("exchange: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap builds a classified Error.
func wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Classify maps any error to its failure kind. Unwrapped network timeouts
// and cancellation-by-deadline count as transient; everything the client
// did not classify itself is unknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	return KindUnknown
}

// Retryable reports whether the runner may retry the failed call.
func Retryable(err error) bool {
	return Classify(err) == KindTransient
}

// kindFromStatus maps an HTTP response code to a failure kind.
// 429 and 5xx are transient; 401/403 are credential failures; other 4xx
// are validation failures unless the body says otherwise.
func kindFromStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindTransient
	case code >= 500:
		return KindTransient
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuthentication
	case code >= 400:
		return KindValidation
	default:
		return KindUnknown
	}
}
