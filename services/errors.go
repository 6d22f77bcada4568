package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the settlement core can return.
// Callers branch on the kind, never on message text.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindValidationFailed  ErrorKind = "validation_failed"
	KindKycRequired       ErrorKind = "kyc_required"
	KindPayoutsBlocked    ErrorKind = "payouts_blocked"
	KindRateLimited       ErrorKind = "rate_limited"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindBelowMinimum      ErrorKind = "below_minimum"
	KindExternalGateway   ErrorKind = "external_gateway_error"

	// KindReconciliationRequired marks the one failure that must never be
	// retried blindly: a payout was debited, the gateway call failed, and
	// the compensating credit could not be written either.
	KindReconciliationRequired ErrorKind = "reconciliation_required"
)

// Error carries a kind plus a message safe to show callers. The wrapped
// cause keeps gateway and database internals out of user-facing output.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a bare kinded error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf builds a kinded error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and caller-safe message to an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
