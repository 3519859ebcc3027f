// Package apperrors defines the typed failures returned by the service layer.
// Controllers translate a Kind into an HTTP status; everything else is opaque.
package apperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindNotFound                Kind = "not_found"
	KindInvalidAmount           Kind = "invalid_amount"
	KindOverpaymentRejected     Kind = "overpayment_rejected"
	KindInvalidStatusTransition Kind = "invalid_status_transition"
	KindValidationFailed        Kind = "validation_failed"
	KindConflict                Kind = "conflict"
	KindForbidden               Kind = "forbidden"
	KindUnauthorized            Kind = "unauthorized"
	KindInternal                Kind = "internal"
)

// Error carries a Kind plus a user-facing message. Remaining is only meaningful
// for KindOverpaymentRejected and holds the balance the caller may still pay.
type Error struct {
	Kind      Kind
	Message   string
	Remaining *float64
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource string) *Error {
	return New(KindNotFound, "%s not found", resource)
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidationFailed, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(KindForbidden, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

func InvalidAmount(format string, args ...interface{}) *Error {
	return New(KindInvalidAmount, format, args...)
}

func InvalidStatus(format string, args ...interface{}) *Error {
	return New(KindInvalidStatusTransition, format, args...)
}

// Overpayment reports a payment that would take amountPaid above amount.
func Overpayment(remaining float64) *Error {
	r := remaining
	return &Error{
		Kind:      KindOverpaymentRejected,
		Message:   fmt.Sprintf("Payment amount exceeds remaining balance of %.2f", remaining),
		Remaining: &r,
	}
}

// Internal wraps an unexpected failure (store, driver) keeping the cause for logs.
func Internal(err error, msg string) error {
	return errors.Wrap(&Error{Kind: KindInternal, Message: msg}, err.Error())
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return KindInternal
}

// As extracts the *Error from err's chain.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
