// Package errs defines the error taxonomy shared across components.
// Validation and lookup errors surface synchronously at submission time;
// chain-interaction errors are classified transient or fatal inside the
// workers (see internal/retry).
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindUnknownNetwork      Kind = "UNKNOWN_NETWORK"
	KindUnsupportedBridge   Kind = "UNSUPPORTED_BRIDGE"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindTemplateNotFound    Kind = "TEMPLATE_NOT_FOUND"
	KindContractNotFound    Kind = "CONTRACT_NOT_FOUND"
	KindDuplicateListing    Kind = "DUPLICATE_LISTING"
	KindExpiredOffer        Kind = "EXPIRED_OFFER"
	KindNotFound            Kind = "NOT_FOUND"
	KindRPCTransient        Kind = "RPC_TRANSIENT"
	KindRPCFatal            Kind = "RPC_FATAL"
)

// Error carries a taxonomy kind alongside the message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validationf is shorthand for the most common rejection path.
func Validationf(format string, args ...any) error {
	return Newf(KindValidation, format, args...)
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
