// Package apperr defines the error taxonomy shared across JobSentinel's
// components. Callers branch on Kind rather than on concrete Go types, the
// same way the core storage layer branches on errors.Is against sentinel
// values.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories a caller can act on.
type Kind string

const (
	KindConfigInvalid    Kind = "ConfigInvalid"
	KindSourceFailed     Kind = "SourceFailed"
	KindStoreError       Kind = "StoreError"
	KindInvalidWebhook   Kind = "InvalidWebhook"
	KindCredentialError  Kind = "CredentialError"
	KindNotFound         Kind = "NotFound"
	KindCancelled        Kind = "Cancelled"
	KindInternal         Kind = "Internal"
)

// Error is the concrete error type carried through the pipeline. Fields is
// free-form structured context for logging; it is never used to carry
// secrets.
type Error struct {
	Kind   Kind
	Msg    string
	Cause  error
	Fields map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// WithField attaches a structured field and returns the same error for
// chaining.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// KindOf extracts the Kind of err, or KindInternal if err is not (or does
// not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SourceFailed builds the SourceFailed error shape named in spec §4.4:
// SourceFailed{name, cause}.
func SourceFailed(name string, cause error) *Error {
	return Wrap(KindSourceFailed, fmt.Sprintf("source %q failed", name), cause).WithField("source", name)
}
