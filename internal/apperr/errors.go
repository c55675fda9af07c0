// Package apperr defines the error kinds surfaced by the account, chat and data
// services. Every kind is recovered at the operation boundary and turned into a
// user-visible message; none of them is fatal to the process.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindDuplicateKey Kind = "duplicate_key"
	KindNotFound     Kind = "not_found"
	KindProvider     Kind = "provider"
	KindStorage      Kind = "storage"
	KindUnauthorized Kind = "unauthorized"
)

// Error is a typed failure carrying a user-facing message and the optional
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is matching on kind only.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrDuplicateKey = &Error{Kind: KindDuplicateKey}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrProvider     = &Error{Kind: KindProvider}
	ErrStorage      = &Error{Kind: KindStorage}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target carrying its own message
// or cause only matches when those are equal too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Message != "" && t.Message != e.Message {
		return false
	}
	return t.Err == nil || t.Err == e.Err
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func DuplicateKey(msg string) error {
	return &Error{Kind: KindDuplicateKey, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Provider wraps a failure coming from an LLM provider call. An error that is
// already a provider error is returned unchanged.
func Provider(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == KindProvider {
		return err
	}
	return &Error{Kind: KindProvider, Message: "provider request failed", Err: err}
}

// Storage wraps a database failure for the named operation.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
