// Package apperr is the error taxonomy shared by services and controllers.
// Controllers map a Kind to an HTTP status; everything else only creates
// and wraps errors.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindStorage
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error carries a Kind plus the offending field for validation failures.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Field == "" && t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrStorage         = &Error{Kind: KindStorage}
	ErrConflict        = &Error{Kind: KindConflict}
)

func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }

func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func Conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf("object storage %s failed", op), Err: err}
}

// KindOf reports the Kind of err, KindInternal for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
