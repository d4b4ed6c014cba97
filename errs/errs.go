package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Store-level sentinels. Repositories wrap these with %w; services translate them.
var (
	ErrNoDocument        = errors.New("document not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrStale             = errors.New("document changed concurrently")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrLocked            = errors.New("resource is locked")
)

// Kind is the stable error category reported to callers.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status code handlers respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a categorised, user-presentable failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }
func Conflict(format string, args ...any) *Error   { return newf(KindConflict, format, args...) }
func NotFound(format string, args ...any) *Error   { return newf(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) *Error  { return newf(KindForbidden, format, args...) }
func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

// Wrap attaches a cause to a categorised error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// KindOf classifies any error. Bare store sentinels are mapped to their natural
// category so a repository error that escapes a service is still reported sensibly.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNoDocument):
		return KindNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrStale), errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrLocked):
		return KindConflict
	}
	return KindInternal
}

// Message returns the human-readable reason for err. Internal failures get a
// generic text so store details never reach the client.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindInternal {
			return "internal error"
		}
		return e.Msg
	}
	switch KindOf(err) {
	case KindNotFound:
		return "resource not found"
	case KindConflict:
		return err.Error()
	}
	return "internal error"
}
