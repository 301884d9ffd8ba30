// Package apperr defines the tagged error type every request failure is
// reported through. The dispatcher maps a Kind to an HTTP status; nothing
// else in the service chooses failure status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindUnknown          Kind = "internal_error"
	KindConfiguration    Kind = "configuration_error"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "access_denied"
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindPaymentFailed    Kind = "payment_failed"
	KindRateLimited      Kind = "rate_limited"
	KindMethodNotAllowed Kind = "method_not_allowed"
)

// DefaultMessage is what clients see when a failure carries no safe message.
const DefaultMessage = "Something went wrong"

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return string(e.Kind) + ": " + e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is exhaustive over Kind; an unrecognised kind is a 500.
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPaymentFailed:
		return http.StatusPaymentRequired
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindConfiguration, KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func Configuration(message string) *Error {
	return New(KindConfiguration, message)
}

func MethodNotAllowed() *Error {
	return New(KindMethodNotAllowed, "method not allowed")
}

func RateLimited() *Error {
	return New(KindRateLimited, "too many requests")
}

// From returns the tagged error in err's chain, or a KindUnknown error
// wrapping err. Unknown errors never expose err's text as their message.
func From(err error) *Error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}
	return &Error{Kind: KindUnknown, Err: err}
}

func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return From(err).Status()
}

func MessageOf(err error) string {
	tagged := From(err)
	if tagged.Kind == KindUnknown || tagged.Message == "" {
		return DefaultMessage
	}
	return tagged.Message
}

func Is(err error, kind Kind) bool {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind == kind
	}
	return kind == KindUnknown && err != nil
}
