// Package apperr holds the error taxonomy shared by the orchestrator and the
// HTTP layer. Leaf packages return plain wrapped errors; the orchestrator
// classifies them into one of these kinds before they reach a transport.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindNotFound
	KindUnauthorized
	KindQuotaExceeded
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindUpstream:
		return "upstream_failure"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code reported for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInvalid:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindQuotaExceeded:
		return fiber.StatusForbidden
	case KindUpstream:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Error carries a client-safe message and the originating cause.
type Error struct {
	Kind    Kind
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

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Invalid(message string) *Error { return New(KindInvalid, message, nil) }

func NotFound(message string) *Error { return New(KindNotFound, message, nil) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message, nil) }

func QuotaExceeded(message string) *Error { return New(KindQuotaExceeded, message, nil) }

func Upstream(message string, cause error) *Error { return New(KindUpstream, message, cause) }

func Internal(message string, cause error) *Error { return New(KindInternal, message, cause) }

// KindOf reports the kind of err; errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err belongs to the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message safe to show to clients.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
