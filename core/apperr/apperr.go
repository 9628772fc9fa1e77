package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies failures by how callers should react to them.
type Kind string

const (
	// KindConfiguration marks missing credentials or disabled sync. Fails before any network call.
	KindConfiguration Kind = "configuration"
	// KindNotFound marks unresolved runners, campaigns or events.
	KindNotFound Kind = "not_found"
	// KindGateway marks upstream provider failures (non-2xx, invalid JSON, timeout).
	KindGateway Kind = "gateway"
	// KindInvalid marks malformed caller input.
	KindInvalid Kind = "invalid"
)

// Error is a classified failure with a message that is safe to show callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrGateway       = &Error{Kind: KindGateway}
	ErrInvalid       = &Error{Kind: KindInvalid}
)

func Configuration(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// Gateway wraps an upstream failure. message is what callers see in production.
func Gateway(message string, err error) error {
	return &Error{Kind: KindGateway, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or "" when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Status maps an error to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindConfiguration, KindInvalid:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindGateway:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Public returns the message to send to callers. Production hides wrapped
// causes and unclassified internals.
func Public(err error, production bool) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if production {
			return e.Message
		}
		return e.Error()
	}
	if production {
		return "internal server error"
	}
	return err.Error()
}

// Respond writes err as a JSON error body with its mapped status code.
func Respond(c *fiber.Ctx, err error, production bool) error {
	return c.Status(Status(err)).JSON(fiber.Map{"error": Public(err, production)})
}
