// Package apperror defines the error taxonomy shared by the services and the
// JSON error payload written by the HTTP handlers.
package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindInsufficientStock
	KindInvalidTransition
	KindUnauthorized
	KindForbidden
	KindStorageUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindInvalidTransition:
		return "INVALID_TRANSITION"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindStorageUnavailable:
		return "STORAGE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

// Error is a classified failure. Message is safe to show to clients; Err keeps
// the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
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

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

// InvalidFields reports field-level validation failures.
func InvalidFields(message string, details map[string]string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message, Details: details}
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func InsufficientStock(message string) *Error {
	return New(KindInsufficientStock, message)
}

func InvalidTransition(message string) *Error {
	return New(KindInvalidTransition, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Storage wraps a collaborator failure.
func Storage(err error) error {
	return Wrap(KindStorageUnavailable, err, "storage unavailable")
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInsufficientStock, KindInvalidTransition:
		return fiber.StatusConflict
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindStorageUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// CauseKey holds the error behind a 5xx response in the request locals so the
// request logger can record it.
const CauseKey = "apperror.cause"

// Respond writes {error, details?} with the status matching err's kind.
// Internal errors never leak their cause to the client.
func Respond(c *fiber.Ctx, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		c.Locals(CauseKey, err)
		// let fiber's own errors (e.g. 404 from routing helpers) keep their code
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	status := HTTPStatus(e.Kind)
	if status >= fiber.StatusInternalServerError {
		c.Locals(CauseKey, err)
	}
	body := fiber.Map{"error": e.Message}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return c.Status(status).JSON(body)
}
