// Package apperr defines the failure kinds shared by the identity, graph and
// post stores and maps them onto HTTP responses.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")

	// ErrInconsistent marks a broken store invariant, for example a username
	// index entry pointing at a missing user record. It is never a client error.
	ErrInconsistent = errors.New("internal consistency violation")
)

// Status maps an error onto the HTTP status the transport should answer with.
func Status(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// Kind returns the short tag rendered in failure responses.
func Kind(err error) string {
	switch Status(err) {
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusBadRequest:
		return "validation"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	}
	if errors.Is(err, ErrInconsistent) {
		return "inconsistent"
	}
	return "internal"
}

// Failure is the body of every unsuccessful response.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler is the fiber ErrorHandler rendering errors as tagged failures.
func Handler(c *fiber.Ctx, err error) error {
	return c.Status(Status(err)).JSON(Failure{
		Success: false,
		Error:   Kind(err),
		Message: err.Error(),
	})
}
