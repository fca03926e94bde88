package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/hafasgo/internal/hafas"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, bad_gateway, etc.
	Message   string `json:"message"` // Human-readable message
	HafasCode string `json:"hafas_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return sendError(c, APIError{Status: status, Code: code, Message: message})
}

func sendError(c *fiber.Ctx, e APIError) error {
	e.RequestID, _ = c.Locals("requestid").(string)
	return c.Status(e.Status).JSON(e)
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// hafasStatus maps the semantic code of an upstream error to a status and an error code.
var hafasStatus = map[string]struct {
	status int
	code   string
}{
	hafas.CodeNotFound:       {fiber.StatusNotFound, "not_found"},
	hafas.CodeInvalidRequest: {fiber.StatusBadRequest, "bad_request"},
	hafas.CodeAccessDenied:   {fiber.StatusForbidden, "forbidden"},
	hafas.CodeServerError:    {fiber.StatusBadGateway, "bad_gateway"},
}

// writeError turns an error from the client into an API error response.
func writeError(c *fiber.Ctx, err error) error {
	e := APIError{Status: fiber.StatusInternalServerError, Code: "internal_error", Message: err.Error()}

	var he *hafas.Error
	switch {
	case errors.As(err, &he):
		if m, ok := hafasStatus[he.Code]; ok {
			e.Status, e.Code = m.status, m.code
		} else {
			e.Status, e.Code = fiber.StatusBadGateway, "bad_gateway"
		}
		e.HafasCode = he.HafasCode
	case errors.Is(err, hafas.ErrValidation):
		e.Status, e.Code = fiber.StatusBadRequest, "bad_request"
	case errors.Is(err, hafas.ErrUnsupported):
		e.Status, e.Code = fiber.StatusNotImplemented, "not_implemented"
	case errors.Is(err, hafas.ErrInvalidResponse):
		e.Status, e.Code = fiber.StatusBadGateway, "bad_gateway"
	case errors.Is(err, context.DeadlineExceeded):
		e.Status, e.Code = fiber.StatusGatewayTimeout, "timeout"
	}

	if e.Status >= 500 {
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "status", e.Status, "error", err)
	}
	return sendError(c, e)
}

// ErrorHandler is the app-wide fiber error handler: errors that escape the
// handlers, e.g. unknown routes or timeouts, still get an APIError body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return errNotFound(c, fe.Message)
		case fiber.StatusRequestTimeout:
			return newError(c, fiber.StatusGatewayTimeout, "timeout", "upstream did not answer in time")
		}
		return newError(c, fe.Code, "error", fe.Message)
	}
	LoggerFromCtx(c.UserContext()).Error("unhandled error", "path", c.Path(), "error", err)
	return errInternal(c, "internal server error")
}
