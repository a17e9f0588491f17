package utils

import (
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"mailpilot/engine"
)

// captureException is swappable in tests.
var captureException = func(err error) {
	sentry.CaptureException(err)
}

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// ErrorResponse creates a standardized error response
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// EngineErrorResponse maps an engine error to the right HTTP status.
func EngineErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case engine.IsValidation(err):
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", err)
	case engine.IsNotFound(err):
		return ErrorResponse(c, fiber.StatusNotFound, "Not found", err)
	case engine.IsStoreUnavailable(err):
		captureException(err)
		return ErrorResponse(c, fiber.StatusServiceUnavailable, "Storage temporarily unavailable", nil)
	default:
		captureException(err)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Internal error", nil)
	}
}

// ParseUint safely parses a string to uint
func ParseUint(s string) uint {
	i, _ := strconv.ParseUint(s, 10, 32)
	return uint(i)
}

// PaginatedResponse structure for paginated results
type PaginatedResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
