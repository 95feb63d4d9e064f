package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/homestead/internal/domain"
)

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError represents an error in the API response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details []FieldError   `json:"details,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// FieldError represents a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the standard envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Data: data})
}

// HTTPErrorHandler is the global error handler for echo.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, apiErr := mapError(err)
	if jsonErr := c.JSON(status, Envelope{Error: &apiErr}); jsonErr != nil {
		slog.Error("failed to send error response", "error", jsonErr)
	}
}

func mapError(err error) (int, APIError) {
	// Handle echo's own HTTP errors (404, 405, etc.)
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{
			Code:    http.StatusText(echoErr.Code),
			Message: msg,
		}
	}

	var notReady *domain.NotReadyError
	if errors.As(err, &notReady) {
		return http.StatusConflict, APIError{
			Code:    "not_ready",
			Message: notReady.Error(),
			Meta: map[string]any{
				"remaining_seconds": int64(notReady.Remaining.Seconds()),
				"paused":            notReady.Paused,
			},
		}
	}

	var short *domain.InsufficientResourcesError
	if errors.As(err, &short) {
		return http.StatusUnprocessableEntity, APIError{
			Code:    "insufficient_resources",
			Message: short.Error(),
			Meta:    map[string]any{"missing": short.Missing},
		}
	}

	if code, ok := domain.PreconditionCode(err); ok {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, domain.ErrJobInProgress) {
			status = http.StatusConflict
		}
		return status, APIError{Code: code, Message: err.Error()}
	}

	switch {
	case errors.Is(err, domain.ErrAlreadyCollected):
		return http.StatusConflict, APIError{
			Code:    "already_collected",
			Message: "The job has already been collected or cancelled",
		}
	case errors.Is(err, domain.ErrNoActiveJob):
		return http.StatusNotFound, APIError{
			Code:    "no_active_job",
			Message: "There is no active job",
		}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "The requested resource was not found",
		}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{
			Code:    "unauthorized",
			Message: "Authentication is required",
		}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, APIError{
			Code:    "invalid_input",
			Message: "The request body is invalid",
		}
	default:
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return http.StatusBadRequest, APIError{
				Code:    "validation_error",
				Message: "Validation failed",
				Details: []FieldError{
					{Field: validationErr.Field, Message: validationErr.Message},
				},
			}
		}

		slog.Error("unhandled error", "error", err)
		return http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "An unexpected error occurred",
		}
	}
}
