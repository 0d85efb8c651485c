package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"payledger/internal/repository"
	"payledger/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidAuthority):
		return http.StatusBadRequest

	// Identity mismatch
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden

	// Conflict errors - the request is well-formed but the ledger state
	// forbids it. A duplicate means "already handled", which webhook
	// callers treat as success.
	case errors.Is(err, service.ErrDuplicatePaymentID),
		errors.Is(err, service.ErrLedgerPaused):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
