package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/portfolio-backend/internal/assistant"
	"github.com/jonathan/portfolio-backend/internal/portfolio"
)

// Error codes carried in the error envelope.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeDataMalformed = "DATA_MALFORMED"
	CodeValidation    = "VALIDATION_ERROR"
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeRateLimited   = "RATE_LIMIT_EXCEEDED"
	CodeRouteNotFound = "ROUTE_NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrBadRequest indicates a request body that could not be decoded.
type ErrBadRequest struct {
	Cause error
}

func (e *ErrBadRequest) Error() string {
	return fmt.Sprintf("invalid request body: %v", e.Cause)
}

func (e *ErrBadRequest) Unwrap() error {
	return e.Cause
}

// ErrUnauthorized indicates a missing or rejected bearer token.
type ErrUnauthorized struct{}

func (e *ErrUnauthorized) Error() string {
	return "Unauthorized"
}

// ErrRateLimited indicates the client exhausted its request budget.
type ErrRateLimited struct{}

func (e *ErrRateLimited) Error() string {
	return "Rate limit exceeded. Please try again later."
}

// ErrRouteNotFound indicates no handler is registered for the path.
type ErrRouteNotFound struct {
	Path string
}

func (e *ErrRouteNotFound) Error() string {
	return "Not Found"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	status, _ := classify(err)
	return status
}

// ErrorCode returns the machine-readable code for an error.
func ErrorCode(err error) string {
	_, code := classify(err)
	return code
}

func classify(err error) (int, string) {
	var (
		notFound   *portfolio.ErrNotFound
		malformed  *portfolio.ErrMalformed
		assistErr  *assistant.RequestError
		validation *ErrValidation
		badRequest *ErrBadRequest
		unauth     *ErrUnauthorized
		limited    *ErrRateLimited
		noRoute    *ErrRouteNotFound
	)

	switch {
	case err == nil:
		return http.StatusInternalServerError, CodeInternal
	case errors.As(err, &malformed):
		return http.StatusNotFound, CodeDataMalformed
	case errors.As(err, &notFound):
		return http.StatusNotFound, CodeNotFound
	case errors.As(err, &noRoute):
		return http.StatusNotFound, CodeRouteNotFound
	case errors.As(err, &assistErr), errors.As(err, &validation):
		return http.StatusUnprocessableEntity, CodeValidation
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.As(err, &unauth):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.As(err, &limited):
		return http.StatusTooManyRequests, CodeRateLimited
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
