// Package response writes the JSON envelope of the API: {"data": ...,
// "error": null} on success and {"data": null, "error": {...}} on failure.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/matchrules/pkg/errors"
)

// Response is the envelope of every API response.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error is the error half of the envelope. Code is a stable machine-readable
// name such as NOT_FOUND.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success wraps data.
func Success(data any) Response { return Response{Data: data} }

// Fail builds an error envelope.
func Fail(code, message, details string) Response {
	return Response{Error: &Error{Code: code, Message: message, Details: details}}
}

// JSON writes resp with status. Encoding errors are dropped since the status
// is already sent.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func fail(w http.ResponseWriter, status int, code, message, details string) {
	JSON(w, status, Fail(code, message, details))
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) { JSON(w, http.StatusOK, Success(data)) }

// Created writes data with 201.
func Created(w http.ResponseWriter, data any) { JSON(w, http.StatusCreated, Success(data)) }

// BadRequest writes 400.
func BadRequest(w http.ResponseWriter, message, details string) {
	fail(w, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

// Unauthorized writes 401.
func Unauthorized(w http.ResponseWriter, message, details string) {
	fail(w, http.StatusUnauthorized, "UNAUTHORIZED", message, details)
}

// NotFound writes 404.
func NotFound(w http.ResponseWriter, message, details string) {
	fail(w, http.StatusNotFound, "NOT_FOUND", message, details)
}

// MethodNotAllowed writes 405.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	fail(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed",
		"Method "+method+" is not supported for this endpoint")
}

// Conflict writes 409.
func Conflict(w http.ResponseWriter, message, details string) {
	fail(w, http.StatusConflict, "CONFLICT", message, details)
}

// RateLimited writes 429.
func RateLimited(w http.ResponseWriter, details string) {
	fail(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded", details)
}

// InternalError writes 500. err is not exposed to the client.
func InternalError(w http.ResponseWriter, _ error) {
	fail(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", "An unexpected error occurred")
}

// BadGateway writes 502 for a failing rule service.
func BadGateway(w http.ResponseWriter, message, details string) {
	fail(w, http.StatusBadGateway, "BAD_GATEWAY", message, details)
}

// ServiceUnavailable writes 503.
func ServiceUnavailable(w http.ResponseWriter, details string) {
	fail(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service unavailable", details)
}

// GatewayTimeout writes 504 for a rule service that timed out.
func GatewayTimeout(w http.ResponseWriter, details string) {
	fail(w, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT", "Rule service timed out", details)
}

// ErrorFromType writes the response matching err. Refusals map to 4xx and
// rule service failures to 502 or 504.
func ErrorFromType(w http.ResponseWriter, err error) {
	var (
		serviceErr *errors.ServiceError
		apiErr     *errors.APIError
		configErr  *errors.ConfigError
		parseErr   *errors.ParseError
	)
	switch {
	case errors.IsBusy(err):
		Conflict(w, err.Error(), "retry when the engine is Ready")
	case errors.IsAlreadyExists(err):
		Conflict(w, err.Error(), "")
	case errors.IsNoChanges(err):
		Conflict(w, err.Error(), "there are no pending rule changes")
	case errors.IsNotFound(err):
		NotFound(w, err.Error(), "")
	case errors.IsValidationError(err):
		BadRequest(w, err.Error(), "")
	case errors.IsTimeout(err):
		GatewayTimeout(w, err.Error())
	case errors.As(err, &serviceErr), errors.As(err, &apiErr):
		BadGateway(w, "Rule service failed", err.Error())
	case errors.Is(err, errors.ErrNotConfigured), errors.As(err, &configErr):
		ServiceUnavailable(w, err.Error())
	case errors.As(err, &parseErr):
		BadRequest(w, "Malformed input", err.Error())
	default:
		InternalError(w, err)
	}
}
