package response

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSuccessHelpers(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		OK(rec, map[string]int{"rules": 2})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"data":{"rules":2},"error":null}`, rec.Body.String())
	})

	t.Run("created", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Created(rec, map[string]string{"id": "plant"})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Nil(t, decode(t, rec).Error)
	})
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Invalid body", "") }, http.StatusBadRequest, "BAD_REQUEST"},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "No key", "") }, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "No session", "") }, http.StatusNotFound, "NOT_FOUND"},
		{"method", func(w http.ResponseWriter) { MethodNotAllowed(w, http.MethodPatch) }, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "Busy", "") }, http.StatusConflict, "CONFLICT"},
		{"rate limited", func(w http.ResponseWriter) { RateLimited(w, "slow down") }, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, fmt.Errorf("disk full")) }, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"bad gateway", func(w http.ResponseWriter) { BadGateway(w, "Suggest failed", "") }, http.StatusBadGateway, "BAD_GATEWAY"},
		{"gateway timeout", func(w http.ResponseWriter) { GatewayTimeout(w, "apply") }, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT"},
		{"unavailable", func(w http.ResponseWriter) { ServiceUnavailable(w, "no service") }, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.Nil(t, resp.Data)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}

	t.Run("internal errors are not exposed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		InternalError(rec, fmt.Errorf("redis: connection refused"))
		assert.NotContains(t, rec.Body.String(), "redis")
	})
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"busy", errors.NewBusyError("generate rules", "Generating"), http.StatusConflict},
		{"already exists", errors.NewAlreadyExistsError("match set", "curated"), http.StatusConflict},
		{"no changes", fmt.Errorf("apply: %w", errors.ErrNoChanges), http.StatusConflict},
		{"not found", errors.NewNotFoundError("session", "plant"), http.StatusNotFound},
		{"wrapped not found", errors.WrapResource("restore", "session", "plant", errors.NewNotFoundError("session", "plant")), http.StatusNotFound},
		{"validation", errors.NewValidationError("status", "Maybe", "unknown rule status"), http.StatusBadRequest},
		{"parse", errors.NewParseError("json", "", "unexpected end of input", nil), http.StatusBadRequest},
		{"timeout", errors.WrapService("suggest", "call", errors.NewTimeoutError("suggest", "30s", "deadline exceeded")), http.StatusGatewayTimeout},
		{"service", errors.NewServiceError("apply", "call", fmt.Errorf("connection reset")), http.StatusBadGateway},
		{"service status", errors.NewAPIError("suggest", http.StatusInternalServerError, "boom"), http.StatusBadGateway},
		{"not configured", fmt.Errorf("suggest: %w", errors.ErrNotConfigured), http.StatusServiceUnavailable},
		{"unknown", context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorFromType(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
