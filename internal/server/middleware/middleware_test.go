package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/internal/server/response"
	"github.com/agentstation/matchrules/pkg/logging"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *response.Error {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(tag("first"), tag("second"), tag("third"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		okHandler(w, r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "third", "handler"}, order)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var fromContext *zerolog.Logger
	handler := Logger(&logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = zerolog.Ctx(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	t.Run("generates a request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

		id := rec.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		require.NotNil(t, fromContext)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, id, entry["request_id"])
		assert.Equal(t, "/api/v1/sessions", entry["path"])
		assert.InDelta(t, http.StatusCreated, entry["status"], 0)
	})

	t.Run("keeps the caller's request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logging.NewNopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("rule index out of range")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)
	rw.Flush()
	assert.Equal(t, http.StatusTeapot, rw.statusCode)
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, rw.Unwrap())

	_, _, err := rw.Hijack()
	assert.Error(t, err)
}
