package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/agentstation/matchrules/internal/metrics"
)

func TestObserveOperation(t *testing.T) {
	before := testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("apply changes", metrics.OutcomeRefused))
	metrics.ObserveOperation("apply changes", metrics.OutcomeRefused, time.Now())
	after := testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("apply changes", metrics.OutcomeRefused))
	assert.Equal(t, before+1, after)
}

func TestObserveService(t *testing.T) {
	before := testutil.ToFloat64(metrics.ServiceRequestsTotal.WithLabelValues("suggest", metrics.OutcomeError))
	metrics.ObserveService("suggest", errors.New("down"), time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ServiceRequestsTotal.WithLabelValues("suggest", metrics.OutcomeError)))
}

func TestHandler(t *testing.T) {
	metrics.SkippedMatchesTotal.Add(0)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "matchrules_engine_skipped_matches_total")
}
