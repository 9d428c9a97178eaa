package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRun("tier_change", "applied")
	m.RecordRun("tier_change", "applied")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues("tier_change", "applied")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New(nil)
	m.RecordCall("billing", "apply_tier_change", "failed")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tier_orchestrator_backend_calls_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
