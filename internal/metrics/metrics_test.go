package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEveryMetricExactlyOnce(t *testing.T) {
	m := New()

	m.HookRequestsTotal.WithLabelValues("prompt", "ok").Inc()
	m.JobsClaimedTotal.WithLabelValues("turn_summary").Inc()
	m.JobQueueDepth.WithLabelValues("queued").Set(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HookRequestsTotal.WithLabelValues("prompt", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobsClaimedTotal.WithLabelValues("turn_summary")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.JobQueueDepth.WithLabelValues("queued")))
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	m := New()
	m.SkillsGeneratedTotal.WithLabelValues("session").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "focusd_skills_generated_total")
}

func TestNew_DistinctInstancesUseIndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.JobsFailedTotal.WithLabelValues("skill_extract").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.JobsFailedTotal.WithLabelValues("skill_extract")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.JobsFailedTotal.WithLabelValues("skill_extract")))
}
