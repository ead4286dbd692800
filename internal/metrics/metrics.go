// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/histogram/gauge the service reports.
type Metrics struct {
	HookRequestsTotal   *prometheus.CounterVec
	HookDurationSeconds *prometheus.HistogramVec
	JobsClaimedTotal    *prometheus.CounterVec
	JobsCompletedTotal  *prometheus.CounterVec
	JobsFailedTotal     *prometheus.CounterVec
	JobQueueDepth       *prometheus.GaugeVec
	RetrievalBranchSeconds *prometheus.HistogramVec
	SkillsGeneratedTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers every metric against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HookRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusd_hook_requests_total",
				Help: "Total hook invocations by kind and outcome.",
			},
			[]string{"hook", "outcome"},
		),
		HookDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "focusd_hook_duration_seconds",
				Help:    "Hook invocation wall-clock duration.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"hook"},
		),
		JobsClaimedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusd_jobs_claimed_total",
				Help: "Total jobs claimed by kind.",
			},
			[]string{"kind"},
		),
		JobsCompletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusd_jobs_completed_total",
				Help: "Total jobs completed by kind.",
			},
			[]string{"kind"},
		),
		JobsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusd_jobs_failed_total",
				Help: "Total job handler failures (retried or not), by kind.",
			},
			[]string{"kind"},
		),
		JobQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "focusd_job_queue_depth",
				Help: "Current queue depth by status.",
			},
			[]string{"status"},
		),
		RetrievalBranchSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "focusd_retrieval_branch_seconds",
				Help:    "Retriever branch duration by kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"branch"},
		),
		SkillsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusd_skills_generated_total",
				Help: "Total skill documents generated by source.",
			},
			[]string{"source"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.HookRequestsTotal,
		m.HookDurationSeconds,
		m.JobsClaimedTotal,
		m.JobsCompletedTotal,
		m.JobsFailedTotal,
		m.JobQueueDepth,
		m.RetrievalBranchSeconds,
		m.SkillsGeneratedTotal,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
