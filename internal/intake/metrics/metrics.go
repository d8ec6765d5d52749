package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the intake module: how many submitters
// the link flow creates versus updates, how often lookups end ambiguous, and
// how long the update path takes.
type Metrics struct {
	SubmittersCreated  prometheus.Counter
	SubmittersUpdated  prometheus.Counter
	AmbiguousLookups   prometheus.Counter
	CompletedRedirects prometheus.Counter
	WebhookJobs        prometheus.Counter
	UpdateDuration     prometheus.Histogram
}

// New creates a Metrics instance with all intake metrics registered.
func New() *Metrics {
	return &Metrics{
		SubmittersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "formgate_submitters_created_total",
			Help: "Total number of submitters created by the link intake flow",
		}),
		SubmittersUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "formgate_submitters_updated_total",
			Help: "Total number of existing submitters updated on repeat visits",
		}),
		AmbiguousLookups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "formgate_ambiguous_lookups_total",
			Help: "Total number of lookups rejected because multiple slots were undefined",
		}),
		CompletedRedirects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "formgate_completed_redirects_total",
			Help: "Total number of repeat visits redirected to the completed view",
		}),
		WebhookJobs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "formgate_webhook_jobs_enqueued_total",
			Help: "Total number of webhook delivery jobs enqueued",
		}),
		UpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "formgate_intake_update_duration_seconds",
			Help:    "Duration of the intake update flow",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveUpdate records the duration of one update flow.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveUpdate(start time.Time) {
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}
