package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ActivitiesCreated     prometheus.Counter
	RegistrationsCreated  prometheus.Counter
	RegistrationsRejected *prometheus.CounterVec
	DrawsCompleted        prometheus.Counter
	DrawWinnersSelected   prometheus.Counter
	DrawDuration          prometheus.Histogram
	RequestDuration       *prometheus.HistogramVec
	LinkRepairConcerns    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ActivitiesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "luckdraw_activities_created_total",
			Help: "Total number of activities created",
		}),
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "luckdraw_registrations_created_total",
			Help: "Total number of registrations admitted",
		}),
		RegistrationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "luckdraw_registrations_rejected_total",
			Help: "Registrations rejected by admission control, by reason",
		}, []string{"reason"}),
		DrawsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "luckdraw_draws_completed_total",
			Help: "Total number of draws that committed a full winner set",
		}),
		DrawWinnersSelected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "luckdraw_draw_winners_selected_total",
			Help: "Total number of registrations marked as winners",
		}),
		DrawDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "luckdraw_draw_duration_seconds",
			Help:    "Wall time of a complete draw (reset, selection, commit)",
			Buckets: prometheus.DefBuckets,
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "luckdraw_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		LinkRepairConcerns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "luckdraw_registration_link_repair_total",
			Help: "Registration count back-reference updates that failed and need repair",
		}),
	}
}

// IncrementRejected records an admission rejection with its reason code.
func (m *Metrics) IncrementRejected(reason string) {
	m.RegistrationsRejected.WithLabelValues(reason).Inc()
}

// ObserveDraw records the duration of a completed draw.
func (m *Metrics) ObserveDraw(d time.Duration) {
	m.DrawDuration.Observe(d.Seconds())
}
