package jobs

import (
	"moodboard-server/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "moodboard"
	MetricsSubsystem = "video_jobs"
)

// Metrics holds the Prometheus metrics of the video job pollers. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	JobsSubmittedTotal prometheus.Counter
	StatusChecksTotal  prometheus.Counter
	JobOutcomesTotal   *prometheus.CounterVec
	JobsPolling        prometheus.Gauge
	SurfacesOpen       prometheus.Gauge
}

// NewMetrics creates and registers the job metrics on reg, or on the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		JobsSubmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "submitted_total",
			Help:      "Total number of video generation jobs submitted",
		}),
		StatusChecksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "status_checks_total",
			Help:      "Total number of operation status checks issued",
		}),
		JobOutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "outcomes_total",
			Help:      "Terminal job outcomes by state and error kind",
		}, []string{"state", "error_kind"}),
		JobsPolling: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "polling",
			Help:      "Number of jobs currently being polled",
		}),
		SurfacesOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "surfaces_open",
			Help:      "Number of video surfaces not yet torn down",
		}),
	}
}

func (m *Metrics) submitted() {
	if m != nil {
		m.JobsSubmittedTotal.Inc()
	}
}

func (m *Metrics) statusCheck() {
	if m != nil {
		m.StatusChecksTotal.Inc()
	}
}

func (m *Metrics) outcome(state core.JobState, kind core.ErrorKind) {
	if m != nil {
		m.JobOutcomesTotal.WithLabelValues(string(state), string(kind)).Inc()
	}
}

func (m *Metrics) active(delta float64) {
	if m != nil {
		m.JobsPolling.Add(delta)
	}
}

func (m *Metrics) surfaces(delta float64) {
	if m != nil {
		m.SurfacesOpen.Add(delta)
	}
}
