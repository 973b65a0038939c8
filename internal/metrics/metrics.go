package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder publishes pipeline metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobSkipped      *prometheus.CounterVec
	providerErrors  *prometheus.CounterVec
	observations    *prometheus.CounterVec
	anomalies       *prometheus.CounterVec
	marketAnomalies *prometheus.CounterVec
	signals         *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		jobRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_job_runs_total",
				Help: "Job runs by job and outcome",
			},
			[]string{"job", "outcome"},
		),
		jobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracker_job_duration_seconds",
				Help:    "Duration of job runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		jobSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_job_skipped_total",
				Help: "Ticks dropped because the job was still running",
			},
			[]string{"job"},
		),
		providerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_provider_errors_total",
				Help: "Market data calls that resolved to no data",
			},
			[]string{"capability"},
		),
		observations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_price_observations_total",
				Help: "Persisted price observations by asset class",
			},
			[]string{"class"},
		),
		anomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_anomalies_total",
				Help: "Per-asset anomalies by severity",
			},
			[]string{"severity"},
		),
		marketAnomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_market_anomalies_total",
				Help: "Market scanner hits by scan and outcome",
			},
			[]string{"scan", "outcome"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_strategy_signals_total",
				Help: "Buy signals by outcome",
			},
			[]string{"outcome"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_notifications_total",
				Help: "Notification deliveries by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
	}
}

func (r *Recorder) JobRun(job string, d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.jobRuns.WithLabelValues(job, outcome).Inc()
	r.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (r *Recorder) JobSkipped(job string) {
	if r == nil {
		return
	}
	r.jobSkipped.WithLabelValues(job).Inc()
}

func (r *Recorder) ProviderError(capability string) {
	if r == nil {
		return
	}
	r.providerErrors.WithLabelValues(capability).Inc()
}

func (r *Recorder) Observation(class string) {
	if r == nil {
		return
	}
	r.observations.WithLabelValues(class).Inc()
}

func (r *Recorder) Anomaly(severity string) {
	if r == nil {
		return
	}
	r.anomalies.WithLabelValues(severity).Inc()
}

// MarketAnomaly outcome is "recorded" or "deduplicated".
func (r *Recorder) MarketAnomaly(scan, outcome string) {
	if r == nil {
		return
	}
	r.marketAnomalies.WithLabelValues(scan, outcome).Inc()
}

// Signal outcome is "alerted" or "cooldown".
func (r *Recorder) Signal(outcome string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Notification(channel string, err error) {
	if r == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	r.notifications.WithLabelValues(channel, outcome).Inc()
}

// Dropped counts notifications discarded because the queue was full.
func (r *Recorder) Dropped(channel string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(channel, "dropped").Inc()
}
