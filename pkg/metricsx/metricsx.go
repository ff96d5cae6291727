// Package metricsx records credential renewal metrics with Prometheus.
package metricsx

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/notesdk"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements notesdk.Observer on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	renewals         *prometheus.CounterVec
	renewalDuration  prometheus.Histogram
	joined           prometheus.Counter
	replays          prometheus.Counter
	terminalFailures *prometheus.CounterVec
}

var _ notesdk.Observer = (*Recorder)(nil)

// New registers the renewal metrics on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moondance_renewals_total",
			Help: "Credential renewal calls by result.",
		}, []string{"result"}),
		renewalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moondance_renewal_duration_seconds",
			Help:    "Duration of credential renewal calls.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		joined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moondance_renewal_waiters_total",
			Help: "Requests that waited on a renewal started by another request.",
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moondance_replays_total",
			Help: "Requests replayed after credential renewal.",
		}),
		terminalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moondance_terminal_failures_total",
			Help: "Requests that failed with a terminal authorization error, by reason.",
		}, []string{"reason"}),
	}

	r.registry.MustRegister(r.renewals, r.renewalDuration, r.joined, r.replays, r.terminalFailures)
	return r
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) RenewalFinished(err error, took time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.renewals.WithLabelValues(result).Inc()
	r.renewalDuration.Observe(took.Seconds())
}

func (r *Recorder) RenewalJoined() { r.joined.Inc() }

func (r *Recorder) RequestReplayed() { r.replays.Inc() }

func (r *Recorder) RequestRejected(reason error) {
	r.terminalFailures.WithLabelValues(Reason(reason)).Inc()
}

// Reason maps a terminal authorization error to a metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, notesdk.ErrReplayRejected):
		return "replay_rejected"
	case errors.Is(err, notesdk.ErrSessionChanged):
		return "session_changed"
	case errors.Is(err, notesdk.ErrSessionExpired):
		return "session_expired"
	}
	return "other"
}

// WriteFile writes the current metrics to path in the text exposition
// format, for the node_exporter textfile collector.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
