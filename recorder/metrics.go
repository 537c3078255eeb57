// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ik5/audcap/capture"
)

// Metrics counts coordinator activity. A nil *Metrics records nothing.
type Metrics struct {
	started    prometheus.Counter
	rejected   prometheus.Counter
	completed  *prometheus.CounterVec
	samples    prometheus.Counter
	sinkErrors prometheus.Counter
}

// NewMetrics builds the collectors and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audcap",
			Name:      "sessions_started_total",
			Help:      "Total number of recording sessions started",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audcap",
			Name:      "sessions_rejected_total",
			Help:      "Total number of start requests refused because a session was active",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audcap",
			Name:      "sessions_completed_total",
			Help:      "Total number of finished recording sessions",
		}, []string{"reason"}), // reason: cancelled, limit, fault
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audcap",
			Name:      "captured_samples_total",
			Help:      "Total number of samples captured at the output rate",
		}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audcap",
			Name:      "sink_errors_total",
			Help:      "Total number of frames a sink failed to accept",
		}),
	}

	if reg != nil {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.started.Describe(ch)
	m.rejected.Describe(ch)
	m.completed.Describe(ch)
	m.samples.Describe(ch)
	m.sinkErrors.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.started.Collect(ch)
	m.rejected.Collect(ch)
	m.completed.Collect(ch)
	m.samples.Collect(ch)
	m.sinkErrors.Collect(ch)
}

func (m *Metrics) recordStarted() {
	if m != nil {
		m.started.Inc()
	}
}

func (m *Metrics) recordRejected() {
	if m != nil {
		m.rejected.Inc()
	}
}

func (m *Metrics) recordCompleted(reason capture.StopReason, samples, sinkErrors int) {
	if m == nil {
		return
	}
	m.completed.WithLabelValues(reason.String()).Inc()
	m.samples.Add(float64(samples))
	m.sinkErrors.Add(float64(sinkErrors))
}
