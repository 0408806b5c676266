package connection

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/michaelhil/open-neon-go/metric"
)

// Metrics holds Prometheus metrics for one Connection.
type Metrics struct {
	stateTransitions  *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	errorsTotal       *prometheus.CounterVec
	statusUpdates     prometheus.Counter
	samplesReceived   prometheus.Counter
	streamsActive     prometheus.Gauge
	channelsOpened    prometheus.Counter
}

// newMetrics creates and registers Connection metrics. A nil registry
// disables instrumentation.
func newMetrics(registry *metric.Registry, componentName string) *Metrics {
	if registry == nil {
		return nil
	}

	labels := prometheus.Labels{"connection": componentName}

	m := &Metrics{
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "openneon",
			Subsystem:   "connection",
			Name:        "state_transitions_total",
			Help:        "Total lifecycle state transitions",
			ConstLabels: labels,
		}, []string{"state"}),

		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "openneon",
			Subsystem:   "connection",
			Name:        "reconnect_attempts_total",
			Help:        "Total reconnection attempts",
			ConstLabels: labels,
		}),

		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "openneon",
			Subsystem:   "connection",
			Name:        "errors_total",
			Help:        "Total errors surfaced, by kind",
			ConstLabels: labels,
		}, []string{"kind"}),

		statusUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "openneon",
			Subsystem:   "connection",
			Name:        "status_updates_total",
			Help:        "Total status push messages merged",
			ConstLabels: labels,
		}),

		samplesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "openneon",
			Subsystem:   "connection",
			Name:        "gaze_samples_total",
			Help:        "Total gaze samples fanned out to subscribers",
			ConstLabels: labels,
		}),

		streamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "openneon",
			Subsystem:   "connection",
			Name:        "streams_active",
			Help:        "Live multiplexed stream entries",
			ConstLabels: labels,
		}),

		channelsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "openneon",
			Subsystem:   "connection",
			Name:        "channels_opened_total",
			Help:        "Total push channels opened (control and stream)",
			ConstLabels: labels,
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"state_transitions":  m.stateTransitions,
		"reconnect_attempts": m.reconnectAttempts,
		"errors_total":       m.errorsTotal,
		"status_updates":     m.statusUpdates,
		"gaze_samples":       m.samplesReceived,
		"streams_active":     m.streamsActive,
		"channels_opened":    m.channelsOpened,
	} {
		// Registration failures mean a duplicate component name; the
		// connection still works without instrumentation.
		if err := registry.Register(componentName, name, c); err != nil {
			return nil
		}
	}

	return m
}

func (m *Metrics) recordState(s State) {
	if m == nil {
		return
	}
	m.stateTransitions.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) recordReconnect() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

func (m *Metrics) recordError(kind string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) recordStatusUpdate() {
	if m == nil {
		return
	}
	m.statusUpdates.Inc()
}

func (m *Metrics) recordSample() {
	if m == nil {
		return
	}
	m.samplesReceived.Inc()
}

func (m *Metrics) recordStreamOpen() {
	if m == nil {
		return
	}
	m.streamsActive.Inc()
	m.channelsOpened.Inc()
}

func (m *Metrics) recordStreamClose() {
	if m == nil {
		return
	}
	m.streamsActive.Dec()
}

func (m *Metrics) recordChannelOpen() {
	if m == nil {
		return
	}
	m.channelsOpened.Inc()
}
