package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/michaelhil/open-neon-go/metric"
)

// ringMetrics exposes ring activity as Prometheus metrics.
type ringMetrics struct {
	writes prometheus.Counter
	reads  prometheus.Counter
	drops  prometheus.Counter
	depth  prometheus.Gauge
	usage  prometheus.Gauge
}

// WithMetrics registers depth, usage, and throughput metrics for the
// ring under the given component name. A nil registry disables
// instrumentation.
func WithMetrics[T any](registry *metric.Registry, component string) Option[T] {
	return func(r *Ring[T]) error {
		if registry == nil {
			return nil
		}

		m := &ringMetrics{
			writes: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "openneon",
				Subsystem: "buffer",
				Name:      "writes_total",
				Help:      "Total items written to the ring buffer",
				ConstLabels: prometheus.Labels{
					"component": component,
				},
			}),
			reads: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "openneon",
				Subsystem: "buffer",
				Name:      "reads_total",
				Help:      "Total items read from the ring buffer",
				ConstLabels: prometheus.Labels{
					"component": component,
				},
			}),
			drops: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "openneon",
				Subsystem: "buffer",
				Name:      "drops_total",
				Help:      "Total items evicted by drop-oldest overflow",
				ConstLabels: prometheus.Labels{
					"component": component,
				},
			}),
			depth: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "openneon",
				Subsystem: "buffer",
				Name:      "depth",
				Help:      "Current ring buffer depth",
				ConstLabels: prometheus.Labels{
					"component": component,
				},
			}),
			usage: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "openneon",
				Subsystem: "buffer",
				Name:      "utilization",
				Help:      "Ring buffer utilization (0.0-1.0)",
				ConstLabels: prometheus.Labels{
					"component": component,
				},
			}),
		}

		for name, c := range map[string]prometheus.Collector{
			"buffer_writes": m.writes,
			"buffer_reads":  m.reads,
			"buffer_drops":  m.drops,
			"buffer_depth":  m.depth,
			"buffer_usage":  m.usage,
		} {
			if err := registry.Register(component, name, c); err != nil {
				return err
			}
		}

		r.metrics = m
		return nil
	}
}

func (m *ringMetrics) recordWrite(size, capacity int) {
	m.writes.Inc()
	m.updateSize(size, capacity)
}

func (m *ringMetrics) recordRead(size, capacity int) {
	m.reads.Inc()
	m.updateSize(size, capacity)
}

func (m *ringMetrics) recordDrop() {
	m.drops.Inc()
}

func (m *ringMetrics) updateSize(size, capacity int) {
	m.depth.Set(float64(size))
	if capacity > 0 {
		m.usage.Set(float64(size) / float64(capacity))
	}
}
