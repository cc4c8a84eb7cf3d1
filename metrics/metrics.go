// Package metrics exports pipeline write statistics as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/modify"
)

// Result label values.
const (
	ResultExecuted = "executed"
	ResultIgnored  = "ignored"
)

// Metrics holds the modx collectors.
type Metrics struct {
	registry *prometheus.Registry
	writes   *prometheus.CounterVec
	cycles   *prometheus.CounterVec
}

// New creates the collectors under namespace and registers them in a fresh
// registry.
func New(namespace string) (*Metrics, error) {
	if namespace == "" {
		return nil, errors.NewInvalidRequestError("metrics namespace is required")
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "modify",
				Name:      "writes_total",
				Help:      "Documents written or ignored by modification pipelines.",
			}, []string{"collection", "kind", "result"}),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "modify",
				Name:      "cycles_total",
				Help:      "Completed pipeline cycles.",
			}, []string{"collection", "kind"}),
	}
	for _, c := range []prometheus.Collector{m.writes, m.cycles} {
		if err := m.registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "register collector")
		}
	}
	return m, nil
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// For returns counters labelled with collection and kind.
func (m *Metrics) For(collection, kind string) *Counters {
	return &Counters{
		executed: m.writes.WithLabelValues(collection, kind, ResultExecuted),
		ignored:  m.writes.WithLabelValues(collection, kind, ResultIgnored),
		cycles:   m.cycles.WithLabelValues(collection, kind),
	}
}

// WriteToTextfile writes the current values in the text exposition format,
// for node_exporter's textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, m.registry), "write metrics to %s", path)
}

// Counters implements modify.Counters for one collection and kind.
type Counters struct {
	executed prometheus.Counter
	ignored  prometheus.Counter
	cycles   prometheus.Counter
}

var _ modify.Counters = (*Counters)(nil)

func (c *Counters) AddWritesExecuted(n int) { c.executed.Add(float64(n)) }
func (c *Counters) AddWritesIgnored(n int)  { c.ignored.Add(float64(n)) }

// AddCycles records completed pipeline cycles.
func (c *Counters) AddCycles(n int) { c.cycles.Add(float64(n)) }
