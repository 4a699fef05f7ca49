package metrics

import "github.com/san-kum/foamrun/internal/residual"

// Metric summarizes convergence from residual line updates. Observe is
// called with the full present history of one field each time it changes.
type Metric interface {
	Name() string
	Observe(field string, times, values []float64)
	Value() float64
	Reset()
}

// Set feeds several metrics from one tracker. It implements
// residual.Observer.
type Set struct {
	metrics []Metric
}

// NewSet returns a set feeding ms in order.
func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

// Default is the metric set shown in the live view and saved with runs.
func Default() *Set {
	return NewSet(NewConverged(1e-4), NewOrdersDropped(), NewStall(20))
}

// Add registers another metric.
func (s *Set) Add(m Metric) { s.metrics = append(s.metrics, m) }

// OnSeriesUpdated passes the field's history to every metric.
func (s *Set) OnSeriesUpdated(field string, _ residual.Color, times, values []float64) {
	for _, m := range s.metrics {
		m.Observe(field, times, values)
	}
}

// OnReset resets every metric.
func (s *Set) OnReset() {
	for _, m := range s.metrics {
		m.Reset()
	}
}

// Values reports every metric by name.
func (s *Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Metrics returns the metrics in registration order.
func (s *Set) Metrics() []Metric {
	out := make([]Metric, len(s.metrics))
	copy(out, s.metrics)
	return out
}
