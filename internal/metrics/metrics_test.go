package metrics

import (
	"testing"

	"github.com/san-kum/foamrun/internal/residual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverged(t *testing.T) {
	m := NewConverged(1e-3)
	assert.Zero(t, m.Value())

	m.Observe("Ux", []float64{1, 2}, []float64{1, 1e-4})
	m.Observe("p", []float64{1}, []float64{0.5})
	assert.Equal(t, 0.5, m.Value())

	m.Observe("p", []float64{1, 2}, []float64{0.5, 1e-5})
	assert.Equal(t, 1.0, m.Value())

	m.Reset()
	assert.Zero(t, m.Value())
}

func TestOrdersDropped(t *testing.T) {
	m := NewOrdersDropped()
	m.Observe("Ux", nil, []float64{1, 1e-3})
	m.Observe("p", nil, []float64{1, 1e-2})
	assert.InDelta(t, 2.0, m.Value(), 1e-12)

	// zero residuals carry no log information
	m.Observe("k", nil, []float64{0, 0})
	assert.InDelta(t, 2.0, m.Value(), 1e-12)

	m.Reset()
	assert.Zero(t, m.Value())
}

func TestStall(t *testing.T) {
	m := NewStall(3)

	m.Observe("p", nil, []float64{1, 0.5, 0.6})
	assert.Zero(t, m.Value())

	m.Observe("p", nil, []float64{1, 0.5, 0.6, 0.7, 0.5})
	assert.Equal(t, 1.0, m.Value())
	assert.Equal(t, []string{"p"}, m.Fields())

	m.Observe("p", nil, []float64{1, 0.5, 0.6, 0.7, 0.5, 0.1})
	assert.Zero(t, m.Value())

	m.Reset()
	assert.Empty(t, m.Fields())
}

func TestSetObservesTracker(t *testing.T) {
	set := Default()
	tr := residual.NewTracker(residual.WithObserver(set))

	tr.Feed("Time = 1")
	tr.Feed("GAMG:  Solving for p, Initial residual = 1, Final residual = 0.01, No Iterations 5")
	tr.Feed("Time = 2")
	tr.Feed("GAMG:  Solving for p, Initial residual = 1e-5, Final residual = 1e-7, No Iterations 5")

	vals := set.Values()
	require.Len(t, vals, 3)
	assert.Equal(t, 1.0, vals["converged"])
	assert.InDelta(t, 5.0, vals["orders_dropped"], 1e-9)
	assert.Zero(t, vals["stalled_fields"])

	tr.Reset()
	assert.Zero(t, set.Values()["converged"])
}
