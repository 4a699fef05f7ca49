package metrics

// Converged is the fraction of fields whose latest residual is below the
// tolerance.
type Converged struct {
	name      string
	tolerance float64
	latest    map[string]float64
}

// NewConverged counts a field as converged below tolerance.
func NewConverged(tolerance float64) *Converged {
	return &Converged{
		name:      "converged",
		tolerance: tolerance,
		latest:    make(map[string]float64),
	}
}

// Name is "converged".
func (c *Converged) Name() string {
	return c.name
}

// Observe records the field's latest residual.
func (c *Converged) Observe(field string, times, values []float64) {
	if len(values) == 0 {
		return
	}
	c.latest[field] = values[len(values)-1]
}

// Value is the converged fraction, 0 before any update.
func (c *Converged) Value() float64 {
	if len(c.latest) == 0 {
		return 0
	}
	n := 0
	for _, v := range c.latest {
		if v < c.tolerance {
			n++
		}
	}
	return float64(n) / float64(len(c.latest))
}

// Reset forgets every field.
func (c *Converged) Reset() {
	c.latest = make(map[string]float64)
}
