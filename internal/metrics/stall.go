package metrics

// Stall counts fields whose residual has not improved on the value just
// before the last window of samples.
type Stall struct {
	name    string
	window  int
	stalled map[string]bool
}

// NewStall watches the last window samples. A window below 1 is 1.
func NewStall(window int) *Stall {
	if window < 1 {
		window = 1
	}
	return &Stall{
		name:    "stalled_fields",
		window:  window,
		stalled: make(map[string]bool),
	}
}

// Name is "stalled_fields".
func (s *Stall) Name() string {
	return s.name
}

// Observe re-evaluates one field from its full history.
func (s *Stall) Observe(field string, times, values []float64) {
	n := len(values)
	if n <= s.window {
		s.stalled[field] = false
		return
	}
	ref := values[n-s.window-1]
	best := values[n-s.window]
	for _, v := range values[n-s.window:] {
		if v < best {
			best = v
		}
	}
	s.stalled[field] = best >= ref
}

// Value is the number of stalled fields.
func (s *Stall) Value() float64 {
	n := 0
	for _, st := range s.stalled {
		if st {
			n++
		}
	}
	return float64(n)
}

// Fields lists the currently stalled fields.
func (s *Stall) Fields() []string {
	var out []string
	for f, st := range s.stalled {
		if st {
			out = append(out, f)
		}
	}
	return out
}

// Reset forgets every field.
func (s *Stall) Reset() {
	s.stalled = make(map[string]bool)
}
