package residual

import (
	"bufio"
	"io"
	"strconv"

	"go.uber.org/zap"
)

const maxLineBytes = 1 << 20

// Tracker owns the time axis and residual series of one solver run and
// turns streamed log lines into chart updates. It is not safe for
// concurrent use; feed it from a single goroutine.
type Tracker struct {
	patterns *Patterns
	policy   DuplicatePolicy
	observer Observer
	logger   *zap.Logger

	times       []float64
	series      map[string][]Value
	fields      []string
	colors      map[string]Color
	divergences int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPatterns replaces the default line matchers.
func WithPatterns(p *Patterns) Option {
	return func(t *Tracker) { t.patterns = p }
}

// WithPolicy sets the duplicate policy.
func WithPolicy(p DuplicatePolicy) Option {
	return func(t *Tracker) { t.policy = p }
}

// WithObserver attaches the chart side.
func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observer = o }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker returns an empty tracker using the default solver tags.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		policy: AppendAll,
		logger: zap.NewNop(),
		series: make(map[string][]Value),
		colors: make(map[string]Color),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.patterns == nil {
		// default tags never fail to compile
		t.patterns, _ = NewPatterns()
	}
	return t
}

// SetObserver swaps the observer. Existing series are not replayed.
func (t *Tracker) SetObserver(o Observer) { t.observer = o }

// Feed processes one line of solver output.
func (t *Tracker) Feed(line string) Outcome {
	if raw, ok := t.patterns.MatchTime(line); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			t.logger.Warn("skipping time marker", zap.Error(&ParseError{Line: line, Text: raw, Wrapped: err}))
			return Malformed
		}
		if n := len(t.times); n > 0 && t.times[n-1] == v {
			return TimeRepeated
		}
		t.times = append(t.times, v)
		return TimeAppended
	}

	field, raw, ok := t.patterns.MatchResidual(line)
	if !ok {
		return Ignored
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		t.logger.Warn("skipping residual", zap.Error(&ParseError{Line: line, Text: raw, Wrapped: err}))
		return Malformed
	}
	if len(t.times) == 0 {
		t.logger.Debug("residual before first time marker", zap.String("field", field))
		return Orphan
	}
	return t.record(field, v)
}

// FeedAll feeds every line of r and returns the number of lines that
// mutated state.
func (t *Tracker) FeedAll(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	changed := 0
	for sc.Scan() {
		if t.Feed(sc.Text()).Mutated() {
			changed++
		}
	}
	return changed, sc.Err()
}

func (t *Tracker) record(field string, v float64) Outcome {
	s, known := t.series[field]
	if !known {
		t.colors[field] = PaletteColor(len(t.fields))
		t.fields = append(t.fields, field)
		s = make([]Value, 0, len(t.times))
	}

	idx := len(t.times) - 1
	outcome := ResidualAppended
	switch {
	case len(s) <= idx:
		for len(s) < idx {
			s = append(s, Absent)
		}
		s = append(s, Present(v))
	case t.policy == KeepFirst:
		t.logger.Debug("dropping repeated residual",
			zap.String("field", field), zap.Float64("time", t.times[idx]), zap.Float64("value", v))
		return ResidualDropped
	case t.policy == KeepLast:
		s[idx] = Present(v)
		outcome = ResidualOverwritten
	default:
		s = append(s, Present(v))
		t.divergences++
		t.logger.Warn("residual series out of step with time axis",
			zap.String("field", field),
			zap.Int("series_len", len(s)),
			zap.Int("time_len", len(t.times)))
	}
	t.series[field] = s
	t.notify(field)
	return outcome
}

func (t *Tracker) notify(field string) {
	if t.observer == nil {
		return
	}
	times, values := t.Points(field)
	t.observer.OnSeriesUpdated(field, t.colors[field], times, values)
}

// Points returns the present (time, value) pairs of a field. Entries past
// the end of the time axis, which only AppendAll can produce, are skipped.
func (t *Tracker) Points(field string) (times, values []float64) {
	s := t.series[field]
	times = make([]float64, 0, len(s))
	values = make([]float64, 0, len(s))
	for i, v := range s {
		if !v.Present || i >= len(t.times) {
			continue
		}
		times = append(times, t.times[i])
		values = append(values, v.V)
	}
	return times, values
}

// Reset discards the run. Calling it on an empty tracker is a no-op apart
// from the observer notification.
func (t *Tracker) Reset() {
	t.times = nil
	t.series = make(map[string][]Value)
	t.fields = nil
	t.colors = make(map[string]Color)
	t.divergences = 0
	if t.observer != nil {
		t.observer.OnReset()
	}
}

// Times returns a copy of the time axis.
func (t *Tracker) Times() []float64 {
	out := make([]float64, len(t.times))
	copy(out, t.times)
	return out
}

// Fields returns field names in order of first appearance.
func (t *Tracker) Fields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// Series returns a copy of one field's values.
func (t *Tracker) Series(field string) ([]Value, bool) {
	s, ok := t.series[field]
	if !ok {
		return nil, false
	}
	out := make([]Value, len(s))
	copy(out, s)
	return out, true
}

// Color returns the palette color assigned to a field.
func (t *Tracker) Color(field string) (Color, bool) {
	c, ok := t.colors[field]
	return c, ok
}

// Len is the time axis length.
func (t *Tracker) Len() int { return len(t.times) }

// Policy returns the duplicate policy in effect.
func (t *Tracker) Policy() DuplicatePolicy { return t.policy }

// Divergences counts the appends that pushed a series past the time axis.
func (t *Tracker) Divergences() int { return t.divergences }

// Consistent reports whether every series is within the time axis.
func (t *Tracker) Consistent() bool {
	for _, s := range t.series {
		if len(s) > len(t.times) {
			return false
		}
	}
	return true
}

// Snapshot deep-copies the current state.
func (t *Tracker) Snapshot() *Snapshot {
	snap := &Snapshot{
		Times:  t.Times(),
		Fields: t.Fields(),
		Series: make(map[string][]Value, len(t.series)),
		Colors: make(map[string]Color, len(t.colors)),
	}
	for f := range t.series {
		snap.Series[f], _ = t.Series(f)
	}
	for f, c := range t.colors {
		snap.Colors[f] = c
	}
	return snap
}
