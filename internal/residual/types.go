package residual

// Color is a hex RGB color such as "#1f77b4".
type Color string

// Palette is the fixed set of line colors handed out to fields in order of
// first appearance. It wraps around once exhausted.
var Palette = []Color{
	"#1f77b4",
	"#ff7f0e",
	"#2ca02c",
	"#d62728",
	"#9467bd",
	"#8c564b",
	"#e377c2",
	"#7f7f7f",
	"#bcbd22",
	"#17becf",
}

// PaletteColor returns the color for the i-th registered field.
func PaletteColor(i int) Color {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// Value is one optional residual observation. Present is false for
// padding inserted where a field reported nothing at a time index.
type Value struct {
	V       float64
	Present bool
}

// Absent is the padding marker.
var Absent = Value{}

// Present wraps an observed residual.
func Present(v float64) Value {
	return Value{V: v, Present: true}
}

// Observer receives chart side effects. Times and values only contain the
// points where the field actually reported a residual.
type Observer interface {
	OnSeriesUpdated(field string, color Color, times, values []float64)
	OnReset()
}

// Observers fans updates out to several observers in order.
type Observers []Observer

func (obs Observers) OnSeriesUpdated(field string, color Color, times, values []float64) {
	for _, o := range obs {
		o.OnSeriesUpdated(field, color, times, values)
	}
}

func (obs Observers) OnReset() {
	for _, o := range obs {
		o.OnReset()
	}
}

// Outcome reports what a single fed line did to the tracker.
type Outcome int

const (
	Ignored Outcome = iota
	TimeAppended
	TimeRepeated
	ResidualAppended
	ResidualOverwritten
	ResidualDropped
	Orphan
	Malformed
)

var outcomeNames = [...]string{
	"ignored",
	"time_appended",
	"time_repeated",
	"residual_appended",
	"residual_overwritten",
	"residual_dropped",
	"orphan",
	"malformed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Mutated reports whether the outcome changed tracker state.
func (o Outcome) Mutated() bool {
	switch o {
	case TimeAppended, ResidualAppended, ResidualOverwritten:
		return true
	}
	return false
}
