package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/foamrun/internal/residual"
)

const (
	DefaultWidth  = 72
	DefaultHeight = 14
)

// Line is one plotted residual curve.
type Line struct {
	Field  string
	Color  residual.Color
	Times  []float64
	Values []float64
}

// Plot is the in-memory chart: one line per field, replaced wholesale on
// every update. It implements residual.Observer.
type Plot struct {
	lines    map[string]*Line
	order    []string
	Width    int
	Height   int
	LogScale bool
}

// NewPlot returns an empty plot. Non-positive sizes use the defaults.
func NewPlot(width, height int, logScale bool) *Plot {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Plot{
		lines:    make(map[string]*Line),
		Width:    width,
		Height:   height,
		LogScale: logScale,
	}
}

// OnSeriesUpdated replaces the field's line with the given points.
func (p *Plot) OnSeriesUpdated(field string, color residual.Color, times, values []float64) {
	l, ok := p.lines[field]
	if !ok {
		l = &Line{Field: field}
		p.lines[field] = l
		p.order = append(p.order, field)
	}
	l.Color = color
	l.Times = append(l.Times[:0], times...)
	l.Values = append(l.Values[:0], values...)
}

// OnReset removes every line.
func (p *Plot) OnReset() {
	p.lines = make(map[string]*Line)
	p.order = nil
}

// Lines returns the plotted lines in registration order.
func (p *Plot) Lines() []Line {
	out := make([]Line, 0, len(p.order))
	for _, f := range p.order {
		out = append(out, *p.lines[f])
	}
	return out
}

// LoadSnapshot replaces the plot content with a stored run.
func (p *Plot) LoadSnapshot(snap *residual.Snapshot) {
	p.OnReset()
	for _, f := range snap.Fields {
		var ts, vs []float64
		for i, v := range snap.Series[f] {
			if v.Present && i < len(snap.Times) {
				ts = append(ts, snap.Times[i])
				vs = append(vs, v.V)
			}
		}
		if len(ts) > 0 {
			p.OnSeriesUpdated(f, snap.Colors[f], ts, vs)
		}
	}
}

// Render draws the lines as an ASCII chart followed by a colored legend.
// Each column holds the latest value at or before its time, so lines with
// different reporting times share one axis.
func (p *Plot) Render() string {
	lines := p.Lines()
	for i := range lines {
		lines[i].Times, lines[i].Values = latestRun(lines[i].Times, lines[i].Values)
	}
	tmin, tmax := math.Inf(1), math.Inf(-1)
	for _, l := range lines {
		for _, t := range l.Times {
			tmin = math.Min(tmin, t)
			tmax = math.Max(tmax, t)
		}
	}
	if math.IsInf(tmin, 1) {
		return Subtle.Render("waiting for residuals...")
	}

	data := make([][]float64, 0, len(lines))
	colors := make([]asciigraph.AnsiColor, 0, len(lines))
	for _, l := range lines {
		col := p.resample(l, tmin, tmax)
		if !hasFinite(col) {
			continue
		}
		data = append(data, col)
		colors = append(colors, AnsiColor(l.Color))
	}
	if len(data) == 0 {
		return Subtle.Render("no plottable residuals")
	}

	caption := "initial residual"
	if p.LogScale {
		caption = "log10(initial residual)"
	}
	caption = fmt.Sprintf("%s, t = %s .. %s", caption, trimFloat(tmin), trimFloat(tmax))

	graph := asciigraph.PlotMany(data,
		asciigraph.Height(p.Height),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	)
	return graph + "\n" + p.Legend()
}

// Legend renders "field value" entries in each line's color.
func (p *Plot) Legend() string {
	parts := make([]string, 0, len(p.order))
	for _, f := range p.order {
		l := p.lines[f]
		label := f
		if n := len(l.Values); n > 0 {
			label = fmt.Sprintf("%s %.3g", f, l.Values[n-1])
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(string(l.Color))).Render("━ "+label))
	}
	return strings.Join(parts, "  ")
}

// latestRun drops samples superseded by a restart. When the time goes
// back, earlier samples at or after the new time are discarded, so the
// result is strictly increasing and later output wins.
func latestRun(times, values []float64) ([]float64, []float64) {
	ts := make([]float64, 0, len(times))
	vs := make([]float64, 0, len(values))
	for i, t := range times {
		n := len(ts)
		for n > 0 && ts[n-1] >= t {
			n--
		}
		ts = append(ts[:n], t)
		vs = append(vs[:n], values[i])
	}
	return ts, vs
}

// resample expects l.Times strictly increasing, see latestRun.
func (p *Plot) resample(l Line, tmin, tmax float64) []float64 {
	out := make([]float64, p.Width)
	span := tmax - tmin
	for i := range out {
		t := tmax
		if p.Width > 1 {
			t = tmin + span*float64(i)/float64(p.Width-1)
		}
		// index of the last sample with time <= t
		k := sort.Search(len(l.Times), func(j int) bool { return l.Times[j] > t }) - 1
		if k < 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = p.scale(l.Values[k])
	}
	return out
}

func (p *Plot) scale(v float64) float64 {
	if !p.LogScale {
		return v
	}
	if v <= 0 {
		return math.NaN()
	}
	return math.Log10(v)
}

func hasFinite(vals []float64) bool {
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
