package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/foamrun/internal/chart"
	"github.com/san-kum/foamrun/internal/metrics"
	"github.com/san-kum/foamrun/internal/residual"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer redraws the residual chart in place on a plain terminal. It
// is registered as a tracker observer after the plot and metric set so
// both are current when a frame is drawn.
type LiveRenderer struct {
	title     string
	plot      *chart.Plot
	metrics   *metrics.Set
	out       io.Writer
	frameRate int
	lastFrame time.Time
	dirty     bool
	now       func() time.Time
}

func NewLiveRenderer(out io.Writer, title string, plot *chart.Plot, set *metrics.Set, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 10
	}
	return &LiveRenderer{
		title:     title,
		plot:      plot,
		metrics:   set,
		out:       out,
		frameRate: frameRate,
		now:       time.Now,
	}
}

func (r *LiveRenderer) OnSeriesUpdated(string, residual.Color, []float64, []float64) {
	r.dirty = true
	r.maybeDraw()
}

func (r *LiveRenderer) OnReset() {
	r.dirty = true
	r.Flush()
}

func (r *LiveRenderer) maybeDraw() {
	if r.now().Sub(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.Flush()
}

// Flush draws a frame if anything changed since the last one.
func (r *LiveRenderer) Flush() {
	if !r.dirty {
		return
	}
	r.lastFrame = r.now()
	r.dirty = false
	fmt.Fprint(r.out, clearScreen+r.Frame())
}

// Frame renders the current chart without terminal control codes.
func (r *LiveRenderer) Frame() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n\n", r.title)
	b.WriteString(r.plot.Render())
	b.WriteString("\n")
	if r.metrics != nil {
		b.WriteString("  " + formatMetrics(r.metrics.Values()) + "\n")
	}
	return b.String()
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }

func (r *LiveRenderer) Stop() {
	r.Flush()
	fmt.Fprint(r.out, showCursor)
}

func formatMetrics(vals map[string]float64) string {
	names := make([]string, 0, len(vals))
	for n := range vals {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%.3g", n, vals[n])
	}
	return strings.Join(parts, "  ")
}
