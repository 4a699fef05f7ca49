package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("chart: no residual data to render")

// Format selects the image encoder.
type Format int

const (
	PNG Format = iota
	SVG
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".svg":
		return SVG, nil
	}
	return PNG, fmt.Errorf("chart: unsupported image extension %q (want .png or .svg)", filepath.Ext(path))
}

// ImageOptions sizes the exported chart.
type ImageOptions struct {
	Title  string
	Width  int
	Height int
}

// WriteImage renders the plot's lines with go-chart. Residuals are drawn
// as log10 when the plot is in log scale.
func (p *Plot) WriteImage(w io.Writer, format Format, opts ImageOptions) error {
	series := make([]gochart.Series, 0, len(p.order))
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, l := range p.Lines() {
		times, values := latestRun(l.Times, l.Values)
		xs, ys := make([]float64, 0, len(times)), make([]float64, 0, len(values))
		for i := range times {
			y := p.scale(values[i])
			if math.IsNaN(y) || math.IsInf(y, 0) {
				continue
			}
			xs = append(xs, times[i])
			ys = append(ys, y)
			xmin, xmax = math.Min(xmin, times[i]), math.Max(xmax, times[i])
			ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
		}
		if len(xs) == 0 {
			continue
		}
		col := DrawingColor(l.Color)
		series = append(series, gochart.ContinuousSeries{
			Name:    l.Field,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeWidth: 2,
				StrokeColor: col,
			},
		})
	}
	if len(series) == 0 {
		return ErrNoData
	}

	yName := "initial residual"
	if p.LogScale {
		yName = "log10(initial residual)"
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 512
	}

	ch := gochart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: "time"},
		YAxis:      gochart.YAxis{Name: yName},
		Series:     series,
	}
	// go-chart rejects zero-width ranges
	if xmin == xmax {
		ch.XAxis.Range = &gochart.ContinuousRange{Min: xmin - 0.5, Max: xmax + 0.5}
	}
	if ymin == ymax {
		ch.YAxis.Range = &gochart.ContinuousRange{Min: ymin - 1, Max: ymax + 1}
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	provider := gochart.PNG
	if format == SVG {
		provider = gochart.SVG
	}
	return ch.Render(provider, w)
}
