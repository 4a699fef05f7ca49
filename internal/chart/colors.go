package chart

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/foamrun/internal/residual"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var Subtle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))

// RGB splits a "#rrggbb" color. Malformed input yields white.
func RGB(c residual.Color) (r, g, b uint8) {
	hex := strings.TrimPrefix(string(c), "#")
	if len(hex) != 6 {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// AnsiColor maps a palette color onto the xterm 6x6x6 color cube.
func AnsiColor(c residual.Color) asciigraph.AnsiColor {
	r, g, b := RGB(c)
	level := func(x uint8) int { return (int(x)*5 + 127) / 255 }
	return asciigraph.AnsiColor(16 + 36*level(r) + 6*level(g) + level(b))
}

// DrawingColor converts a palette color for go-chart.
func DrawingColor(c residual.Color) drawing.Color {
	r, g, b := RGB(c)
	return drawing.Color{R: r, G: g, B: b, A: 255}
}
