package viz

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/foamrun/internal/chart"
	"github.com/san-kum/foamrun/internal/foam"
	"github.com/san-kum/foamrun/internal/metrics"
	"github.com/san-kum/foamrun/internal/residual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(src Source) (Model, *residual.Tracker) {
	plot := chart.NewPlot(40, 8, true)
	set := metrics.Default()
	tr := residual.NewTracker(residual.WithObserver(residual.Observers{plot, set}))
	return New(Options{Title: "simpleFoam", Tracker: tr, Plot: plot, Metrics: set}, src), tr
}

func feed(lines ...string) Source {
	ch := make(chan foam.Line, len(lines))
	for _, l := range lines {
		ch <- foam.Line{Text: l}
	}
	close(ch)
	return Source{Lines: ch}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModelBatchesAndFeedsLines(t *testing.T) {
	src := feed(
		"Time = 1",
		"GAMG:  Solving for p, Initial residual = 0.5, Final residual = 0.001, No Iterations 4",
		"Time = 2",
	)
	m, tr := newTestModel(src)

	msg := waitForLines(src)()
	batch, ok := msg.(linesMsg)
	require.True(t, ok)
	assert.Len(t, batch, 3)

	m, cmd := update(t, m, batch)
	require.NotNil(t, cmd)
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, []string{"p"}, tr.Fields())
	assert.Len(t, m.tail, 3)

	done, ok := cmd().(doneMsg)
	require.True(t, ok)
	m, _ = update(t, m, done)
	assert.Equal(t, StatusFinished, m.Status())
	assert.NoError(t, m.Err())
}

func TestModelTailIsBounded(t *testing.T) {
	m, _ := newTestModel(feed())
	batch := make(linesMsg, 0, tailSize+5)
	for i := 0; i < tailSize+5; i++ {
		batch = append(batch, foam.Line{Text: "line"})
	}
	batch = append(batch, foam.Line{Text: "   "})
	m, _ = update(t, m, batch)
	assert.Len(t, m.tail, tailSize)
}

func TestModelStopKey(t *testing.T) {
	stopped := 0
	src := feed()
	src.Stop = func() { stopped++ }
	m, _ := newTestModel(src)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.Equal(t, StatusStopping, m.Status())
	assert.Equal(t, 1, stopped)

	// a second press does nothing while stopping
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.Equal(t, 1, stopped)

	m, _ = update(t, m, doneMsg{err: foam.ErrStopped})
	assert.Equal(t, StatusStopped, m.Status())
	assert.NoError(t, m.Err())
}

func TestModelFailure(t *testing.T) {
	m, _ := newTestModel(feed())
	boom := &foam.ProcessError{Command: "simpleFoam", ExitCode: 1, Wrapped: errors.New("exit status 1")}
	m, _ = update(t, m, doneMsg{err: boom})
	assert.Equal(t, StatusFailed, m.Status())
	assert.ErrorIs(t, m.Err(), boom)
	assert.Contains(t, m.View(), "failed")
}

func TestModelClearKeyResetsTracker(t *testing.T) {
	m, tr := newTestModel(feed())
	m, _ = update(t, m, linesMsg{
		{Text: "Time = 1"},
		{Text: "smoothSolver:  Solving for Ux, Initial residual = 1, Final residual = 1e-5, No Iterations 2"},
	})
	require.Equal(t, 1, tr.Len())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Zero(t, tr.Len())
	assert.Empty(t, m.tail)
	assert.Empty(t, m.opts.Plot.Lines())
}

func TestModelQuitStopsRunningSource(t *testing.T) {
	stopped := false
	src := feed()
	src.Stop = func() { stopped = true }
	m, _ := newTestModel(src)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, stopped)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestModelThemeCycle(t *testing.T) {
	m, _ := newTestModel(feed())
	first := m.theme.Name
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	assert.NotEqual(t, first, m.theme.Name)
	assert.Equal(t, Themes[1].Name, m.theme.Name)
}

func TestModelViewShowsSummary(t *testing.T) {
	m, _ := newTestModel(feed())
	m, _ = update(t, m, linesMsg{
		{Text: "Time = 0.25"},
		{Text: "GAMG:  Solving for p, Initial residual = 0.1, Final residual = 1e-4, No Iterations 3"},
		{Text: "--> FOAM Warning", Stream: foam.Stderr},
	})
	view := m.View()
	assert.Contains(t, view, "simpleFoam")
	assert.Contains(t, view, "running")
	assert.Contains(t, view, "steps")
	assert.Contains(t, view, "0.25")
	assert.Contains(t, view, "FOAM Warning")
}

func TestGetTheme(t *testing.T) {
	assert.Equal(t, "ocean", GetTheme("ocean").Name)
	assert.Equal(t, Themes[0].Name, GetTheme("nope").Name)
	assert.Equal(t, []string{"cyberpunk", "minimal", "ocean"}, ThemeNames())
}
