package viz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/foamrun/internal/chart"
	"github.com/san-kum/foamrun/internal/foam"
	"github.com/san-kum/foamrun/internal/metrics"
	"github.com/san-kum/foamrun/internal/residual"
)

const (
	tailSize  = 8
	batchSize = 256
)

type Status int

const (
	StatusRunning Status = iota
	StatusStopping
	StatusFinished
	StatusStopped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusFinished:
		return "finished"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Source is the line producer behind the view: a solver process or a
// followed log file. Lines must be closed when the source is exhausted.
type Source struct {
	Lines <-chan foam.Line
	// Wait returns the final error once Lines is closed. Nil means the
	// source cannot fail.
	Wait func() error
	// Stop asks the source to end early. Nil disables the stop key.
	Stop func()
	// Resets signals that the producer started over, e.g. a truncated log.
	Resets <-chan struct{}
}

type Options struct {
	Title   string
	Tracker *residual.Tracker
	Plot    *chart.Plot
	Metrics *metrics.Set
	Theme   string
}

type linesMsg []foam.Line

type doneMsg struct{ err error }

type tickMsg time.Time

type resetMsg struct{}

// Model is the live residual view. All tracker mutation happens in Update,
// so the tracker stays single-threaded.
type Model struct {
	opts    Options
	src     Source
	theme   Theme
	st      styles
	spin    spinner.Model
	status  Status
	err     error
	tail    []foam.Line
	started time.Time
	now     time.Time
	width   int
}

func New(opts Options, src Source) Model {
	theme := GetTheme(opts.Theme)
	now := time.Now()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		opts:    opts,
		src:     src,
		theme:   theme,
		st:      newStyles(theme),
		spin:    sp,
		status:  StatusRunning,
		started: now,
		now:     now,
		width:   80,
	}
}

func (m Model) Status() Status { return m.status }

// Err is the source's final error, if any.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForLines(m.src), tick(), m.spin.Tick}
	if m.src.Resets != nil {
		cmds = append(cmds, waitForReset(m.src.Resets))
	}
	return tea.Batch(cmds...)
}

func waitForReset(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return resetMsg{}
	}
}

// waitForLines blocks for the next line, then takes whatever else is
// already buffered so a burst costs one Update.
func waitForLines(src Source) tea.Cmd {
	return func() tea.Msg {
		l, ok := <-src.Lines
		if !ok {
			var err error
			if src.Wait != nil {
				err = src.Wait()
			}
			return doneMsg{err: err}
		}
		batch := linesMsg{l}
		for len(batch) < batchSize {
			select {
			case l, ok := <-src.Lines:
				if !ok {
					return batch
				}
				batch = append(batch, l)
			default:
				return batch
			}
		}
		return batch
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.opts.Plot != nil && msg.Width > 20 {
			m.opts.Plot.Width = msg.Width - 16
		}
		return m, nil

	case linesMsg:
		for _, l := range msg {
			m.opts.Tracker.Feed(l.Text)
			m.pushTail(l)
		}
		return m, waitForLines(m.src)

	case resetMsg:
		m.opts.Tracker.Reset()
		m.tail = nil
		return m, waitForReset(m.src.Resets)

	case doneMsg:
		m.finish(msg.err)
		return m, nil

	case spinner.TickMsg:
		if m.done() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tickMsg:
		m.now = time.Time(msg)
		if m.done() {
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if !m.done() && m.src.Stop != nil {
			m.src.Stop()
		}
		return m, tea.Quit
	case "s":
		if m.status == StatusRunning && m.src.Stop != nil {
			m.status = StatusStopping
			m.src.Stop()
		}
	case "c":
		m.opts.Tracker.Reset()
		m.tail = nil
	case "t":
		m.theme = nextTheme(m.theme.Name)
		m.st = newStyles(m.theme)
	}
	return m, nil
}

func (m *Model) finish(err error) {
	m.err = err
	switch {
	case err == nil:
		if m.status == StatusStopping {
			m.status = StatusStopped
		} else {
			m.status = StatusFinished
		}
	case errors.Is(err, foam.ErrStopped):
		m.status = StatusStopped
		m.err = nil
	default:
		m.status = StatusFailed
	}
}

func (m Model) done() bool {
	return m.status == StatusFinished || m.status == StatusStopped || m.status == StatusFailed
}

func (m *Model) pushTail(l foam.Line) {
	if strings.TrimSpace(l.Text) == "" {
		return
	}
	m.tail = append(m.tail, l)
	if len(m.tail) > tailSize {
		m.tail = m.tail[len(m.tail)-tailSize:]
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.st.title.Render(m.opts.Title))
	b.WriteString("  ")
	b.WriteString(m.statusBadge())
	b.WriteString("  ")
	b.WriteString(m.st.subtle.Render(m.now.Sub(m.started).Truncate(time.Second).String()))
	b.WriteString("\n")
	b.WriteString(m.st.separator(m.width))
	b.WriteString("\n")

	if m.opts.Plot != nil {
		b.WriteString(m.opts.Plot.Render())
		b.WriteString("\n")
	}
	b.WriteString(m.summary())
	b.WriteString("\n")
	b.WriteString(m.st.panel.Render(m.tailView()))
	b.WriteString("\n")
	b.WriteString(m.st.keyHint.Render("q quit  s stop  c clear  t theme"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusBadge() string {
	label := m.status.String()
	switch m.status {
	case StatusRunning:
		return m.st.running.Render(m.spin.View() + label)
	case StatusStopping, StatusStopped:
		return m.st.stopped.Render("■ " + label)
	case StatusFailed:
		if m.err != nil {
			label += ": " + m.err.Error()
		}
		return m.st.failed.Render("✗ " + label)
	}
	return m.st.finished.Render("✓ " + label)
}

func (m Model) summary() string {
	tr := m.opts.Tracker
	parts := []string{
		m.st.label.Render("steps ") + m.st.value.Render(fmt.Sprint(tr.Len())),
		m.st.label.Render("fields ") + m.st.value.Render(fmt.Sprint(len(tr.Fields()))),
	}
	if times := tr.Times(); len(times) > 0 {
		parts = append(parts, m.st.label.Render("t ")+m.st.value.Render(fmt.Sprintf("%g", times[len(times)-1])))
	}
	if m.opts.Metrics != nil {
		vals := m.opts.Metrics.Values()
		names := make([]string, 0, len(vals))
		for n := range vals {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			parts = append(parts, m.st.label.Render(n+" ")+m.st.value.Render(fmt.Sprintf("%.3g", vals[n])))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) tailView() string {
	if len(m.tail) == 0 {
		return m.st.subtle.Render("no output yet")
	}
	maxw := m.width - 6
	lines := make([]string, len(m.tail))
	for i, l := range m.tail {
		text := l.Text
		if maxw > 0 && len(text) > maxw {
			text = text[:maxw]
		}
		if l.Stream == foam.Stderr {
			text = m.st.stderr.Render(text)
		}
		lines[i] = text
	}
	return strings.Join(lines, "\n")
}
