package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/foamrun/internal/chart"
	"github.com/san-kum/foamrun/internal/follow"
	"github.com/san-kum/foamrun/internal/foam"
	"github.com/san-kum/foamrun/internal/metrics"
	"github.com/san-kum/foamrun/internal/residual"
	"github.com/san-kum/foamrun/internal/storage"
	"github.com/san-kum/foamrun/internal/tui"
	"github.com/san-kum/foamrun/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session is the tracker with its observers for one run.
type session struct {
	tracker *residual.Tracker
	plot    *chart.Plot
	metrics *metrics.Set
}

func newSession(l *zap.Logger, extra ...residual.Observer) (*session, error) {
	patterns, err := cfg.Patterns()
	if err != nil {
		return nil, err
	}
	s := &session{
		plot:    chart.NewPlot(cfg.Chart.Width, cfg.Chart.Height, cfg.Chart.LogScale),
		metrics: metrics.Default(),
	}
	obs := append(residual.Observers{s.plot, s.metrics}, extra...)
	s.tracker = residual.NewTracker(
		residual.WithPatterns(patterns),
		residual.WithPolicy(cfg.Residuals.Duplicates),
		residual.WithObserver(obs),
		residual.WithLogger(l),
	)
	return s, nil
}

func (s *session) attach(o residual.Observer) {
	s.tracker.SetObserver(residual.Observers{s.plot, s.metrics, o})
}

func (s *session) logSummary(l *zap.Logger) {
	fields := []zap.Field{
		zap.Int("steps", s.tracker.Len()),
		zap.Strings("fields", s.tracker.Fields()),
		zap.Int("divergences", s.tracker.Divergences()),
	}
	for name, v := range s.metrics.Values() {
		fields = append(fields, zap.Float64(name, v))
	}
	l.Info("residual summary", fields...)
}

func runSolver(cmd *cobra.Command, args []string) error {
	env := envFromConfig()
	solve, err := env.Solve(cfg.Solver, cfg.Processors)
	if err != nil {
		return err
	}

	l := logger
	if !plain {
		l = fileLogger()
		defer l.Sync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := newSession(l)
	if err != nil {
		return err
	}

	started := time.Now()
	proc, err := newRunner(l).Start(ctx, solve)
	if err != nil {
		return err
	}
	l.Info("solver started",
		zap.String("command", solve.String()),
		zap.Int("pid", proc.Pid()),
		zap.Int("processors", cfg.Processors))

	title := fmt.Sprintf("%s  np=%d  %s", cfg.Solver, cfg.Processors, cfg.CaseDir)
	if plain {
		err = consumePlain(sess, title, proc.Lines(), proc.Wait)
	} else {
		viewErr := consumeInteractive(sess, title, viz.Source{
			Lines: proc.Lines(),
			Wait:  proc.Wait,
			Stop:  proc.Stop,
		})
		// no-op when the solver already exited, otherwise the view was
		// closed early and the remaining output is discarded
		proc.Stop()
		for range proc.Lines() {
		}
		err = proc.Wait()
		if viewErr != nil {
			return viewErr
		}
	}
	if err != nil && ctx.Err() != nil {
		// interrupted from the terminal
		err = foam.ErrStopped
	}
	elapsed := time.Since(started)
	sess.logSummary(l)

	status := "completed"
	var pe *foam.ProcessError
	switch {
	case errors.Is(err, foam.ErrStopped):
		status = "stopped"
	case errors.As(err, &pe):
		status = fmt.Sprintf("failed (exit %d)", pe.ExitCode)
	case err != nil:
		status = "failed"
	}

	if save {
		if saveErr := saveRun(sess, status, elapsed); saveErr != nil {
			logger.Error("saving run failed", zap.Error(saveErr))
		}
	}

	if errors.Is(err, foam.ErrStopped) {
		fmt.Println("run stopped")
		return nil
	}
	return err
}

func saveRun(sess *session, status string, elapsed time.Duration) error {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Solver:      cfg.Solver,
		CaseDir:     cfg.CaseDir,
		Version:     cfg.OpenFOAM.Version,
		Processors:  cfg.Processors,
		Elapsed:     elapsed.Seconds(),
		Status:      status,
		Duplicates:  cfg.Residuals.Duplicates.String(),
		Divergences: sess.tracker.Divergences(),
		Metrics:     sess.metrics.Values(),
	}, sess.tracker.Snapshot())
	if err != nil {
		return err
	}
	fmt.Printf("saved: %s\n", runID)
	return nil
}

// consumePlain feeds every line on the calling goroutine and redraws frames
// inline. Non-residual output is not echoed since the frame overwrites it.
func consumePlain(sess *session, title string, lines <-chan foam.Line, wait func() error) error {
	live := tui.NewLiveRenderer(os.Stdout, title, sess.plot, sess.metrics, cfg.Chart.FrameRate)
	sess.attach(live)
	live.Start()
	defer live.Stop()

	for l := range lines {
		sess.tracker.Feed(l.Text)
	}
	if wait == nil {
		return nil
	}
	return wait()
}

func consumeInteractive(sess *session, title string, src viz.Source) error {
	model := viz.New(viz.Options{
		Title:   title,
		Tracker: sess.tracker,
		Plot:    sess.plot,
		Metrics: sess.metrics,
		Theme:   theme,
	}, src)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func watchLog(cmd *cobra.Command, args []string) error {
	path := args[0]

	l := logger
	if !plain {
		l = fileLogger()
		defer l.Sync()
	}

	sess, err := newSession(l)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []follow.Option{follow.WithLogger(l)}
	if fromEnd {
		opts = append(opts, follow.FromEnd())
	}
	title := "watching " + path

	if plain {
		live := tui.NewLiveRenderer(os.Stdout, title, sess.plot, sess.metrics, cfg.Chart.FrameRate)
		sess.attach(live)
		live.Start()
		defer live.Stop()

		// The follower calls back on its own goroutine only, so the tracker
		// keeps a single owner.
		opts = append(opts, follow.OnRestart(sess.tracker.Reset))
		return follow.New(path, opts...).Run(ctx, func(line string) {
			sess.tracker.Feed(line)
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan foam.Line, 1024)
	restarts := make(chan struct{}, 1)
	opts = append(opts, follow.OnRestart(func() {
		select {
		case restarts <- struct{}{}:
		default:
		}
	}))

	var followErr error
	go func() {
		defer close(lines)
		defer close(restarts)
		followErr = follow.New(path, opts...).Run(ctx, func(line string) {
			select {
			case lines <- foam.Line{Text: line}:
			case <-ctx.Done():
			}
		})
	}()

	model := viz.New(viz.Options{
		Title:   title,
		Tracker: sess.tracker,
		Plot:    sess.plot,
		Metrics: sess.metrics,
		Theme:   theme,
	}, viz.Source{
		Lines:  lines,
		Resets: restarts,
		Wait:   func() error { return followErr },
		Stop:   cancel,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	cancel()
	for range lines {
	}
	return followErr
}

func parseLog(cmd *cobra.Command, args []string) error {
	path := args[0]
	sess, err := newSession(logger)
	if err != nil {
		return err
	}

	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	n, err := sess.tracker.FeedAll(in)
	if err != nil {
		return err
	}
	logger.Debug("log parsed", zap.String("path", path), zap.Int("lines", n))
	sess.logSummary(logger)

	if pngOut == "" && svgOut == "" {
		return sess.tracker.WriteCSV(os.Stdout)
	}
	opts := chart.ImageOptions{Title: fmt.Sprintf("Residuals: %s", path)}
	if pngOut != "" {
		if err := writeImage(sess.plot, pngOut, chart.PNG, opts); err != nil {
			return err
		}
	}
	if svgOut != "" {
		if err := writeImage(sess.plot, svgOut, chart.SVG, opts); err != nil {
			return err
		}
	}
	return nil
}

func writeImage(p *chart.Plot, path string, format chart.Format, opts chart.ImageOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := p.WriteImage(f, format, opts); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
