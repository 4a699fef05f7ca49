package foam

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGrace = 5 * time.Second
	lineBuffer   = 256
	maxLineBytes = 1 << 20
)

// Stream tells which pipe a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of child output, without its newline.
type Line struct {
	Text   string
	Stream Stream
}

// ProcessError reports a child that exited unsuccessfully.
type ProcessError struct {
	Command  string
	ExitCode int
	Wrapped  error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("foam: %s exited with code %d", e.Command, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Wrapped
}

// Runner starts child processes.
type Runner struct {
	logger *zap.Logger
	grace  time.Duration
}

func NewRunner(logger *zap.Logger, grace time.Duration) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Runner{logger: logger, grace: grace}
}

// Process is a running child. Callers must drain Lines until it is closed,
// then call Wait.
type Process struct {
	cmd     *exec.Cmd
	name    string
	lines   chan Line
	done    chan struct{}
	cancel  context.CancelFunc
	started time.Time

	mu      sync.Mutex
	stopped bool
	err     error
}

// Start launches cmd with stdout and stderr merged into one line stream.
// Canceling ctx or calling Stop sends SIGTERM to the process group and
// kills it after the grace period.
func (r *Runner) Start(ctx context.Context, cmd Command) (*Process, error) {
	if cmd.Binary == "" {
		return nil, ErrEmptyCommand
	}
	ctx, cancel := context.WithCancel(ctx)

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.WaitDelay = r.grace
	setProcessGroup(c)

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	c.Stdout = outW
	c.Stderr = errW

	name := cmd.Name
	if name == "" {
		name = cmd.Binary
	}
	p := &Process{
		cmd:    c,
		name:   name,
		lines:  make(chan Line, lineBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	r.logger.Info("starting process", zap.String("name", name), zap.String("command", cmd.String()), zap.String("dir", cmd.Dir))
	if err := c.Start(); err != nil {
		cancel()
		outW.Close()
		errW.Close()
		return nil, fmt.Errorf("foam: start %s: %w", name, err)
	}
	p.started = time.Now()

	var g errgroup.Group
	g.Go(func() error { return p.scan(outR, Stdout) })
	g.Go(func() error { return p.scan(errR, Stderr) })

	go func() {
		waitErr := c.Wait()
		if ctx.Err() != nil {
			killProcessGroup(c)
		}
		outW.Close()
		errW.Close()
		scanErr := g.Wait()
		close(p.lines)

		err := p.classify(waitErr)
		if err == nil && scanErr != nil {
			err = fmt.Errorf("foam: read %s output: %w", name, scanErr)
		}
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()

		fields := []zap.Field{zap.String("name", name), zap.Duration("elapsed", time.Since(p.started))}
		if err != nil {
			r.logger.Warn("process finished", append(fields, zap.Error(err))...)
		} else {
			r.logger.Info("process finished", fields...)
		}
		cancel()
		close(p.done)
	}()

	return p, nil
}

func (p *Process) scan(r io.Reader, s Stream) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		p.lines <- Line{Text: sc.Text(), Stream: s}
	}
	if err := sc.Err(); err != nil {
		// unblock the writer so Wait can return
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

func (p *Process) classify(waitErr error) error {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	if waitErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ProcessError{Command: p.name, ExitCode: exitErr.ExitCode(), Wrapped: waitErr}
	}
	return waitErr
}

// Name is the command label.
func (p *Process) Name() string { return p.name }

// Pid is the child's process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Lines delivers output in arrival order per stream. It is closed once
// both pipes reach EOF.
func (p *Process) Lines() <-chan Line { return p.lines }

// Done is closed when the process has exited and Lines is closed.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the process exits. It returns ErrStopped after Stop,
// a *ProcessError for a non-zero exit, or nil.
func (p *Process) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop terminates the process group. It is safe to call more than once.
func (p *Process) Stop() {
	p.mu.Lock()
	select {
	case <-p.done:
		p.mu.Unlock()
		return
	default:
	}
	p.stopped = true
	p.mu.Unlock()
	p.cancel()
}

// Run starts cmd, hands every line to fn on the calling goroutine and
// waits for the exit status.
func (r *Runner) Run(ctx context.Context, cmd Command, fn func(Line)) error {
	p, err := r.Start(ctx, cmd)
	if err != nil {
		return err
	}
	for l := range p.Lines() {
		if fn != nil {
			fn(l)
		}
	}
	return p.Wait()
}

// Launch starts a detached program such as ParaView and does not wait for
// it. The child is reaped in the background.
func (r *Runner) Launch(cmd Command) (int, error) {
	if cmd.Binary == "" {
		return 0, ErrEmptyCommand
	}
	c := exec.Command(cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	if err := c.Start(); err != nil {
		return 0, fmt.Errorf("foam: launch %s: %w", cmd.Binary, err)
	}
	r.logger.Info("launched", zap.String("command", cmd.String()), zap.Int("pid", c.Process.Pid))
	go func() { _ = c.Wait() }()
	return c.Process.Pid, nil
}
