//go:build unix

package foam

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func sh(script string) Command {
	return Command{Name: "sh", Binary: "sh", Args: []string{"-c", script}}
}

func TestRunCollectsBothStreams(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRunner(nil, time.Second)
	var stdout, stderr []string
	err := r.Run(context.Background(), sh("echo 'Time = 0.1'; echo oops >&2; echo 'Time = 0.2'"), func(l Line) {
		if l.Stream == Stderr {
			stderr = append(stderr, l.Text)
		} else {
			stdout = append(stdout, l.Text)
		}
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Time = 0.1", "Time = 0.2"}, stdout)
	assert.Equal(t, []string{"oops"}, stderr)
}

func TestRunReportsExitCode(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRunner(nil, time.Second)
	err := r.Run(context.Background(), sh("echo partial; exit 3"), nil)

	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.ExitCode)
	assert.Equal(t, "sh", pe.Command)
}

func TestStopTerminatesProcess(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRunner(nil, 500*time.Millisecond)
	p, err := r.Start(context.Background(), sh("echo ready; sleep 30"))
	require.NoError(t, err)
	assert.Positive(t, p.Pid())

	first := <-p.Lines()
	assert.Equal(t, "ready", first.Text)

	start := time.Now()
	p.Stop()
	p.Stop()
	for range p.Lines() {
	}
	assert.ErrorIs(t, p.Wait(), ErrStopped)
	assert.Less(t, time.Since(start), 10*time.Second)

	// stopping a finished process is a no-op
	p.Stop()
	assert.ErrorIs(t, p.Wait(), ErrStopped)
}

func TestContextCancelStopsProcess(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(nil, 500*time.Millisecond)
	p, err := r.Start(ctx, sh("sleep 30"))
	require.NoError(t, err)

	cancel()
	for range p.Lines() {
	}
	select {
	case <-p.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit after cancel")
	}
	assert.Error(t, p.Wait())
}

func TestStartErrors(t *testing.T) {
	r := NewRunner(nil, 0)

	_, err := r.Start(context.Background(), Command{})
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = r.Start(context.Background(), Command{Binary: "/nonexistent/foamrun-test-binary"})
	assert.Error(t, err)
}
