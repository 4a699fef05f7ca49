package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/san-kum/foamrun/internal/automation"
	"github.com/san-kum/foamrun/internal/foam"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runPipeline executes a scenario file step by step. Output of every step
// is echoed; solve output is also parsed so the residual chart and
// metrics are shown at the end.
func runPipeline(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := newSession(logger)
	if err != nil {
		return err
	}

	var solveTime time.Duration
	hooks := automation.Hooks{
		StepStarted: func(i int, step automation.Step, c foam.Command) {
			fmt.Printf("[%d/%d] %s\n", i+1, len(sc.Steps), c.Name)
			if step.Action == automation.ActionSolve {
				sess.tracker.Reset()
			}
		},
		Line: func(i int, step automation.Step, l foam.Line) {
			if step.Action == automation.ActionSolve {
				sess.tracker.Feed(l.Text)
			}
			if l.Stream == foam.Stderr {
				fmt.Fprintln(os.Stderr, l.Text)
				return
			}
			fmt.Println(l.Text)
		},
		StepDone: func(res automation.StepResult) {
			if res.Action == automation.ActionSolve {
				solveTime += res.Elapsed
			}
			for _, name := range res.Removed {
				fmt.Printf("removed %s\n", name)
			}
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "%s failed: %v\n", res.Action, res.Err)
			}
		},
	}

	name := sc.Name
	if name == "" {
		name = args[0]
	}
	logger.Info("pipeline started", zap.String("scenario", name), zap.Int("steps", len(sc.Steps)))

	_, runErr := automation.RunScenario(ctx, sc, envFromConfig(), automation.Defaults{
		Mesh:       cfg.Mesh,
		Solver:     cfg.Solver,
		Processors: cfg.Processors,
	}, newRunner(logger), hooks, logger)

	if sess.tracker.Len() > 0 {
		fmt.Println()
		fmt.Println(sess.plot.Render())
		sess.logSummary(logger)
		if save {
			status := "completed"
			if runErr != nil {
				status = "failed"
			}
			if err := saveRun(sess, status, solveTime); err != nil {
				logger.Error("saving run failed", zap.Error(err))
			}
		}
	}
	return runErr
}
