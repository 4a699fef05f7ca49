package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/san-kum/foamrun/internal/foam"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	ActionConvert     = "convert"
	ActionCheck       = "check"
	ActionDecompose   = "decompose"
	ActionSolve       = "solve"
	ActionReconstruct = "reconstruct"
	ActionClean       = "clean"
	ActionShell       = "shell"
)

var (
	ErrUnknownAction = errors.New("automation: unknown action")
	ErrNoSteps       = errors.New("automation: scenario has no steps")
)

// Scenario is a scripted case workflow, e.g. mesh import through
// reconstruction, loaded from YAML.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one action of a scenario. Empty fields fall back to Defaults.
type Step struct {
	Action     string `yaml:"action"`
	Mesh       string `yaml:"mesh,omitempty"`
	Solver     string `yaml:"solver,omitempty"`
	Processors int    `yaml:"processors,omitempty"`
	Command    string `yaml:"command,omitempty"`
	// clean only: which directories to remove; both when neither is set
	Processor bool `yaml:"processor_dirs,omitempty"`
	Times     bool `yaml:"time_dirs,omitempty"`
	// keep going when this step fails
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
}

// Defaults fill in what a step leaves empty.
type Defaults struct {
	Mesh       string
	Solver     string
	Processors int
}

// Executor runs one child command to completion. *foam.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, cmd foam.Command, fn func(foam.Line)) error
}

// Hooks observe scenario progress. Any of them may be nil.
type Hooks struct {
	StepStarted func(i int, step Step, cmd foam.Command)
	Line        func(i int, step Step, l foam.Line)
	StepDone    func(res StepResult)
}

type StepResult struct {
	Index   int
	Action  string
	Elapsed time.Duration
	// Removed lists directories deleted by a clean step.
	Removed []string
	Err     error
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("automation: parse %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return ErrNoSteps
	}
	for i, step := range s.Steps {
		switch step.Action {
		case ActionConvert, ActionCheck, ActionDecompose, ActionSolve,
			ActionReconstruct, ActionClean, ActionShell:
		default:
			return fmt.Errorf("step %d: %w %q", i+1, ErrUnknownAction, step.Action)
		}
	}
	return nil
}

// Build turns a step into the command that performs it. Clean steps have
// no command and return a zero Command.
func (s Step) Build(env foam.Env, d Defaults) (foam.Command, error) {
	switch s.Action {
	case ActionConvert:
		mesh := s.Mesh
		if mesh == "" {
			mesh = d.Mesh
		}
		return env.ConvertMesh(mesh)
	case ActionCheck:
		return env.CheckMesh(), nil
	case ActionDecompose:
		return env.DecomposePar(), nil
	case ActionSolve:
		solver, np := s.Solver, s.Processors
		if solver == "" {
			solver = d.Solver
		}
		if np == 0 {
			np = d.Processors
		}
		return env.Solve(solver, np)
	case ActionReconstruct:
		return env.ReconstructPar(), nil
	case ActionShell:
		return env.Shell(s.Command)
	case ActionClean:
		return foam.Command{}, nil
	}
	return foam.Command{}, fmt.Errorf("%w %q", ErrUnknownAction, s.Action)
}

// RunScenario executes the steps in order and stops at the first failing
// step unless it is marked continue_on_error. Results cover every step
// attempted.
func RunScenario(ctx context.Context, sc *Scenario, env foam.Env, d Defaults, exec Executor, hooks Hooks, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(sc.Steps))

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		started := time.Now()
		res := StepResult{Index: i, Action: step.Action}

		if step.Action == ActionClean {
			if hooks.StepStarted != nil {
				hooks.StepStarted(i, step, foam.Command{Name: ActionClean})
			}
			res.Removed, res.Err = clean(env.CaseDir, step, logger)
		} else {
			cmd, err := step.Build(env, d)
			if err != nil {
				res.Err = err
			} else {
				if hooks.StepStarted != nil {
					hooks.StepStarted(i, step, cmd)
				}
				logger.Info("scenario step", zap.Int("step", i+1), zap.String("action", step.Action), zap.String("command", cmd.Name))
				res.Err = exec.Run(ctx, cmd, func(l foam.Line) {
					if hooks.Line != nil {
						hooks.Line(i, step, l)
					}
				})
			}
		}

		res.Elapsed = time.Since(started)
		results = append(results, res)
		if hooks.StepDone != nil {
			hooks.StepDone(res)
		}

		if res.Err != nil {
			if step.ContinueOnError {
				logger.Warn("step failed, continuing", zap.Int("step", i+1), zap.Error(res.Err))
				continue
			}
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Action, res.Err)
		}
	}

	return results, nil
}

func clean(caseDir string, step Step, logger *zap.Logger) ([]string, error) {
	procs, times := step.Processor, step.Times
	if !procs && !times {
		procs, times = true, true
	}
	var removed []string
	if procs {
		names, err := foam.CleanProcessors(caseDir, logger)
		if err != nil {
			return removed, err
		}
		removed = append(removed, names...)
	}
	if times {
		names, err := foam.CleanTimeDirs(caseDir, logger)
		if err != nil {
			return removed, err
		}
		removed = append(removed, names...)
	}
	return removed, nil
}
