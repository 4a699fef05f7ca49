package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/foamrun/internal/foam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	ran  []string
	fail map[string]error
	out  map[string][]string
}

func (f *fakeExec) Run(ctx context.Context, cmd foam.Command, fn func(foam.Line)) error {
	f.ran = append(f.ran, cmd.Name)
	for _, l := range f.out[cmd.Name] {
		fn(foam.Line{Text: l})
	}
	return f.fail[cmd.Name]
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
name: mixer
description: import and run
steps:
  - action: convert
    mesh: mixer.unv
  - action: decompose
  - action: solve
    solver: interFoam
    processors: 4
  - action: reconstruct
`)
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "mixer", sc.Name)
	require.Len(t, sc.Steps, 4)
	assert.Equal(t, 4, sc.Steps[2].Processors)
}

func TestLoadScenarioRejectsUnknownAction(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "steps:\n  - action: mesh-it\n"))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = LoadScenario(writeScenario(t, "name: empty\n"))
	assert.ErrorIs(t, err, ErrNoSteps)
}

func TestStepBuildUsesDefaults(t *testing.T) {
	env := foam.Env{Root: "/opt", Version: "openfoam9", CaseDir: "/case"}
	d := Defaults{Mesh: "/meshes/a.unv", Solver: "simpleFoam", Processors: 2}

	cmd, err := Step{Action: ActionSolve}.Build(env, d)
	require.NoError(t, err)
	assert.Equal(t, "simpleFoam", cmd.Name)
	assert.Contains(t, cmd.Args[len(cmd.Args)-1], "mpirun -np 2 simpleFoam -parallel")

	cmd, err = Step{Action: ActionSolve, Solver: "pimpleFoam", Processors: 1}.Build(env, d)
	require.NoError(t, err)
	assert.NotContains(t, cmd.Args[len(cmd.Args)-1], "mpirun")

	cmd, err = Step{Action: ActionConvert}.Build(env, d)
	require.NoError(t, err)
	assert.Contains(t, cmd.Args[len(cmd.Args)-1], "/meshes/a.unv")

	_, err = Step{Action: ActionConvert}.Build(env, Defaults{})
	assert.ErrorIs(t, err, foam.ErrNoMesh)
}

func TestRunScenarioInOrder(t *testing.T) {
	caseDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(caseDir, "processor0"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(caseDir, "0.5"), 0755))

	sc := &Scenario{Steps: []Step{
		{Action: ActionCheck},
		{Action: ActionSolve},
		{Action: ActionClean, Processor: true},
	}}
	exec := &fakeExec{out: map[string][]string{"simpleFoam": {"Time = 1", "End"}}}
	env := foam.Env{Root: "/opt", Version: "openfoam9", CaseDir: caseDir}

	var seen []string
	var started []string
	hooks := Hooks{
		StepStarted: func(i int, step Step, cmd foam.Command) { started = append(started, cmd.Name) },
		Line:        func(i int, step Step, l foam.Line) { seen = append(seen, step.Action+":"+l.Text) },
	}
	results, err := RunScenario(context.Background(), sc, env, Defaults{Solver: "simpleFoam", Processors: 1}, exec, hooks, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"checkMesh", "simpleFoam"}, exec.ran)
	assert.Equal(t, []string{"checkMesh", "simpleFoam", "clean"}, started)
	assert.Equal(t, []string{"solve:Time = 1", "solve:End"}, seen)
	assert.Equal(t, []string{"processor0"}, results[2].Removed)
	assert.DirExists(t, filepath.Join(caseDir, "0.5"))
}

func TestRunScenarioStopsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	exec := &fakeExec{fail: map[string]error{"decomposePar": boom}}
	sc := &Scenario{Steps: []Step{
		{Action: ActionDecompose},
		{Action: ActionSolve},
	}}

	results, err := RunScenario(context.Background(), sc, foam.Env{CaseDir: t.TempDir()}, Defaults{Solver: "icoFoam"}, exec, Hooks{}, nil)
	require.ErrorIs(t, err, boom)
	assert.True(t, strings.HasPrefix(err.Error(), "step 1 (decompose)"))
	assert.Len(t, results, 1)
	assert.Equal(t, []string{"decomposePar"}, exec.ran)
}

func TestRunScenarioContinueOnError(t *testing.T) {
	boom := errors.New("boom")
	exec := &fakeExec{fail: map[string]error{"checkMesh": boom}}
	sc := &Scenario{Steps: []Step{
		{Action: ActionCheck, ContinueOnError: true},
		{Action: ActionReconstruct},
	}}

	var done []StepResult
	results, err := RunScenario(context.Background(), sc, foam.Env{}, Defaults{}, exec, Hooks{
		StepDone: func(r StepResult) { done = append(done, r) },
	}, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Len(t, done, 2)
}

func TestRunScenarioCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &fakeExec{}
	_, err := RunScenario(ctx, &Scenario{Steps: []Step{{Action: ActionCheck}}}, foam.Env{}, Defaults{}, exec, Hooks{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.ran)
}
