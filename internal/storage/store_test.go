package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/foamrun/internal/residual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(t *testing.T) *residual.Snapshot {
	t.Helper()
	tr := residual.NewTracker()
	_, err := tr.FeedAll(strings.NewReader(`Time = 0.5
smoothSolver:  Solving for Ux, Initial residual = 1, Final residual = 1e-06, No Iterations 3
GAMG:  Solving for p, Initial residual = 1, Final residual = 0.001, No Iterations 10
Time = 1
GAMG:  Solving for p, Initial residual = 0.01, Final residual = 0.0001, No Iterations 6
`))
	require.NoError(t, err)
	return tr.Snapshot()
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.Save(RunMetadata{
		Solver:     "interFoam",
		Processors: 4,
		Status:     "completed",
		Metrics:    map[string]float64{"converged": 0.5},
	}, sampleSnapshot(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runID, "interFoam_"), runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "interFoam", meta.Solver)
	assert.Equal(t, 4, meta.Processors)
	assert.Equal(t, []string{"Ux", "p"}, meta.Fields)
	assert.Equal(t, 2, meta.Steps)
	assert.Equal(t, 1.0, meta.FinalTime)
	assert.Equal(t, 0.5, meta.Metrics["converged"])

	snap, err := st.LoadResiduals(runID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1}, snap.Times)
	assert.Equal(t, []residual.Value{residual.Present(1), residual.Absent}, snap.Series["Ux"])
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, st.Init())
	older := time.Now().Add(-time.Hour)
	_, err = st.Save(RunMetadata{Solver: "simpleFoam", Timestamp: older}, sampleSnapshot(t))
	require.NoError(t, err)
	newer, err := st.Save(RunMetadata{Solver: "pimpleFoam"}, sampleSnapshot(t))
	require.NoError(t, err)

	// stray entries are ignored
	require.NoError(t, os.Mkdir(filepath.Join(st.baseDir, "junk"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(st.baseDir, "notes.txt"), nil, 0644))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer, runs[0].ID)
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	require.NoError(t, st.Init())

	runID, err := st.Save(RunMetadata{ID: "fixed"}, sampleSnapshot(t))
	require.NoError(t, err)
	assert.Equal(t, "fixed", runID)

	assert.FileExists(t, filepath.Join(tmpDir, runID, "metadata.json"))
	assert.FileExists(t, filepath.Join(tmpDir, runID, "residuals.csv"))

	p, err := st.ResidualsPath(runID)
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "Time,Ux,p\n0.5,1,1\n1,,0.01\n", string(data))
}

func TestStoreRejectsPathIDs(t *testing.T) {
	st := New(t.TempDir())
	for _, id := range []string{"", "..", "../etc", `a\b`} {
		_, err := st.Load(id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, RunMetadata{ID: "x"}, sampleSnapshot(t)))

	var got struct {
		Run    RunMetadata           `json:"run"`
		Times  []float64             `json:"times"`
		Series map[string][]*float64 `json:"series"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "x", got.Run.ID)
	require.Len(t, got.Series["Ux"], 2)
	assert.Nil(t, got.Series["Ux"][1])
	assert.Equal(t, 0.01, *got.Series["p"][1])
}
