package foam

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) Env {
	return Env{Root: "/opt", Version: "openfoam9", CaseDir: t.TempDir()}
}

func TestWrapSourcesBashrc(t *testing.T) {
	e := testEnv(t)
	c := e.CheckMesh()

	assert.Equal(t, "bash", c.Binary)
	require.Len(t, c.Args, 3)
	assert.Equal(t, []string{"-l", "-c"}, c.Args[:2])
	assert.Equal(t, "source /opt/openfoam9/etc/bashrc && checkMesh", c.Args[2])
	assert.Equal(t, e.CaseDir, c.Dir)
	assert.Equal(t, []string{"FOAM_RUN=/opt/openfoam9"}, c.Env)
}

func TestSolve(t *testing.T) {
	e := testEnv(t)

	c, err := e.Solve("interFoam", 6)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(c.Args[2], "&& mpirun -np 6 interFoam -parallel"), c.Args[2])
	assert.Equal(t, "interFoam", c.Name)

	c, err = e.Solve("simpleFoam", 1)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(c.Args[2], "&& simpleFoam"))

	_, err = e.Solve("  ", 4)
	assert.ErrorIs(t, err, ErrNoSolver)
}

func TestConvertMesh(t *testing.T) {
	e := testEnv(t)

	_, err := e.ConvertMesh("")
	assert.ErrorIs(t, err, ErrNoMesh)

	c, err := e.ConvertMesh("/data/my mesh.unv")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(c.Args[2], "ideasUnvToFoam '/data/my mesh.unv'"), c.Args[2])
}

func TestShell(t *testing.T) {
	e := testEnv(t)

	c, err := e.Shell("  foamListTimes -latestTime ")
	require.NoError(t, err)
	assert.Equal(t, "foamListTimes", c.Name)

	_, err = e.Shell(" ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestParaViewCreatesMarker(t *testing.T) {
	e := testEnv(t)

	c, err := e.ParaView()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(e.CaseDir, "foam.foam"))
	assert.Equal(t, []string{"--data=" + filepath.Join(e.CaseDir, "foam.foam")}, c.Args)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "/opt/openfoam9/etc/bashrc", shellQuote("/opt/openfoam9/etc/bashrc"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, "'a;b'", shellQuote("a;b"))
}

func TestDetectVersions(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"openfoam11", "OpenFOAM-v2306", "paraview", "openfoam9"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "openfoam.txt"), nil, 0644))

	versions, found := DetectVersions(root, nil)
	assert.True(t, found)
	assert.Equal(t, []string{"OpenFOAM-v2306", "openfoam11", "openfoam9"}, versions)

	versions, found = DetectVersions(filepath.Join(root, "missing"), nil)
	assert.False(t, found)
	assert.Equal(t, []string{FallbackVersion}, versions)
}

func TestCleanDirs(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"0", "0.5", "1e-3", "100", "constant", "system", "processor0", "processor1"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, d), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "processor.log"), nil, 0644))

	removed, err := CleanProcessors(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"processor0", "processor1"}, removed)
	assert.FileExists(t, filepath.Join(dir, "processor.log"))

	removed, err = CleanTimeDirs(dir, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0.5", "1e-3", "100"}, removed)
	assert.DirExists(t, filepath.Join(dir, "0"))
	assert.DirExists(t, filepath.Join(dir, "constant"))

	removed, err = CleanTimeDirs(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, removed)

	_, err = CleanProcessors(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}
