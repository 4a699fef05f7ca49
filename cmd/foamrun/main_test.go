package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/foamrun/internal/config"
	"github.com/san-kum/foamrun/internal/residual"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	logger = zap.NewNop()
	configFile, preset = "", ""

	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().StringVar(&configFile, "config", "", "")
	cmd.Flags().StringVarP(&solver, "solver", "s", config.DefaultSolver, "")
	cmd.Flags().IntVarP(&processors, "np", "n", config.DefaultProcessors, "")
	cmd.Flags().StringVar(&preset, "preset", "", "")
	addTrackerFlags(cmd)
	addLiveFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig(newTestCommand(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSolver, c.Solver)
	assert.Equal(t, residual.AppendAll, c.Residuals.Duplicates)
	assert.True(t, c.Chart.LogScale)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foamrun.yaml")
	file := config.DefaultConfig()
	file.Solver = "simpleFoam"
	file.Processors = 2
	require.NoError(t, config.Save(path, file))

	c, err := loadConfig(newTestCommand(t, "--config", path, "-n", "8", "--duplicates", "last", "--linear"))
	require.NoError(t, err)
	assert.Equal(t, "simpleFoam", c.Solver)
	assert.Equal(t, 8, c.Processors)
	assert.Equal(t, residual.KeepLast, c.Residuals.Duplicates)
	assert.False(t, c.Chart.LogScale)
}

func TestLoadConfigPreset(t *testing.T) {
	c, err := loadConfig(newTestCommand(t, "-s", "pimpleFoam", "--preset", "first-corrector"))
	require.NoError(t, err)
	assert.Equal(t, 4, c.Processors)
	assert.Equal(t, residual.KeepFirst, c.Residuals.Duplicates)

	_, err = loadConfig(newTestCommand(t, "-s", "pimpleFoam", "--preset", "nope"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadPolicy(t *testing.T) {
	_, err := loadConfig(newTestCommand(t, "--duplicates", "sometimes"))
	assert.ErrorIs(t, err, residual.ErrUnknownPolicy)
}

func TestLoadConfigExtraSolverTags(t *testing.T) {
	c, err := loadConfig(newTestCommand(t, "--solver-tag", "myAMG"))
	require.NoError(t, err)
	assert.Equal(t, []string{"myAMG"}, c.Residuals.SolverTags)

	p, err := c.Patterns()
	require.NoError(t, err)
	assert.Contains(t, p.Tags(), "myAMG")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(newTestCommand(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
