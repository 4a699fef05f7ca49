package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/foamrun/internal/config"
	"github.com/san-kum/foamrun/internal/foam"
	"github.com/san-kum/foamrun/internal/residual"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile  string
	dataDir     string
	caseDir     string
	foamRoot    string
	foamVersion string
	verbose     bool

	solver     string
	processors int
	preset     string
	duplicates string
	solverTags []string
	chartH     int
	chartW     int
	linear     bool
	frameRate  int
	plain      bool
	save       bool
	theme      string
	fromEnd    bool
	pngOut     string
	svgOut     string
	outFile    string
	cleanProcs bool
	cleanTimes bool

	logger *zap.Logger
	cfg    *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "foamrun",
		Short:         "run OpenFOAM cases and watch residuals converge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			cfg, err = loadConfig(cmd)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "run history directory")
	pf.StringVarP(&caseDir, "case", "C", ".", "OpenFOAM case directory")
	pf.StringVar(&foamRoot, "foam-root", config.DefaultFoamRoot, "directory holding OpenFOAM installations")
	pf.StringVar(&foamVersion, "foam-version", config.DefaultVersion, "OpenFOAM installation to source")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the solver and plot residuals live",
		Args:  cobra.NoArgs,
		RunE:  runSolver,
	}
	runCmd.Flags().StringVarP(&solver, "solver", "s", config.DefaultSolver, "solver application")
	runCmd.Flags().IntVarP(&processors, "np", "n", config.DefaultProcessors, "MPI processes (1 runs serial)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().BoolVar(&save, "save", false, "store the residual history after the run")
	addTrackerFlags(runCmd)
	addLiveFlags(runCmd)

	watchCmd := &cobra.Command{
		Use:   "watch [logfile]",
		Short: "plot residuals from a growing solver log",
		Args:  cobra.ExactArgs(1),
		RunE:  watchLog,
	}
	watchCmd.Flags().BoolVar(&fromEnd, "from-end", false, "skip what is already in the log")
	addTrackerFlags(watchCmd)
	addLiveFlags(watchCmd)

	parseCmd := &cobra.Command{
		Use:   "parse [logfile]",
		Short: "parse a finished log into CSV (stdout) or a chart image",
		Args:  cobra.ExactArgs(1),
		RunE:  parseLog,
	}
	parseCmd.Flags().StringVar(&pngOut, "png", "", "write a PNG chart to this file")
	parseCmd.Flags().StringVar(&svgOut, "svg", "", "write an SVG chart to this file")
	addTrackerFlags(parseCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&chartH, "height", 0, "chart height in rows")
	plotCmd.Flags().IntVar(&chartW, "width", 0, "chart width in columns")
	plotCmd.Flags().BoolVar(&linear, "linear", false, "plot raw residuals instead of log10")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a stored run's residual table to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a stored run with metadata as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportImageCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render a stored run to PNG or SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportImage,
	}
	exportImageCmd.Flags().StringVarP(&outFile, "output", "o", "residuals.png", "output file (.png or .svg)")

	convertCmd := &cobra.Command{
		Use:   "convert [mesh.unv]",
		Short: "import an I-DEAS universal mesh with ideasUnvToFoam",
		Args:  cobra.MaximumNArgs(1),
		RunE:  convertMesh,
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "run checkMesh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUtility(cmd, envFromConfig().CheckMesh())
		},
	}

	decomposeCmd := &cobra.Command{
		Use:   "decompose",
		Short: "run decomposePar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUtility(cmd, envFromConfig().DecomposePar())
		},
	}

	reconstructCmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "run reconstructPar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUtility(cmd, envFromConfig().ReconstructPar())
		},
	}

	execCmd := &cobra.Command{
		Use:   "exec [command line]",
		Short: "run a command inside the OpenFOAM environment",
		Args:  cobra.ExactArgs(1),
		RunE:  execShell,
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "remove processor and time directories from the case",
		Args:  cobra.NoArgs,
		RunE:  cleanCase,
	}
	cleanCmd.Flags().BoolVar(&cleanProcs, "processors", false, "remove processor* directories")
	cleanCmd.Flags().BoolVar(&cleanTimes, "times", false, "remove time directories after 0")

	versionsCmd := &cobra.Command{
		Use:   "versions",
		Short: "list OpenFOAM installations",
		Args:  cobra.NoArgs,
		RunE:  listVersions,
	}

	paraviewCmd := &cobra.Command{
		Use:   "paraview",
		Short: "open the case in ParaView",
		Args:  cobra.NoArgs,
		RunE:  openParaView,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [solver]",
		Short: "list solver presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	pipelineCmd := &cobra.Command{
		Use:   "pipeline [scenario.yaml]",
		Short: "run a scripted case workflow (convert, decompose, solve, ...)",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipeline,
	}
	pipelineCmd.Flags().StringVarP(&solver, "solver", "s", config.DefaultSolver, "default solver for solve steps")
	pipelineCmd.Flags().IntVarP(&processors, "np", "n", config.DefaultProcessors, "default MPI processes for solve steps")
	pipelineCmd.Flags().BoolVar(&save, "save", false, "store the residual history of the last solve")
	addTrackerFlags(pipelineCmd)

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the effective configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}

	rootCmd.AddCommand(runCmd, watchCmd, parseCmd, listCmd, plotCmd,
		exportCSVCmd, exportJSONCmd, exportImageCmd,
		convertCmd, checkCmd, decomposeCmd, reconstructCmd, execCmd, cleanCmd,
		versionsCmd, paraviewCmd, presetsCmd, pipelineCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addTrackerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&duplicates, "duplicates", residual.AppendAll.String(), "repeated field per time step: append, first or last")
	cmd.Flags().StringSliceVar(&solverTags, "solver-tag", nil, "extra linear solver names to recognize")
}

func addLiveFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&plain, "plain", false, "redraw frames on stdout instead of the interactive view")
	cmd.Flags().StringVar(&theme, "theme", "cyberpunk", "interactive view theme")
	cmd.Flags().IntVar(&chartH, "height", 0, "chart height in rows")
	cmd.Flags().IntVar(&chartW, "width", 0, "chart width in columns")
	cmd.Flags().BoolVar(&linear, "linear", false, "plot raw residuals instead of log10")
	cmd.Flags().IntVar(&frameRate, "fps", config.DefaultFrameRate, "plain mode frame rate")
}

func newLogger(debug bool, outputs ...string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if len(outputs) > 0 {
		zc.OutputPaths = outputs
		zc.ErrorOutputPaths = outputs
	}
	return zc.Build()
}

// fileLogger sends logs to the data dir so they do not tear the
// interactive view.
func fileLogger() *zap.Logger {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return zap.NewNop()
	}
	l, err := newLogger(verbose, filepath.Join(cfg.DataDir, "foamrun.log"))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("solver") {
		c.Solver = solver
	}
	if preset != "" {
		p := config.GetPreset(c.Solver, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for %s (available: %v)", preset, c.Solver, config.ListPresets(c.Solver))
		}
		c.Apply(p)
	}
	if flags.Changed("data") {
		c.DataDir = dataDir
	}
	if flags.Changed("case") {
		c.CaseDir = caseDir
	}
	if flags.Changed("foam-root") {
		c.OpenFOAM.Root = foamRoot
	}
	if flags.Changed("foam-version") {
		c.OpenFOAM.Version = foamVersion
	}
	if flags.Changed("np") {
		c.Processors = processors
	}
	if flags.Changed("duplicates") {
		p, err := residual.ParsePolicy(duplicates)
		if err != nil {
			return nil, err
		}
		c.Residuals.Duplicates = p
	}
	if flags.Changed("solver-tag") {
		c.Residuals.SolverTags = append(c.Residuals.SolverTags, solverTags...)
	}
	if flags.Changed("height") {
		c.Chart.Height = chartH
	}
	if flags.Changed("width") {
		c.Chart.Width = chartW
	}
	if flags.Changed("linear") {
		c.Chart.LogScale = !linear
	}
	if flags.Changed("fps") {
		c.Chart.FrameRate = frameRate
	}
	if err := c.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		zap.String("case", c.CaseDir),
		zap.String("solver", c.Solver),
		zap.Int("processors", c.Processors),
		zap.Stringer("duplicates", c.Residuals.Duplicates))
	return c, nil
}

func envFromConfig() foam.Env {
	return foam.Env{
		Root:    cfg.OpenFOAM.Root,
		Version: cfg.OpenFOAM.Version,
		CaseDir: cfg.CaseDir,
	}
}

func newRunner(l *zap.Logger) *foam.Runner {
	grace := time.Duration(cfg.OpenFOAM.StopGrace * float64(time.Second))
	return foam.NewRunner(l, grace)
}
