package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/san-kum/foamrun/internal/chart"
	"github.com/san-kum/foamrun/internal/storage"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOLVER\tTIME\tELAPSED\tNP\tSTEPS\tFINAL T\tSTATUS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%d\t%d\t%g\t%s\n",
			run.ID,
			run.Solver,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Elapsed,
			run.Processors,
			run.Steps,
			run.FinalTime,
			run.Status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(cfg.DataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	snap, err := st.LoadResiduals(runID)
	if err != nil {
		return err
	}
	if snap.Len() == 0 {
		return fmt.Errorf("run %s has no residuals", runID)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("solver: %s (np=%d, %s)\n", meta.Solver, meta.Processors, meta.Status)
	fmt.Printf("steps: %d\n\n", snap.Len())

	p := chart.NewPlot(cfg.Chart.Width, cfg.Chart.Height, cfg.Chart.LogScale)
	p.LoadSnapshot(snap)
	fmt.Println(p.Render())
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	snap, err := storage.New(cfg.DataDir).LoadResiduals(args[0])
	if err != nil {
		return err
	}
	return snap.WriteCSV(os.Stdout)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	snap, err := st.LoadResiduals(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, snap)
}

func exportImage(cmd *cobra.Command, args []string) error {
	format, err := chart.FormatFromPath(outFile)
	if err != nil {
		return err
	}

	st := storage.New(cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	snap, err := st.LoadResiduals(args[0])
	if err != nil {
		return err
	}

	p := chart.NewPlot(0, 0, true)
	p.LoadSnapshot(snap)
	title := fmt.Sprintf("%s: %s", meta.Solver, filepath.Base(meta.CaseDir))
	return writeImage(p, outFile, format, chart.ImageOptions{Title: title})
}
