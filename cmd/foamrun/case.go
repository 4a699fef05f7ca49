package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/san-kum/foamrun/internal/config"
	"github.com/san-kum/foamrun/internal/foam"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runUtility runs a short OpenFOAM utility and echoes its output.
func runUtility(cmd *cobra.Command, c foam.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("$ %s\n", c.Name)
	err := newRunner(logger).Run(ctx, c, func(l foam.Line) {
		if l.Stream == foam.Stderr {
			fmt.Fprintln(os.Stderr, l.Text)
			return
		}
		fmt.Println(l.Text)
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s finished\n", c.Name)
	return nil
}

func convertMesh(cmd *cobra.Command, args []string) error {
	mesh := cfg.Mesh
	if len(args) == 1 {
		mesh = args[0]
	}
	if mesh != "" && !strings.EqualFold(filepath.Ext(mesh), ".unv") {
		logger.Warn("mesh file does not have a .unv extension", zap.String("mesh", mesh))
	}
	c, err := envFromConfig().ConvertMesh(mesh)
	if err != nil {
		return err
	}
	return runUtility(cmd, c)
}

func execShell(cmd *cobra.Command, args []string) error {
	c, err := envFromConfig().Shell(args[0])
	if err != nil {
		return err
	}
	return runUtility(cmd, c)
}

func cleanCase(cmd *cobra.Command, args []string) error {
	if !cleanProcs && !cleanTimes {
		cleanProcs, cleanTimes = true, true
	}

	var removed []string
	if cleanProcs {
		names, err := foam.CleanProcessors(cfg.CaseDir, logger)
		if err != nil {
			return err
		}
		removed = append(removed, names...)
	}
	if cleanTimes {
		names, err := foam.CleanTimeDirs(cfg.CaseDir, logger)
		if err != nil {
			return err
		}
		removed = append(removed, names...)
	}

	if len(removed) == 0 {
		fmt.Println("nothing to clean")
		return nil
	}
	for _, name := range removed {
		fmt.Printf("removed %s\n", name)
	}
	return nil
}

func listVersions(cmd *cobra.Command, args []string) error {
	versions, found := foam.DetectVersions(cfg.OpenFOAM.Root, logger)
	if !found {
		fmt.Printf("no installation under %s, defaulting to %s\n", cfg.OpenFOAM.Root, versions[0])
		return nil
	}
	for _, v := range versions {
		mark := " "
		if v == cfg.OpenFOAM.Version {
			mark = "*"
		}
		fmt.Printf("%s %s\n", mark, v)
	}
	return nil
}

func openParaView(cmd *cobra.Command, args []string) error {
	c, err := envFromConfig().ParaView()
	if err != nil {
		return err
	}
	pid, err := newRunner(logger).Launch(c)
	if err != nil {
		return err
	}
	fmt.Printf("paraview started (pid %d)\n", pid)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	solvers := config.Solvers()
	if len(args) == 1 {
		solvers = []string{args[0]}
	}
	for _, s := range solvers {
		names := config.ListPresets(s)
		if names == nil {
			return fmt.Errorf("no presets for solver %q", s)
		}
		fmt.Printf("%s: %s\n", s, strings.Join(names, ", "))
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
