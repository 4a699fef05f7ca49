package foam

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrNoMesh       = errors.New("foam: no mesh file selected")
	ErrNoSolver     = errors.New("foam: no solver selected")
	ErrEmptyCommand = errors.New("foam: empty command")
	ErrStopped      = errors.New("foam: process stopped")
)

// Command is a child process to run.
type Command struct {
	Name   string
	Binary string
	Args   []string
	Dir    string
	// extra KEY=VALUE pairs on top of os.Environ()
	Env []string
}

func (c Command) String() string {
	parts := append([]string{c.Binary}, c.Args...)
	for i, p := range parts {
		parts[i] = shellQuote(p)
	}
	return strings.Join(parts, " ")
}

// CheckMesh runs checkMesh in the case directory.
func (e Env) CheckMesh() Command {
	return e.Wrap("checkMesh", "checkMesh")
}

// ConvertMesh imports an I-DEAS universal mesh with ideasUnvToFoam.
func (e Env) ConvertMesh(unvPath string) (Command, error) {
	if unvPath == "" {
		return Command{}, ErrNoMesh
	}
	abs, err := filepath.Abs(unvPath)
	if err != nil {
		return Command{}, err
	}
	return e.Wrap("ideasUnvToFoam", "ideasUnvToFoam "+shellQuote(abs)), nil
}

// DecomposePar splits the case for a parallel run.
func (e Env) DecomposePar() Command {
	return e.Wrap("decomposePar", "decomposePar")
}

// ReconstructPar merges processor directories back into the case.
func (e Env) ReconstructPar() Command {
	return e.Wrap("reconstructPar", "reconstructPar")
}

// Solve launches the solver, under mpirun when np > 1.
func (e Env) Solve(solver string, np int) (Command, error) {
	solver = strings.TrimSpace(solver)
	if solver == "" {
		return Command{}, ErrNoSolver
	}
	if np <= 1 {
		return e.Wrap(solver, shellQuote(solver)), nil
	}
	return e.Wrap(solver, "mpirun -np "+strconv.Itoa(np)+" "+shellQuote(solver)+" -parallel"), nil
}

// Shell runs an arbitrary command line inside the OpenFOAM environment.
func (e Env) Shell(cmdline string) (Command, error) {
	cmdline = strings.TrimSpace(cmdline)
	if cmdline == "" {
		return Command{}, ErrEmptyCommand
	}
	name := strings.Fields(cmdline)[0]
	return e.Wrap(name, cmdline), nil
}

// ParaView opens the case in ParaView, creating the empty foam.foam
// marker file it needs if missing.
func (e Env) ParaView() (Command, error) {
	marker := filepath.Join(e.CaseDir, "foam.foam")
	if _, err := os.Stat(marker); os.IsNotExist(err) {
		if err := os.WriteFile(marker, nil, 0644); err != nil {
			return Command{}, fmt.Errorf("foam: create %s: %w", marker, err)
		}
	}
	abs, err := filepath.Abs(marker)
	if err != nil {
		return Command{}, err
	}
	return Command{
		Name:   "paraview",
		Binary: "paraview",
		Args:   []string{"--data=" + abs},
		Dir:    e.CaseDir,
		Env:    e.Variables(),
	}, nil
}
