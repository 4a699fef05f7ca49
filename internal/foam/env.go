package foam

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// FallbackVersion is used when no installation is found under the root.
const FallbackVersion = "openfoam9"

// Env locates an OpenFOAM installation and the case it operates on.
type Env struct {
	Root    string
	Version string
	CaseDir string
}

// Home is the installation directory, e.g. /opt/openfoam9.
func (e Env) Home() string {
	return filepath.Join(e.Root, e.Version)
}

// Bashrc is the environment script sourced before every command.
func (e Env) Bashrc() string {
	return filepath.Join(e.Home(), "etc", "bashrc")
}

// Variables are added on top of the inherited environment.
func (e Env) Variables() []string {
	return []string{"FOAM_RUN=" + e.Home()}
}

// Wrap turns a shell command line into a login-shell invocation with the
// OpenFOAM environment sourced.
func (e Env) Wrap(name, cmdline string) Command {
	return Command{
		Name:   name,
		Binary: "bash",
		Args:   []string{"-l", "-c", "source " + shellQuote(e.Bashrc()) + " && " + cmdline},
		Dir:    e.CaseDir,
		Env:    e.Variables(),
	}
}

// DetectVersions lists installation directories named openfoam* or
// OpenFOAM* under root. When none exist it returns FallbackVersion and
// found=false.
func DetectVersions(root string, logger *zap.Logger) (versions []string, found bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		logger.Debug("cannot read OpenFOAM root", zap.String("root", root), zap.Error(err))
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "openfoam") || strings.HasPrefix(name, "OpenFOAM") {
			versions = append(versions, name)
		}
	}
	if len(versions) == 0 {
		logger.Warn("no OpenFOAM installation found, using fallback",
			zap.String("root", root), zap.String("version", FallbackVersion))
		return []string{FallbackVersion}, false
	}
	sort.Strings(versions)
	return versions, true
}

// shellQuote single-quotes s for bash.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=:,+@%", r):
		return false
	}
	return true
}
