package foam

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// CleanProcessors removes processor* directories left by decomposePar.
func CleanProcessors(caseDir string, logger *zap.Logger) ([]string, error) {
	return removeDirs(caseDir, logger, func(name string) bool {
		return strings.HasPrefix(name, "processor")
	})
}

// CleanTimeDirs removes reconstructed time directories, i.e. directories
// whose name is a number greater than zero. The 0 directory holds initial
// conditions and is kept.
func CleanTimeDirs(caseDir string, logger *zap.Logger) ([]string, error) {
	return removeDirs(caseDir, logger, func(name string) bool {
		v, err := strconv.ParseFloat(name, 64)
		return err == nil && v > 0
	})
}

func removeDirs(caseDir string, logger *zap.Logger, match func(string) bool) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(caseDir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		if !e.IsDir() || !match(e.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(caseDir, e.Name())); err != nil {
			return removed, err
		}
		logger.Info("removed directory", zap.String("case", caseDir), zap.String("dir", e.Name()))
		removed = append(removed, e.Name())
	}
	return removed, nil
}
