package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/foamrun/internal/residual"
)

const (
	metadataFile  = "metadata.json"
	residualsFile = "residuals.csv"
)

var ErrInvalidID = errors.New("storage: invalid run id")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Solver      string             `json:"solver"`
	CaseDir     string             `json:"case_dir"`
	Version     string             `json:"version"`
	Processors  int                `json:"processors"`
	Timestamp   time.Time          `json:"timestamp"`
	Elapsed     float64            `json:"elapsed_seconds"`
	Status      string             `json:"status"`
	Duplicates  string             `json:"duplicates"`
	Fields      []string           `json:"fields"`
	Steps       int                `json:"steps"`
	FinalTime   float64            `json:"final_time"`
	Divergences int                `json:"divergences"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewRunID builds "<solver>_<unix>_<8 hex>".
func NewRunID(solver string, at time.Time) string {
	if solver == "" {
		solver = "run"
	}
	return fmt.Sprintf("%s_%d_%s", solver, at.Unix(), uuid.NewString()[:8])
}

// Save writes metadata.json and residuals.csv under a new run directory.
// Fields, Steps and FinalTime are filled from the snapshot.
func (s *Store) Save(meta RunMetadata, snap *residual.Snapshot) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Solver, meta.Timestamp)
	}
	runDir, err := s.runDir(meta.ID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.Fields = append([]string{}, snap.Fields...)
	meta.Steps = snap.Len()
	if n := snap.Len(); n > 0 {
		meta.FinalTime = snap.Times[n-1]
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, residualsFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := snap.WriteCSV(csvFile); err != nil {
		return "", err
	}
	return meta.ID, csvFile.Close()
}

// List returns saved runs, newest first. Unreadable entries are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	runDir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(runDir, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadResiduals(runID string) (*residual.Snapshot, error) {
	runDir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(runDir, residualsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return residual.ReadCSV(file)
}

// ResidualsPath is the CSV location of a run.
func (s *Store) ResidualsPath(runID string) (string, error) {
	runDir, err := s.runDir(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(runDir, residualsFile), nil
}

func (s *Store) runDir(runID string) (string, error) {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, runID)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}
