package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/hydrostat/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Model       string             `json:"model"`
	Preset      string             `json:"preset,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	Cells       int                `json:"cells"`
	Vertices    int                `json:"vertices"`
	Integrator  string             `json:"integrator"`
	Controller  string             `json:"controller"`
	Constraints []string           `json:"constraints"`
	Metrics     map[string]float64 `json:"metrics"`
	Error       string             `json:"error,omitempty"`
}

// Save writes meta and the trajectory of result into a fresh run directory
// and returns the run ID. ID, Timestamp and Metrics are filled in from the
// store and the result.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	if result == nil {
		return "", errors.New("storage: nil result")
	}
	now := s.now()
	runID, runDir, err := s.newRunDir(meta.Model, now)
	if err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	meta.Metrics = result.Metrics
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteCSV(f, result); err != nil {
		return "", fmt.Errorf("write %s: %w", statesFile, err)
	}
	return runID, nil
}

// newRunDir creates <model>_<unix>, adding a counter when a run with the
// same name already exists.
func (s *Store) newRunDir(model string, now time.Time) (string, string, error) {
	if model == "" {
		model = "run"
	}
	base := fmt.Sprintf("%s_%d", model, now.Unix())
	for i := 0; ; i++ {
		id := base
		if i > 0 {
			id = fmt.Sprintf("%s_%d", base, i)
		}
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes one row per state: time, the state vector (x0…) and the
// control applied from that state (u0…). The final state has no control
// and is padded with zeros.
func WriteCSV(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)
	if len(result.States) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	numControls := 0
	if len(result.Controls) > 0 {
		numControls = len(result.Controls[0])
		for i := 0; i < numControls; i++ {
			header = append(header, fmt.Sprintf("u%d", i))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, x := range result.States {
		t := 0.0
		if i < len(result.Times) {
			t = result.Times[i]
		}
		row := []string{formatFloat(t)}
		for _, val := range x {
			row = append(row, formatFloat(val))
		}
		if i < len(result.Controls) && len(result.Controls[i]) == numControls {
			for _, val := range result.Controls[i] {
				row = append(row, formatFloat(val))
			}
		} else {
			for j := 0; j < numControls; j++ {
				row = append(row, "0")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every readable run, oldest first. Directories without
// valid metadata are skipped.
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
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadResult reads the stored trajectory back. Controls has one row per
// stored state except the last.
func (s *Store) LoadResult(runID string) (*dynamo.Result, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	res, err := s.LoadResult(runID)
	if err != nil {
		return nil, nil, err
	}
	return res.States, res.Times, nil
}

// ReadCSV parses the layout written by WriteCSV.
func ReadCSV(r io.Reader) (*dynamo.Result, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	res := &dynamo.Result{
		States:   []dynamo.State{},
		Controls: []dynamo.Control{},
		Times:    []float64{},
	}
	if len(records) < 2 {
		return res, nil
	}

	header := records[0]
	numStates, numControls := 0, 0
	for _, col := range header[1:] {
		switch {
		case strings.HasPrefix(col, "x"):
			numStates++
		case strings.HasPrefix(col, "u"):
			numControls++
		default:
			return nil, fmt.Errorf("unknown column %q", col)
		}
	}

	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, header[j], err)
			}
			vals[j] = v
		}
		res.Times = append(res.Times, vals[0])
		res.States = append(res.States, dynamo.State(vals[1:1+numStates]))
		if numControls > 0 {
			res.Controls = append(res.Controls, dynamo.Control(vals[1+numStates:]))
		}
	}
	if len(res.Controls) > 0 {
		res.Controls = res.Controls[:len(res.Controls)-1]
	}
	res.StepsTaken = len(res.States) - 1
	return res, nil
}
