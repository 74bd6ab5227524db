package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/hydrostat/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Times    []float64        `json:"times"`
	States   []dynamo.State   `json:"states"`
	Controls []dynamo.Control `json:"controls"`
}

// ExportJSON writes the metadata and full trajectory as one indented JSON
// document.
func ExportJSON(w io.Writer, meta RunMetadata, result *dynamo.Result) error {
	data := ExportData{
		RunMetadata: meta,
		Times:       result.Times,
		States:      result.States,
		Controls:    result.Controls,
	}
	if data.Metrics == nil {
		data.Metrics = result.Metrics
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Export loads a stored run and writes it with ExportJSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	res, err := s.LoadResult(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, *meta, res)
}
