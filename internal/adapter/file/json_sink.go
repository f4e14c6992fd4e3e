package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/accident-risk-etl/internal/domain"
)

// Artifact file names written by JSONSink.
const (
	DatasetFile      = "dataset.json"
	HeatmapFile      = "heatmap.json"
	TopIncidentsFile = "top_incidents.json"
	ChartFile        = "chart.json"
	SummaryFile      = "summary.json"
)

// JSONSink writes each artifact of a run to its own JSON file in a directory.
// Files are replaced atomically so readers never see a partial document.
type JSONSink struct {
	dir string
}

// NewJSONSink creates a JSONSink writing into dir. The directory is created on
// first load if it does not exist.
func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{dir: dir}
}

func (s *JSONSink) Name() string { return "json" }

// Load writes every artifact file.
func (s *JSONSink) Load(ctx context.Context, artifacts domain.Artifacts) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	docs := []struct {
		name string
		v    any
	}{
		{DatasetFile, artifacts.Dataset},
		{HeatmapFile, artifacts.Heat},
		{TopIncidentsFile, artifacts.TopIncidents},
		{ChartFile, artifacts.Chart},
		{SummaryFile, artifacts.Summary},
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.write(doc.name, doc.v); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONSink) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
