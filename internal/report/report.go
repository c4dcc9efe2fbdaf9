// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes the outcome of an extraction run to a YAML or JSON
// file for later inspection.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/asset-extract/pkg/types"
)

// ErrUnsupportedFormat is returned for report paths without a .yaml, .yml,
// or .json extension.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Report is the serialized form of one run.
type Report struct {
	Manifest   string `json:"manifest" yaml:"manifest"`
	ObjectsDir string `json:"objects_dir" yaml:"objects_dir"`
	OutputDir  string `json:"output_dir" yaml:"output_dir"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Success     int   `json:"success" yaml:"success"`
	Failed      int   `json:"failed" yaml:"failed"`
	Total       int   `json:"total" yaml:"total"`
	Bytes       int64 `json:"bytes" yaml:"bytes"`
	Interrupted bool  `json:"interrupted" yaml:"interrupted"`

	Outcomes map[types.Outcome]int `json:"outcomes" yaml:"outcomes"`
	Failures []Failure             `json:"failures" yaml:"failures"`
}

// Failure is one entry that was not copied.
type Failure struct {
	Path    string        `json:"path" yaml:"path"`
	Hash    string        `json:"hash" yaml:"hash"`
	Size    int64         `json:"size" yaml:"size"`
	Outcome types.Outcome `json:"outcome" yaml:"outcome"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// New builds a Report from the run configuration and its summary.
func New(cfg types.ExtractionConfig, s *types.Summary) Report {
	r := Report{
		Manifest:    cfg.ManifestPath,
		ObjectsDir:  cfg.ObjectsDir,
		OutputDir:   cfg.OutputDir,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		Success:     s.Success,
		Failed:      s.Failed,
		Total:       s.Total,
		Bytes:       s.Bytes,
		Interrupted: s.Interrupted,
		Outcomes:    s.ByOutcome(),
		Failures:    []Failure{},
	}
	for _, res := range s.Failures() {
		r.Failures = append(r.Failures, Failure{
			Path:    res.Entry.Path,
			Hash:    res.Entry.Hash,
			Size:    res.Entry.Size,
			Outcome: res.Outcome,
			Error:   res.Message(),
		})
	}
	return r
}

// Write serializes r to path, choosing YAML or JSON from the extension.
func Write(path string, r Report) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&r)
	case ".json":
		data, err = json.MarshalIndent(&r, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: %s (use .yaml, .yml, or .json)", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
