// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fusion

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// Report is the on-disk form of one fused search. A saved report can be
// rendered again later without re-querying any engine.
type Report struct {
	Query      string                `yaml:"query"`
	SubQueries []string              `yaml:"sub_queries,omitempty"`
	Config     ReportConfig          `yaml:"config"`
	Output     types.SynthesisOutput `yaml:"output"`
	Timestamp  time.Time             `yaml:"timestamp"`
}

// ReportConfig records the settings that produced a report.
type ReportConfig struct {
	MaxResults int      `yaml:"max_results"`
	Engines    []string `yaml:"engines,omitempty"`
	Planner    string   `yaml:"planner,omitempty"`
}

// WriteReport saves r as YAML at path. A zero Timestamp is set to now.
func WriteReport(path string, r Report) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// ReadReport loads a report saved by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}
