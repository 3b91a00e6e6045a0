package runlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig is the configuration section of a run summary.
type RunConfig struct {
	RunID        string `yaml:"runid"`
	Source       string `yaml:"source"`
	Catalog      string `yaml:"catalog"`
	Organization string `yaml:"organization"`
	Curated      bool   `yaml:"curated"`
	Started      string `yaml:"started"`
	Finished     string `yaml:"finished"`
}

// Result is one dataset's outcome.
type Result struct {
	Index      int    `yaml:"index"`
	Path       string `yaml:"path,omitempty"`
	Title      string `yaml:"title,omitempty"`
	Action     string `yaml:"action"`
	FilesAdded int    `yaml:"filesadded,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

// Summary is the complete record of a run.
type Summary struct {
	Config  RunConfig      `yaml:"config"`
	Totals  map[string]int `yaml:"totals"`
	Results []Result       `yaml:"results"`
}

// SaveYAML writes the summary to dir/<timestamp>-<runid>.yaml and returns the path.
func SaveYAML(dir string, s Summary) (string, error) {
	if dir == "" {
		dir = "runs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	if s.Totals == nil {
		s.Totals = make(map[string]int)
		for _, r := range s.Results {
			s.Totals[r.Action]++
		}
	}

	data, err := yaml.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", timestamp, s.Config.RunID))
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	slog.Info("Run summary saved", "path", absPath)
	return filename, nil
}

// LoadYAML reads a summary written by SaveYAML.
func LoadYAML(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &s, nil
}
