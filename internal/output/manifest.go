package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Manifest summarises one generated dataset.
type Manifest struct {
	BatchID     string        `yaml:"batch_id"`
	GeneratedAt string        `yaml:"generated_at"`
	ResultsDir  string        `yaml:"results_dir"`
	Output      string        `yaml:"output"`
	Columns     []string      `yaml:"columns"`
	Runs        int           `yaml:"runs"`
	UESamples   int           `yaml:"ue_samples"`
	Groups      int           `yaml:"groups"`
	Rows        int           `yaml:"rows"`
	ReferenceID int           `yaml:"reference_node_id"`
	Towers      []TowerRecord `yaml:"towers"`
}

// TowerRecord is a tower position as recorded in the manifest.
type TowerRecord struct {
	NodeID int     `yaml:"nodeid"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m Manifest) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("WriteManifest: %w", err)
		}
		return enc.Close()
	})
}

// ReadManifest decodes a manifest previously written by WriteManifest.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("ReadManifest: %w", err)
	}
	return m, nil
}
