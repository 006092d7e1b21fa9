// Package config loads and writes the .covlight.yaml project file.
package config

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/covlight/covlight/internal/thresholds"
)

// DefaultFileName is the config file looked up at the repo root.
const DefaultFileName = ".covlight.yaml"

// Config is the covlight project configuration.
type Config struct {
	// Root overrides the repository root used for path normalization.
	Root string `yaml:"root,omitempty"`

	// Artifacts lists coverage artifact paths to read. Empty means the
	// conventional locations are probed.
	Artifacts []string `yaml:"artifacts,omitempty"`

	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	Thresholds thresholds.Thresholds `yaml:"thresholds,omitempty"`

	Print PrintConfig `yaml:"print,omitempty"`
}

// PrintConfig holds renderer defaults overridable from the CLI.
type PrintConfig struct {
	PageFit     bool   `yaml:"page_fit,omitempty"`
	MaxHotspots uint32 `yaml:"max_hotspots,omitempty"`
	MaxFiles    uint32 `yaml:"max_files,omitempty"`
	EditorCmd   string `yaml:"editor_cmd,omitempty"`
	Detail      string `yaml:"detail,omitempty"`
}

type Loader struct{}

func (l Loader) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l Loader) Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Write(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(cfg)
}
