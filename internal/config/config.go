// Package config loads per-root settings from vpm.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in the package root.
const FileName = "vpm.yml"

// Duration accepts either a Go duration string ("12h") or a plain number
// of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := node.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration on line %d", node.Line)
}

// Settings are the optional per-root defaults. Command line flags win
// over anything set here.
type Settings struct {
	// Registry is the base URL of an HTTP package registry.
	Registry string `yaml:"registry"`
	// ArchiveDir points at a local directory of package archives.
	ArchiveDir string `yaml:"archive_dir"`
	// CheckInterval is how long installed metadata is trusted.
	CheckInterval Duration `yaml:"check_interval"`
	// Verbose enables progress logging.
	Verbose bool `yaml:"verbose"`
}

// Load reads the settings file at path. A missing file is not an error;
// it yields zero settings.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}
