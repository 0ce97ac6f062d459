// Package config loads the optional .tdd-guard.yaml settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in the working directory.
const FileName = ".tdd-guard.yaml"

// Default values.
const (
	DefaultReporterFlag = "-json"
	DefaultLogLevel     = "info"
)

// Config holds the file-configurable settings. CLI flags override
// anything set here.
type Config struct {
	// ReporterFlag is the token the supervisor guarantees is present in
	// the forwarded argument list. The default suits `go test`; dotnet
	// hosts set it to their logger flag.
	ReporterFlag string `yaml:"reporter_flag"`

	// RootMarkers overrides the project-root marker priorities. Each
	// inner list is one priority tier of glob patterns.
	RootMarkers [][]string `yaml:"root_markers,omitempty"`

	LogLevel string `yaml:"log_level"`

	// ValidateResults enables the post-marshal schema check in the
	// result writer.
	ValidateResults bool `yaml:"validate_results"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ReporterFlag: DefaultReporterFlag,
		LogLevel:     DefaultLogLevel,
	}
}

// Load reads .tdd-guard.yaml from dir. A missing file yields the
// defaults; a present but unparseable file is an error, since silently
// ignoring a typo'd config confuses more than it helps.
func Load(dir string) (Config, error) {
	cfg := Defaults()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.ReporterFlag == "" {
		cfg.ReporterFlag = DefaultReporterFlag
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return cfg, nil
}
