// Package config loads minidb's startup configuration: buffer sizing and
// the file paths the engine reads and writes. A YAML file is optional; its
// absence is not an error, and every field it omits falls back to the
// §3.1 defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default field values, per spec §3.1 and §6.4.
const (
	DefaultFrameSize = 24
	DefaultDataDir   = "."
	DefaultSourceDir = ".."
)

// Config holds the tunables a minidb process needs before it can open its
// first file.
type Config struct {
	// FrameSize is the buffer pool's fixed frame count, overridden per
	// query by run_query's buffer_size argument.
	FrameSize int `yaml:"frame_size"`

	// DataDir holds the generated heap files (movie.bin, workedon.bin,
	// people.bin), temp materialization files, and B+ tree files.
	DataDir string `yaml:"data_dir"`

	// SourceDir holds the source TSVs (title.basics.tsv,
	// title.principals.tsv, name.basics.tsv).
	SourceDir string `yaml:"source_dir"`
}

// Default returns the constructor defaults from spec §3.1/§6.4.
func Default() Config {
	return Config{
		FrameSize: DefaultFrameSize,
		DataDir:   DefaultDataDir,
		SourceDir: DefaultSourceDir,
	}
}

// Load reads path as YAML and overlays it onto Default(). A missing file is
// not an error: Load silently returns the defaults. A present but malformed
// file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.FrameSize <= 0 {
		return cfg, fmt.Errorf("config: frame_size must be positive, got %d", cfg.FrameSize)
	}
	return cfg, nil
}
