// Package config holds the export-run settings, merged from an optional JSON
// config file and CLI flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all configurable paths and export settings.
type Config struct {
	// Paths
	CaptureDir string `json:"capture_dir"`
	OutputDir  string `json:"output_dir"`
	LogFile    string `json:"log_file"`

	// Call range (1-based, inclusive; MaxCall -1 means unbounded)
	MinCall int `json:"min_call"`
	MaxCall int `json:"max_call"`

	// Export settings
	EnableSkinning bool `json:"enable_skinning"`
	Preview        bool `json:"preview"`
	Verbose        bool `json:"verbose"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.CaptureDir != "" {
		c.CaptureDir = flags.CaptureDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.MinCall > 0 {
		c.MinCall = flags.MinCall
	}
	if flags.MaxCall != 0 {
		c.MaxCall = flags.MaxCall
	}
	if flags.LogFile != "" {
		c.LogFile = flags.LogFile
	}
	if flags.EnableSkinning {
		c.EnableSkinning = true
	}
	if flags.Preview {
		c.Preview = true
	}
	if flags.Verbose {
		c.Verbose = true
	}

	if c.CaptureDir == "" {
		cwd, _ := os.Getwd()
		c.CaptureDir = cwd
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.CaptureDir, "exports")
	} else if !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(c.CaptureDir, c.OutputDir)
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.OutputDir, "export.log")
	}

	if c.MinCall <= 0 {
		c.MinCall = 1
	}
	if c.MaxCall == 0 {
		c.MaxCall = -1
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	CaptureDir     string
	OutputDir      string
	LogFile        string
	MinCall        int
	MaxCall        int
	EnableSkinning bool
	Preview        bool
	Verbose        bool
}
