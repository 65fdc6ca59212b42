package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileNames lists the files searched for configuration in order.
// Checks .github/ first, then the repository root.
var FileNames = []string{
	".github/gitgraph.yml",
	".github/gitgraph.yaml",
	"gitgraph.yml",
	"gitgraph.yaml",
}

// LoadFromFile reads and parses a gitgraph configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses gitgraph configuration from raw YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// FindConfigFile returns the first of FileNames present in dir, or "".
func FindConfigFile(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadDotEnv loads dir/.env into the process environment when present.
// Variables already set in the environment win.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load builds the effective configuration for dir: defaults, then the
// file at path, or the first of FileNames found in dir when path is empty.
func Load(dir, path string) (*Config, error) {
	builder := NewBuilder()

	if path == "" {
		path = FindConfigFile(dir)
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		builder.Add(fileCfg)
	}

	return builder.Build()
}
