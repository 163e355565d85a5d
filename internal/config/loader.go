package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a configuration file from the provided path. A missing file
// is not an error: the defaults apply. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config file: %w", err)
	}

	return Parse(data, absPath)
}

// Parse decodes and validates configuration bytes. The source string is
// used only for error messages.
func Parse(data []byte, source string) (*Config, error) {
	// Schema validation first, against the raw document, so unknown keys
	// and type errors surface with JSON-pointer locations.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", source, err)
	}
	if raw != nil {
		if err := validateAgainstSchema(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var cfg Config
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		// io.EOF means an empty document; the defaults apply.
		return nil, fmt.Errorf("%s: decode: %w", source, err)
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &cfg, nil
}
