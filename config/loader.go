package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/stompflow/errors"
)

// Loader reads and validates configuration files
type Loader struct{}

// NewLoader creates a configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads the file at path, decoding JSON or YAML by extension, and
// returns the validated configuration
func (l *Loader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig,
				"Loader", "LoadFile", fmt.Sprintf("read %s", path))
		}
		return nil, errors.WrapFatal(err, "Loader", "LoadFile",
			fmt.Sprintf("read %s", path))
	}

	cfg, err := l.Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "LoadFile",
			fmt.Sprintf("parse %s", path))
	}
	return cfg, nil
}

// Parse decodes raw configuration bytes. ext selects the decoder: ".yaml"
// and ".yml" decode as YAML, everything else as JSON.
func (l *Loader) Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
