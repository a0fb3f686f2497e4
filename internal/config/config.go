// Package config loads the command line tool's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the store directory.
const FileName = "filedb.yaml"

// Config is the content of filedb.yaml.
type Config struct {
	Root       string  `yaml:"root,omitempty" json:"root,omitempty" jsonschema:"description=Store directory; a leading ~ expands to the home directory"`
	LogLevel   string  `yaml:"log_level,omitempty" json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,description=Minimum log level"`
	Sync       bool    `yaml:"sync,omitempty" json:"sync,omitempty" jsonschema:"description=Fsync after every insert and rewrite"`
	ImportRate float64 `yaml:"import_rate,omitempty" json:"import_rate,omitempty" jsonschema:"minimum=0,description=Maximum records per second for import; 0 is unlimited"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{Root: "~/.filedb", LogLevel: "info"}
}

// Load reads the configuration at path. A missing file yields Default().
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the -config flag
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is well-formed.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.ImportRate < 0 {
		return fmt.Errorf("import_rate must be >= 0, got %v", c.ImportRate)
	}
	return nil
}

// Level parses LogLevel. Empty means info.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// ExpandRoot returns Root with a leading ~ replaced by the home directory.
func (c *Config) ExpandRoot() (string, error) {
	root := c.Root
	if root == "" {
		root = Default().Root
	}
	if root != "~" && !strings.HasPrefix(root, "~/") {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", root, err)
	}
	return filepath.Join(home, strings.TrimPrefix(root[1:], "/")), nil
}

// Schema returns the JSON schema of Config, indented.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Config{})
	s.Title = "filedb configuration"
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}
