package migsql

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .migsql.yaml configuration file.
type Config struct {
	// History is the directory holding recorded migrations.
	History string `yaml:"history,omitempty"`

	// Strict makes state replay fail on operations that target missing items
	// instead of skipping them.
	Strict bool `yaml:"strict,omitempty"`

	// Namespaces lists the namespaces and where their declarations live.
	Namespaces []NamespaceConfig `yaml:"namespaces"`

	// Log configures the CLI logger.
	Log LogConfig `yaml:"log,omitempty"`

	// dir is the directory the config was loaded from.
	dir string
}

// NamespaceConfig names a namespace and the directory of its declarations.
type NamespaceConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Dir returns the directory the config file was found in, or "" for configs
// not loaded from disk.
func (c *Config) Dir() string {
	return c.dir
}

// HistoryDir returns the absolute migration directory.
func (c *Config) HistoryDir() string {
	dir := c.History
	if dir == "" {
		dir = DefaultHistoryDir
	}

	return c.resolve(dir)
}

// NamespaceDir returns the absolute declaration directory of ns.
func (c *Config) NamespaceDir(ns NamespaceConfig) string {
	path := ns.Path
	if path == "" {
		path = ns.Name
	}

	return c.resolve(path)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.dir == "" {
		return filepath.Clean(path)
	}

	return filepath.Join(c.dir, path)
}

// Validate checks namespace names are present, unique and usable in keys.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Namespaces))

	var errs []error

	for i, ns := range c.Namespaces {
		switch {
		case ns.Name == "":
			errs = append(errs, fmt.Errorf("namespaces[%d]: name is required", i))
		case seen[ns.Name]:
			errs = append(errs, fmt.Errorf("namespaces[%d]: duplicate namespace %q", i, ns.Name))
		default:
			if err := ValidateNamespace(ns.Name); err != nil {
				errs = append(errs, fmt.Errorf("namespaces[%d]: %w", i, err))
			}
		}

		seen[ns.Name] = true
	}

	return errors.Join(errs...)
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".migsql.yaml", ".migsql.yml", "migsql.yaml", "migsql.yml"}

// LoadConfig finds and loads the nearest .migsql.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	cfg.dir = filepath.Dir(abs)

	return &cfg, nil
}
