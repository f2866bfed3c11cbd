// Package config loads envup's configuration.
// Configuration is optional: with no file present the defaults reproduce
// the original bootstrap behavior (three packages, 5 second poll).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPackages is the fixed library set the bootstrap installs when no
// configuration overrides it.
var DefaultPackages = []string{"streamlit", "pandas", "openpyxl"}

// DefaultPollInterval is how often the developer-tools probe re-checks
// while the interactive install is in flight.
const DefaultPollInterval = 5 * time.Second

// Config is the full envup configuration.
type Config struct {
	// Python is the interpreter binary name looked up on PATH.
	Python string `yaml:"python"`

	// Packages are the libraries passed to pip in a single invocation.
	Packages []string `yaml:"packages"`

	// PipArgs are extra arguments inserted before the package names,
	// e.g. ["--user"] or ["--quiet"].
	PipArgs []string `yaml:"pip_args"`

	// PollInterval is the developer-tools wait poll period.
	PollInterval time.Duration `yaml:"poll_interval"`

	// DataDir holds the run ledger and logs. Defaults to ~/.envup.
	DataDir string `yaml:"data_dir"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
}

// Default returns the configuration matching the original installer.
func Default() *Config {
	return &Config{
		Python:       "python3",
		Packages:     append([]string(nil), DefaultPackages...),
		PollInterval: DefaultPollInterval,
	}
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = defaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.applyEnvOverrides()
			return cfg, cfg.validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over the file.
// ENVUP_PYTHON overrides the interpreter binary; ENVUP_PACKAGES is a
// comma-separated package list.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ENVUP_PYTHON"); v != "" {
		c.Python = v
	}
	if v := os.Getenv("ENVUP_PACKAGES"); v != "" {
		var pkgs []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				pkgs = append(pkgs, p)
			}
		}
		if len(pkgs) > 0 {
			c.Packages = pkgs
		}
	}
	if os.Getenv("ENVUP_LOG_JSON") == "1" {
		c.Logging.JSON = true
	}
}

func (c *Config) validate() error {
	if c.Python == "" {
		return fmt.Errorf("python binary name must not be empty")
	}
	if len(c.Packages) == 0 {
		return fmt.Errorf("package list must not be empty")
	}
	for _, p := range c.Packages {
		if strings.HasPrefix(p, "-") {
			return fmt.Errorf("package name %q looks like a flag", p)
		}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return nil
}

// ResolveDataDir returns the directory for the ledger and logs,
// creating it if needed.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".envup")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return dir, nil
}

func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".envup.yaml"
	}
	return filepath.Join(home, ".envup.yaml")
}
