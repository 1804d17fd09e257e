// Package config handles tool configuration: a YAML file resolved from the
// working directory or XDG_CONFIG_HOME, with environment variables taking
// precedence for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in scopuscite.yml.
type Config struct {
	APIKey    string `yaml:"api_key,omitempty"`
	InstToken string `yaml:"inst_token,omitempty"`
	CacheDir  string `yaml:"cache_dir,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`
}

const (
	// LocalConfigFile is picked up from the working directory.
	LocalConfigFile = "scopuscite.yml"
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "scopuscite"
	// GlobalConfigFile is the config file name under GlobalConfigDir.
	GlobalConfigFile = "config.yml"

	// DefaultCacheDir and DefaultOutputDir apply when the config sets neither.
	DefaultCacheDir  = "data/local_cache"
	DefaultOutputDir = "data/output"
)

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/scopuscite/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// Load resolves the configuration: scopuscite.yml in the working directory
// if present, otherwise the global config file. A missing file yields an
// empty config, not an error. SCOPUS_API_KEY and SCOPUS_INST_TOKEN override
// file values, and empty directories fall back to the defaults.
func Load() (*Config, error) {
	cfg, err := loadFile(LocalConfigFile)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if path := GlobalConfigPath(); path != "" {
			cfg, err = loadFile(path)
			if err != nil {
				return nil, err
			}
		}
	}
	if cfg == nil {
		cfg = &Config{}
	}

	if key := os.Getenv("SCOPUS_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if token := os.Getenv("SCOPUS_INST_TOKEN"); token != "" {
		cfg.InstToken = token
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	return cfg, nil
}

// loadFile parses one config file, returning nil for a missing file.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// HelpfulKeyMessage is printed when no API key could be resolved.
func HelpfulKeyMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No Scopus API key configured.

Tip: set SCOPUS_API_KEY in the environment (a .env file works too), or
create %s:
  mkdir -p %s
  echo 'api_key: YOUR-KEY' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
