package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	Timeout   string       `yaml:"timeout"`
	UserAgent string       `yaml:"user_agent"`
	PreferDB  bool         `yaml:"prefer_db"`
	Fetch     FetchConfig  `yaml:"fetch"`
	Repos     []RepoConfig `yaml:"repos"`
}

// FetchConfig holds package download settings
type FetchConfig struct {
	DestDir       string `yaml:"dest_dir"`
	Concurrency   int    `yaml:"concurrency"`
	RetryAttempts int    `yaml:"retry_attempts"`
}

// RepoConfig names a repository the tool should know about. Either BaseURL
// or a MetalinkRepo/Arch pair must be set.
type RepoConfig struct {
	Name         string `yaml:"name"`
	BaseURL      string `yaml:"base_url"`
	MetalinkRepo string `yaml:"metalink_repo"`
	Arch         string `yaml:"arch"`
	PreferDB     bool   `yaml:"prefer_db"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout:   "60s",
		UserAgent: "repomd/1.0",
		PreferDB:  false,
		Fetch: FetchConfig{
			DestDir:       ".",
			Concurrency:   4,
			RetryAttempts: 3,
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"repomd.yaml",
		"/etc/repomd/repomd.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "repomd", "repomd.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// Repo looks up a configured repository by name.
func (c *Config) Repo(name string) (*RepoConfig, bool) {
	for i := range c.Repos {
		if c.Repos[i].Name == name {
			return &c.Repos[i], true
		}
	}
	return nil, false
}

// ParseTimeout converts the configured timeout string to a duration.
func (c *Config) ParseTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
