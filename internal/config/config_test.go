package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that DefaultConfig returns sensible defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		getValue func(*Config) string
		want     string
	}{
		{"timeout", func(c *Config) string { return c.Timeout }, "60s"},
		{"user agent", func(c *Config) string { return c.UserAgent }, "repomd/1.0"},
		{"fetch dest dir", func(c *Config) string { return c.Fetch.DestDir }, "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.getValue(cfg)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if cfg.PreferDB {
		t.Errorf("PreferDB = true, want false")
	}
	if cfg.Fetch.Concurrency != 4 {
		t.Errorf("Fetch.Concurrency = %d, want 4", cfg.Fetch.Concurrency)
	}
	if cfg.Fetch.RetryAttempts != 3 {
		t.Errorf("Fetch.RetryAttempts = %d, want 3", cfg.Fetch.RetryAttempts)
	}
	if len(cfg.Repos) != 0 {
		t.Errorf("Repos length = %d, want 0", len(cfg.Repos))
	}
}

// TestLoad tests loading a valid config file
func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "repomd.yaml")

	configContent := `
timeout: "2m"
user_agent: "bbq-mirror/2.0"
prefer_db: true
fetch:
  dest_dir: "/srv/rpms"
  concurrency: 8
  retry_attempts: 5
repos:
  - name: fedora
    base_url: "https://dl.fedoraproject.org/pub/fedora/linux/releases/27/Everything/x86_64/os/"
    prefer_db: true
  - name: epel
    metalink_repo: "epel-9"
    arch: "x86_64"
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Timeout != "2m" {
		t.Errorf("Timeout = %q, want %q", cfg.Timeout, "2m")
	}
	if cfg.UserAgent != "bbq-mirror/2.0" {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, "bbq-mirror/2.0")
	}
	if !cfg.PreferDB {
		t.Errorf("PreferDB = false, want true")
	}

	if cfg.Fetch.DestDir != "/srv/rpms" {
		t.Errorf("Fetch.DestDir = %q, want %q", cfg.Fetch.DestDir, "/srv/rpms")
	}
	if cfg.Fetch.Concurrency != 8 {
		t.Errorf("Fetch.Concurrency = %d, want 8", cfg.Fetch.Concurrency)
	}
	if cfg.Fetch.RetryAttempts != 5 {
		t.Errorf("Fetch.RetryAttempts = %d, want 5", cfg.Fetch.RetryAttempts)
	}

	if len(cfg.Repos) != 2 {
		t.Fatalf("Repos length = %d, want 2", len(cfg.Repos))
	}
	if cfg.Repos[0].Name != "fedora" || !cfg.Repos[0].PreferDB {
		t.Errorf("unexpected first repo: %+v", cfg.Repos[0])
	}
	if cfg.Repos[1].MetalinkRepo != "epel-9" || cfg.Repos[1].Arch != "x86_64" {
		t.Errorf("unexpected second repo: %+v", cfg.Repos[1])
	}
}

// TestLoadKeepsDefaults verifies unset keys keep their default values
func TestLoadKeepsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "repomd.yaml")

	if err := os.WriteFile(configFile, []byte("prefer_db: true\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.PreferDB {
		t.Errorf("PreferDB = false, want true")
	}
	if cfg.Timeout != "60s" {
		t.Errorf("Timeout = %q, want default 60s", cfg.Timeout)
	}
	if cfg.Fetch.Concurrency != 4 {
		t.Errorf("Fetch.Concurrency = %d, want default 4", cfg.Fetch.Concurrency)
	}
}

// TestLoadInvalidYAML tests that Load returns an error for invalid YAML
func TestLoadInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid.yaml")

	invalidContent := `
timeout: "60s"
repos: [unclosed bracket
`

	if err := os.WriteFile(configFile, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configFile)
	if err == nil {
		t.Error("Load() succeeded, want error for invalid YAML")
	}
}

// TestLoadNonexistentFile tests that Load returns an error for missing files
func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("Load() succeeded, want error for nonexistent file")
	}
}

// TestFindConfigFileNotFound tests that FindConfigFile returns error when no config exists
func TestFindConfigFileNotFound(t *testing.T) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	_, err = FindConfigFile()
	if err == nil {
		t.Error("FindConfigFile() succeeded, want error when no config exists")
	}
}

// TestFindConfigFileFound tests that FindConfigFile returns the found config
func TestFindConfigFileFound(t *testing.T) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	configFile := filepath.Join(tempDir, "repomd.yaml")
	if err := os.WriteFile(configFile, []byte("timeout: \"30s\""), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("FindConfigFile() failed: %v", err)
	}
	if found != "repomd.yaml" {
		t.Errorf("FindConfigFile() = %q, want repomd.yaml", found)
	}
}

// TestRepoLookup tests the Repo method
func TestRepoLookup(t *testing.T) {
	cfg := &Config{
		Repos: []RepoConfig{
			{Name: "fedora", BaseURL: "https://example.com/fedora/"},
			{Name: "epel", MetalinkRepo: "epel-9", Arch: "x86_64"},
		},
	}

	repo, ok := cfg.Repo("epel")
	if !ok {
		t.Fatal("expected to find repo epel")
	}
	if repo.MetalinkRepo != "epel-9" {
		t.Errorf("MetalinkRepo = %q, want epel-9", repo.MetalinkRepo)
	}

	if _, ok := cfg.Repo("missing"); ok {
		t.Error("expected lookup miss for unknown repo")
	}
}

// TestParseTimeout tests timeout string parsing
func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
		wantErr bool
	}{
		{"empty means zero", "", 0, false},
		{"seconds", "90s", 90 * time.Second, false},
		{"minutes", "2m", 2 * time.Minute, false},
		{"garbage", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Timeout: tt.timeout}
			got, err := cfg.ParseTimeout()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
