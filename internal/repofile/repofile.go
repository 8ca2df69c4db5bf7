// Package repofile reads dnf/yum .repo definitions from a configuration
// directory such as /etc/yum.repos.d.
package repofile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultDir is where dnf keeps its repo definitions.
const DefaultDir = "/etc/yum.repos.d"

// osReleasePath holds the distribution release info used for $releasever.
const osReleasePath = "/etc/os-release"

// Repo is one [section] of a .repo file with variables expanded.
type Repo struct {
	ID         string
	Name       string
	BaseURL    string
	Metalink   string
	Mirrorlist string
	Enabled    bool
	GPGCheck   bool
}

// Vars are the substitution values for $releasever, $basearch and $arch.
type Vars struct {
	ReleaseVer string
	BaseArch   string
}

// archMap translates GOARCH names to RPM architecture labels.
var archMap = map[string]string{
	"amd64":   "x86_64",
	"386":     "i386",
	"arm64":   "aarch64",
	"arm":     "arm",
	"ppc64":   "ppc64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64",
}

// DetectVars reads the running system's release version and architecture.
// Missing values come back empty rather than failing, since a .repo file
// without variables is still usable.
func DetectVars(logger *slog.Logger) Vars {
	release, err := releaseVersion(osReleasePath)
	if err != nil {
		logger.Debug("could not determine release version", "error", err)
	}
	return Vars{
		ReleaseVer: release,
		BaseArch:   BaseArch(),
	}
}

// BaseArch returns the RPM architecture label for the current platform.
func BaseArch() string {
	if arch, ok := archMap[runtime.GOARCH]; ok {
		return arch
	}
	return runtime.GOARCH
}

// releaseVersion extracts VERSION_ID from an os-release file.
func releaseVersion(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VERSION_ID=") {
			return strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return "", fmt.Errorf("no VERSION_ID in %s", path)
}

// expand substitutes repo variables in a URL-ish value.
func expand(s string, vars Vars) string {
	r := strings.NewReplacer(
		"$releasever", vars.ReleaseVer,
		"$basearch", vars.BaseArch,
		"$arch", vars.BaseArch,
	)
	return r.Replace(s)
}

// ParseFile reads one .repo file. Every non-DEFAULT section becomes a Repo.
// Per dnf.conf(5), a section without an enabled key counts as enabled.
func ParseFile(path string, vars Vars) ([]Repo, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var repos []Repo
	for _, section := range cfg.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}

		repos = append(repos, Repo{
			ID:         section.Name(),
			Name:       expand(section.Key("name").String(), vars),
			BaseURL:    expand(section.Key("baseurl").String(), vars),
			Metalink:   expand(section.Key("metalink").String(), vars),
			Mirrorlist: expand(section.Key("mirrorlist").String(), vars),
			Enabled:    section.Key("enabled").MustBool(true),
			GPGCheck:   section.Key("gpgcheck").MustBool(false),
		})
	}

	return repos, nil
}

// LoadDir reads every *.repo file directly under dir and returns the repos
// sorted by ID. Files that fail to parse are logged and skipped so one bad
// file does not hide the rest.
func LoadDir(dir string, vars Vars, logger *slog.Logger) ([]Repo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading repo dir %s: %w", dir, err)
	}

	var repos []Repo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".repo" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		parsed, err := ParseFile(path, vars)
		if err != nil {
			logger.Warn("skipping unparseable repo file", "path", path, "error", err)
			continue
		}
		repos = append(repos, parsed...)
	}

	sort.Slice(repos, func(i, j int) bool {
		return repos[i].ID < repos[j].ID
	})

	return repos, nil
}
