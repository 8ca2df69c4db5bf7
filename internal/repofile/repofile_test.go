package repofile

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

const fedoraRepoFile = `[fedora]
name=Fedora $releasever - $basearch
metalink=https://mirrors.fedoraproject.org/metalink?repo=fedora-$releasever&arch=$basearch
enabled=1
gpgcheck=1

[fedora-debuginfo]
name=Fedora $releasever - $basearch - Debug
baseurl=https://dl.fedoraproject.org/pub/fedora/linux/releases/$releasever/Everything/$basearch/debug/tree/
enabled=0
gpgcheck=1
`

const localRepoFile = `[bbq]
name=Carl's BBQ Packages
baseurl=https://rpm.example.com/bbq/$basearch/
gpgcheck=0
`

func writeRepoFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := writeRepoFile(t, dir, "fedora.repo", fedoraRepoFile)

	vars := Vars{ReleaseVer: "27", BaseArch: "x86_64"}
	repos, err := ParseFile(path, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repos) != 2 {
		t.Fatalf("expected 2 repos, got %d", len(repos))
	}

	fedora := repos[0]
	if fedora.ID != "fedora" {
		t.Errorf("expected id fedora, got %s", fedora.ID)
	}
	if fedora.Name != "Fedora 27 - x86_64" {
		t.Errorf("unexpected name %q", fedora.Name)
	}
	wantMetalink := "https://mirrors.fedoraproject.org/metalink?repo=fedora-27&arch=x86_64"
	if fedora.Metalink != wantMetalink {
		t.Errorf("expected metalink %q, got %q", wantMetalink, fedora.Metalink)
	}
	if !fedora.Enabled {
		t.Error("fedora should be enabled")
	}
	if !fedora.GPGCheck {
		t.Error("fedora should have gpgcheck on")
	}

	debug := repos[1]
	if debug.ID != "fedora-debuginfo" {
		t.Errorf("expected id fedora-debuginfo, got %s", debug.ID)
	}
	if debug.Enabled {
		t.Error("debuginfo repo should be disabled")
	}
	wantBase := "https://dl.fedoraproject.org/pub/fedora/linux/releases/27/Everything/x86_64/debug/tree/"
	if debug.BaseURL != wantBase {
		t.Errorf("expected baseurl %q, got %q", wantBase, debug.BaseURL)
	}
}

// TestParseFileEnabledDefault verifies a section without an enabled key
// counts as enabled, matching dnf.conf(5).
func TestParseFileEnabledDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeRepoFile(t, dir, "bbq.repo", localRepoFile)

	repos, err := ParseFile(path, Vars{BaseArch: "x86_64"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repos) != 1 {
		t.Fatalf("expected 1 repo, got %d", len(repos))
	}
	if !repos[0].Enabled {
		t.Error("repo without enabled key should default to enabled")
	}
	if repos[0].GPGCheck {
		t.Error("gpgcheck=0 should parse as false")
	}
	if repos[0].BaseURL != "https://rpm.example.com/bbq/x86_64/" {
		t.Errorf("unexpected baseurl %q", repos[0].BaseURL)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "fedora.repo", fedoraRepoFile)
	writeRepoFile(t, dir, "bbq.repo", localRepoFile)
	writeRepoFile(t, dir, "notes.txt", "not a repo file")
	writeRepoFile(t, dir, "broken.repo", "[unclosed\nbaseurl=https://example.com/")

	repos, err := LoadDir(dir, Vars{ReleaseVer: "27", BaseArch: "x86_64"}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Sorted by ID; the broken file is skipped, the txt file ignored.
	wantIDs := []string{"bbq", "fedora", "fedora-debuginfo"}
	if len(repos) != len(wantIDs) {
		t.Fatalf("expected %d repos, got %d", len(wantIDs), len(repos))
	}
	for i, want := range wantIDs {
		if repos[i].ID != want {
			t.Errorf("repo %d: expected id %s, got %s", i, want, repos[i].ID)
		}
	}
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"), Vars{}, discardLogger())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestReleaseVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "os-release")
	content := `NAME="Fedora Linux"
VERSION="27 (Server Edition)"
ID=fedora
VERSION_ID=27
PRETTY_NAME="Fedora 27 (Server Edition)"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing os-release: %v", err)
	}

	release, err := releaseVersion(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if release != "27" {
		t.Errorf("expected release 27, got %s", release)
	}
}

func TestReleaseVersionQuoted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "os-release")
	if err := os.WriteFile(path, []byte("VERSION_ID=\"9.3\"\n"), 0644); err != nil {
		t.Fatalf("writing os-release: %v", err)
	}

	release, err := releaseVersion(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if release != "9.3" {
		t.Errorf("expected release 9.3, got %s", release)
	}
}

func TestReleaseVersionMissing(t *testing.T) {
	if _, err := releaseVersion(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBaseArch(t *testing.T) {
	if BaseArch() == "" {
		t.Fatal("expected a non-empty architecture label")
	}
}

func TestExpand(t *testing.T) {
	vars := Vars{ReleaseVer: "9", BaseArch: "aarch64"}
	got := expand("https://example.com/$releasever/os/$basearch/", vars)
	want := "https://example.com/9/os/aarch64/"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// $arch expands the same way as $basearch.
	if got := expand("path/$arch", vars); got != "path/aarch64" {
		t.Errorf("expected path/aarch64, got %q", got)
	}
}
