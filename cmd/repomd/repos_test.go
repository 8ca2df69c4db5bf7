package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRepoFile = `[bbq]
name=Carl's BBQ Packages
baseurl=https://rpm.example.com/bbq/$basearch/
enabled=1
gpgcheck=0

[bbq-testing]
name=Carl's BBQ Testing
baseurl=https://rpm.example.com/bbq-testing/
enabled=0
`

func TestReposRun(t *testing.T) {
	setupTestGlobals(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bbq.repo"), []byte(testRepoFile), 0644); err != nil {
		t.Fatalf("writing repo file: %v", err)
	}

	origDir, origEnabled := reposDir, reposEnabledOnly
	reposDir = dir
	reposEnabledOnly = false
	t.Cleanup(func() { reposDir, reposEnabledOnly = origDir, origEnabled })

	out := captureStdout(t, func() {
		if err := reposRun(testCmd(t), nil); err != nil {
			t.Fatalf("reposRun returned error: %v", err)
		}
	})

	if !strings.Contains(out, "bbq") || !strings.Contains(out, "bbq-testing") {
		t.Errorf("expected both repositories, got: %s", out)
	}
	if !strings.Contains(out, "yes") || !strings.Contains(out, "no") {
		t.Errorf("expected enabled markers, got: %s", out)
	}
	if !strings.Contains(out, "2 repositories") {
		t.Errorf("expected repository count footer, got: %s", out)
	}
}

func TestReposRun_EnabledOnly(t *testing.T) {
	setupTestGlobals(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bbq.repo"), []byte(testRepoFile), 0644); err != nil {
		t.Fatalf("writing repo file: %v", err)
	}

	origDir, origEnabled := reposDir, reposEnabledOnly
	reposDir = dir
	reposEnabledOnly = true
	t.Cleanup(func() { reposDir, reposEnabledOnly = origDir, origEnabled })

	out := captureStdout(t, func() {
		if err := reposRun(testCmd(t), nil); err != nil {
			t.Fatalf("reposRun returned error: %v", err)
		}
	})

	if strings.Contains(out, "bbq-testing") {
		t.Errorf("expected disabled repository to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "1 repositories") {
		t.Errorf("expected repository count footer, got: %s", out)
	}
}
