// Package testutil provides shared helpers for tests, including managed
// temporary directories and in-memory result archive builders.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

var (
	testRunDirOnce sync.Once
	testRunDir     string
)

// GetTestRunDir returns a process-wide directory for test artifacts. All
// temporary directories created by TempDir live underneath it, which keeps
// stray test output in one discoverable place. The same directory is
// returned for every call within a test run.
func GetTestRunDir() string {
	testRunDirOnce.Do(func() {
		base := filepath.Join(os.TempDir(), "q2prov-test-runs")
		if err := os.MkdirAll(base, 0o755); err != nil {
			panic("testutil: cannot create test run dir: " + err.Error())
		}
		dir, err := os.MkdirTemp(base, "run-*")
		if err != nil {
			panic("testutil: cannot create test run dir: " + err.Error())
		}
		testRunDir = dir
	})
	return testRunDir
}

// TempDir creates a temporary directory under the test run directory using
// the given pattern. The directory is removed when the test completes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp(GetTestRunDir(), pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}
