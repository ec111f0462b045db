package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile creates path with the given content, creating parent directories
// as needed.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SetModTime pins a file's modification time so freshness comparisons are
// deterministic regardless of filesystem timestamp granularity.
func SetModTime(t testing.TB, path string, mtime time.Time) {
	t.Helper()

	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
