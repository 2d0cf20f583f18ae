package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// NewCaseDir builds a case directory with the given originals. Map keys are
// paths relative to originals/, values are file contents.
func NewCaseDir(t testing.TB, originals map[string]string) string {
	t.Helper()

	caseDir := t.TempDir()
	originalsDir := filepath.Join(caseDir, "originals")
	if err := os.MkdirAll(originalsDir, 0o755); err != nil {
		t.Fatalf("mkdir originals: %v", err)
	}
	for rel, content := range originals {
		path := filepath.Join(originalsDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return caseDir
}
