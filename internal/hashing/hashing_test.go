package hashing_test

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"custody/internal/hashing"
	"custody/internal/services"
)

func TestComputeFileHashMatchesReference(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.bin")
	payload := []byte("alpha")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := hashing.ComputeFileHash(path)
	if err != nil {
		t.Fatalf("ComputeFileHash: %v", err)
	}
	ref := sha256.Sum256(payload)
	if want := hex.EncodeToString(ref[:]); got != want {
		t.Fatalf("digest mismatch: got %s want %s", got, want)
	}

	again, err := hashing.ComputeFileHash(path)
	if err != nil {
		t.Fatalf("second ComputeFileHash: %v", err)
	}
	if again != got {
		t.Fatalf("digest not stable across calls: %s vs %s", again, got)
	}
}

func TestComputeFileHashMissingFile(t *testing.T) {
	_, err := hashing.ComputeFileHash(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestHashBytes(t *testing.T) {
	ref := sha256.Sum256([]byte("bravo"))
	if got := hashing.HashBytes([]byte("bravo")); got != hex.EncodeToString(ref[:]) {
		t.Fatalf("HashBytes mismatch: %s", got)
	}
}

func TestListFilesSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"a.txt", "nested/b.txt", "nested/deep/c.txt"} {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	paths, err := hashing.ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(paths), paths)
	}
}

func TestListFilesMissingRoot(t *testing.T) {
	_, err := hashing.ListFiles(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestSortPathsCaseInsensitive(t *testing.T) {
	paths := []string{"originals/Zulu.mkv", "originals/alpha.txt", "originals/BRAVO.bin"}
	hashing.SortPaths(paths)
	want := []string{"originals/alpha.txt", "originals/BRAVO.bin", "originals/Zulu.mkv"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v", i, paths)
		}
	}
}

func TestSortPathsStableForCaseCollisions(t *testing.T) {
	a := []string{"originals/A.txt", "originals/a.txt"}
	b := []string{"originals/a.txt", "originals/A.txt"}
	hashing.SortPaths(a)
	hashing.SortPaths(b)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sort not a total order: %v vs %v", a, b)
		}
	}
}
