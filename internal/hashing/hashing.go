package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/cases"

	"custody/internal/services"
)

// chunkSize bounds the read buffer so large evidence files are never loaded
// wholly into memory.
const chunkSize = 128 * 1024

// ComputeFileHash streams the file at path through SHA-256 and returns the
// lowercase hex digest. A missing or unreadable path is a fatal not-found
// condition; transient read errors are never masked or retried.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "hashing", "open", path, err)
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	digest := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// HashBytes returns the lowercase hex SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IterateFiles walks root and invokes fn for every regular file. Traversal
// order is whatever the filesystem yields and must not be trusted; callers
// needing determinism materialize the paths and sort them.
func IterateFiles(root string, fn func(path string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return fn(path, info)
	})
}

// ListFiles materializes every regular file under root. The result is
// unsorted; see SortPaths.
func ListFiles(root string) ([]string, error) {
	var paths []string
	err := IterateFiles(root, func(path string, _ fs.FileInfo) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "hashing", "walk", root, err)
		}
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}

// SortKey returns the case-insensitive ordering key for a manifest path.
// Unicode case folding keeps the ordering independent of platform locale.
func SortKey(path string) string {
	return cases.Fold().String(path)
}

// SortPaths orders paths case-insensitively with the raw string as a
// tiebreaker so paths differing only in case still sort deterministically.
func SortPaths(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		ki, kj := SortKey(paths[i]), SortKey(paths[j])
		if ki != kj {
			return ki < kj
		}
		return paths[i] < paths[j]
	})
}
