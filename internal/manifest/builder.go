package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"custody/internal/caselock"
	"custody/internal/hashing"
	"custody/internal/logging"
	"custody/internal/services"
)

// Create scans originals/, hashes every regular file, and writes the
// canonical and meta manifests for caseDir. Requires originals/ to exist.
// Given an unchanged originals tree, repeated calls produce byte-identical
// canonical manifests; only the meta manifest's generated_at differs.
//
// transcoderVersion is the best-effort probe result for the external
// transcoder; pass ToolVersionNotFound when the probe failed.
func Create(ctx context.Context, caseDir, transcoderVersion string, logger *slog.Logger) (*CanonicalManifest, error) {
	lock, err := caselock.Acquire(ctx, caseDir)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	return createLocked(ctx, caseDir, transcoderVersion, logger)
}

// createLocked assumes the caller holds the case lock.
func createLocked(ctx context.Context, caseDir, transcoderVersion string, logger *slog.Logger) (*CanonicalManifest, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	log := logging.WithComponent(logger, "manifest")

	originalsDir := OriginalsDir(caseDir)
	if info, err := os.Stat(originalsDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "manifest", "create", originalsDir, err)
		}
		return nil, fmt.Errorf("stat originals: %w", err)
	} else if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "manifest", "create", originalsDir+" is not a directory", nil)
	}

	records, err := scanOriginals(ctx, caseDir, originalsDir)
	if err != nil {
		return nil, err
	}

	m := &CanonicalManifest{
		CaseDir:       filepath.ToSlash(filepath.Clean(caseDir)),
		Derivatives:   []DerivativeRecord{},
		Originals:     records,
		SchemaVersion: SchemaVersion,
	}

	if err := writeCanonical(caseDir, m); err != nil {
		return nil, err
	}
	if err := WriteMeta(caseDir, transcoderVersion); err != nil {
		return nil, err
	}

	log.Info("canonical manifest written",
		logging.String(logging.FieldCaseDir, caseDir),
		logging.Int("originals", len(m.Originals)),
	)
	return m, nil
}

func scanOriginals(ctx context.Context, caseDir, originalsDir string) ([]OriginalRecord, error) {
	paths, err := hashing.ListFiles(originalsDir)
	if err != nil {
		return nil, err
	}

	// Relative slash paths first; the filesystem's traversal order is
	// untrusted, the fold-sorted relative path is the manifest order.
	rels := make([]string, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(caseDir, path)
		if err != nil {
			return nil, fmt.Errorf("relativize %s: %w", path, err)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	hashing.SortPaths(rels)

	records := make([]OriginalRecord, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs := filepath.Join(caseDir, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", abs, err)
		}
		digest, err := hashing.ComputeFileHash(abs)
		if err != nil {
			return nil, err
		}
		records = append(records, OriginalRecord{
			Mtime:  info.ModTime().Unix(),
			Path:   rel,
			SHA256: digest,
			Size:   info.Size(),
		})
	}
	return records, nil
}

// Load reads and parses the canonical manifest for caseDir. A missing
// manifest is the not-found precondition the exporter and proxy generator
// gate on; malformed JSON is a schema error.
func Load(caseDir string) (*CanonicalManifest, error) {
	raw, err := os.ReadFile(CanonicalPath(caseDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "manifest", "load", CanonicalPath(caseDir), err)
		}
		return nil, fmt.Errorf("read canonical manifest: %w", err)
	}

	var m CanonicalManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, services.Wrap(services.ErrSchema, "manifest", "load", CanonicalPath(caseDir), err)
	}
	if strings.TrimSpace(m.SchemaVersion) == "" {
		return nil, services.Wrap(services.ErrSchema, "manifest", "load", "missing schema_version", nil)
	}
	if m.Derivatives == nil {
		m.Derivatives = []DerivativeRecord{}
	}
	return &m, nil
}

// WriteMeta regenerates the meta manifest with a fresh generated_at. Called
// on every canonical-manifest mutation.
func WriteMeta(caseDir, transcoderVersion string) error {
	if strings.TrimSpace(transcoderVersion) == "" {
		transcoderVersion = ToolVersionNotFound
	}
	meta := &MetaManifest{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		SchemaVersion: SchemaVersion,
		ToolVersions: ToolVersions{
			Interpreter: runtime.Version(),
			Transcoder:  transcoderVersion,
		},
	}
	encoded, err := EncodeMeta(meta)
	if err != nil {
		return err
	}
	return writeFileAtomic(MetaPath(caseDir), encoded)
}

// LoadMeta reads the meta manifest if present; a missing file returns nil.
func LoadMeta(caseDir string) (*MetaManifest, error) {
	raw, err := os.ReadFile(MetaPath(caseDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read meta manifest: %w", err)
	}
	var meta MetaManifest
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, services.Wrap(services.ErrSchema, "manifest", "load-meta", MetaPath(caseDir), err)
	}
	return &meta, nil
}

func writeCanonical(caseDir string, m *CanonicalManifest) error {
	sortDerivatives(m.Derivatives)
	encoded, err := EncodeCanonical(m)
	if err != nil {
		return err
	}
	return writeFileAtomic(CanonicalPath(caseDir), encoded)
}

func sortDerivatives(records []DerivativeRecord) {
	sort.Slice(records, func(i, j int) bool {
		ki, kj := hashing.SortKey(records[i].Path), hashing.SortKey(records[j].Path)
		if ki != kj {
			return ki < kj
		}
		return records[i].Path < records[j].Path
	})
}

// writeFileAtomic lands content via a temp file and rename so a crashed
// writer never leaves a truncated manifest behind.
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
