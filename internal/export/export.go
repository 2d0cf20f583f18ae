// Package export packages a case directory into a byte-reproducible archive.
//
// Determinism comes from three fixed choices: entries are written in
// fold-sorted path order, every entry timestamp is pinned to a sentinel when
// normalization is requested, and the deflate encoder is pinned to one
// implementation and level. The canonical manifest is embedded verbatim so
// the archived bytes are provably the bytes that were on disk.
package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"

	"custody/internal/auditlog"
	"custody/internal/caselock"
	"custody/internal/hashing"
	"custody/internal/logging"
	"custody/internal/manifest"
	"custody/internal/services"
)

// AuditMemberName is the archive member holding the audit excerpt.
const AuditMemberName = "audit/audit.json"

// sentinelTime is the pinned entry timestamp under normalization: the
// earliest date the ZIP format can represent.
var sentinelTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Options controls archive layout.
type Options struct {
	// NormalizeMtime pins every entry timestamp to the 1980-01-01 sentinel
	// and fixes the compression mode, making repeat exports byte-identical.
	NormalizeMtime bool
}

// auditEntry is one line of the audit excerpt. Field order mirrors the JSON
// key order.
type auditEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Exporter packages case directories.
type Exporter struct {
	journal *auditlog.Store
	logger  *slog.Logger
}

// NewExporter constructs an exporter. journal may be nil.
func NewExporter(journal *auditlog.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		journal: journal,
		logger:  logging.WithComponent(logger, "export"),
	}
}

// Export writes the archive for caseDir to outPath and returns outPath. The
// canonical manifest must already exist; Export never creates one.
func (e *Exporter) Export(ctx context.Context, caseDir, outPath string, opts Options) (string, error) {
	if _, err := manifest.Load(caseDir); err != nil {
		return "", err
	}

	canonicalBytes, err := os.ReadFile(manifest.CanonicalPath(caseDir))
	if err != nil {
		return "", fmt.Errorf("read canonical manifest: %w", err)
	}
	metaBytes, err := os.ReadFile(manifest.MetaPath(caseDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read meta manifest: %w", err)
	}

	rels, err := e.collectFiles(caseDir, outPath)
	if err != nil {
		return "", err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	if err := e.writeArchive(ctx, out, caseDir, rels, canonicalBytes, metaBytes, opts); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("close archive: %w", err)
	}

	archiveSHA, err := hashing.ComputeFileHash(outPath)
	if err != nil {
		return "", err
	}
	e.journal.Record(ctx, e.logger, auditlog.Event{
		CaseDir: caseDir,
		Action:  auditlog.ActionCaseExported,
		Path:    outPath,
		SHA256:  archiveSHA,
		Detail:  fmt.Sprintf("files=%d normalize_mtime=%v", len(rels), opts.NormalizeMtime),
	})

	e.logger.Info("case exported",
		logging.String(logging.FieldCaseDir, caseDir),
		logging.String(logging.FieldPath, outPath),
		logging.String(logging.FieldSHA256, archiveSHA),
		logging.Int("files", len(rels)),
	)
	return outPath, nil
}

// collectFiles enumerates everything under caseDir except the manifest
// files (appended verbatim afterward), the case lock, and the archive
// itself, returning fold-sorted case-relative slash paths.
func (e *Exporter) collectFiles(caseDir, outPath string) ([]string, error) {
	outAbs, err := filepath.Abs(outPath)
	if err != nil {
		return nil, fmt.Errorf("resolve archive path: %w", err)
	}

	excluded := map[string]struct{}{
		manifest.CanonicalRelPath(): {},
		manifest.MetaRelPath():      {},
		caselock.FileName:           {},
	}

	var rels []string
	err = hashing.IterateFiles(caseDir, func(path string, _ fs.FileInfo) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if abs == outAbs {
			return nil
		}
		rel, err := filepath.Rel(caseDir, path)
		if err != nil {
			return err
		}
		slashRel := filepath.ToSlash(rel)
		if _, skip := excluded[slashRel]; skip {
			return nil
		}
		rels = append(rels, slashRel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate case files: %w", err)
	}
	hashing.SortPaths(rels)
	return rels, nil
}

func (e *Exporter) writeArchive(ctx context.Context, out io.Writer, caseDir string, rels []string, canonicalBytes, metaBytes []byte, opts Options) error {
	zw := zip.NewWriter(out)
	// One deflate implementation at one level: the compressed bytes stay
	// stable across runs and hosts.
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	excerpt := make([]auditEntry, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return err
		}
		abs := filepath.Join(caseDir, filepath.FromSlash(rel))
		digest, err := hashing.ComputeFileHash(abs)
		if err != nil {
			return err
		}
		excerpt = append(excerpt, auditEntry{Path: rel, SHA256: digest})

		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("stat %s: %w", abs, err)
		}
		entry, err := e.createEntry(zw, rel, info.ModTime(), opts)
		if err != nil {
			return err
		}
		f, err := os.Open(abs)
		if err != nil {
			return fmt.Errorf("open %s: %w", abs, err)
		}
		if _, err := io.Copy(entry, f); err != nil {
			f.Close()
			return fmt.Errorf("archive %s: %w", rel, err)
		}
		f.Close()
	}

	auditBytes, err := encodeExcerpt(excerpt)
	if err != nil {
		return err
	}
	if err := e.writeMember(zw, AuditMemberName, auditBytes, opts); err != nil {
		return err
	}
	// Verbatim bytes: the embedded manifests are never reparsed or
	// reserialized, so the archive members equal the on-disk files exactly.
	if err := e.writeMember(zw, manifest.CanonicalRelPath(), canonicalBytes, opts); err != nil {
		return err
	}
	if metaBytes != nil {
		if err := e.writeMember(zw, manifest.MetaRelPath(), metaBytes, opts); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func (e *Exporter) createEntry(zw *zip.Writer, name string, modTime time.Time, opts Options) (io.Writer, error) {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modTime.UTC(),
	}
	if opts.NormalizeMtime {
		header.Modified = sentinelTime
	}
	header.SetMode(0o644)
	entry, err := zw.CreateHeader(header)
	if err != nil {
		return nil, fmt.Errorf("create archive entry %s: %w", name, err)
	}
	return entry, nil
}

func (e *Exporter) writeMember(zw *zip.Writer, name string, content []byte, opts Options) error {
	entry, err := e.createEntry(zw, name, time.Now(), opts)
	if err != nil {
		return err
	}
	if _, err := entry.Write(content); err != nil {
		return fmt.Errorf("write archive member %s: %w", name, err)
	}
	return nil
}

func encodeExcerpt(entries []auditEntry) ([]byte, error) {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "export", "audit", "encode audit excerpt", err)
	}
	return encoded, nil
}
