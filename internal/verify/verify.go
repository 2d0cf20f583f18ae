// Package verify re-hashes case files against the canonical manifest.
//
// Findings are data, not errors: a tampered file produces a populated Report
// and a nil error. Errors are reserved for preconditions like a missing
// manifest or an unreadable case directory.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"custody/internal/auditlog"
	"custody/internal/hashing"
	"custody/internal/logging"
	"custody/internal/manifest"
	"custody/internal/services"
)

// Mismatch fields.
const (
	// FieldContent marks a file whose bytes no longer hash to the recorded
	// digest.
	FieldContent = "content"
	// FieldSource marks a derivative whose recorded source digest matches no
	// original in the manifest.
	FieldSource = "source"
)

// Mismatch is one verification finding.
type Mismatch struct {
	Path     string `json:"path"`
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

// Report is the outcome of one verification pass.
type Report struct {
	CaseDir    string     `json:"case_dir"`
	Checked    int        `json:"checked"`
	Missing    []string   `json:"missing"`
	Mismatches []Mismatch `json:"mismatches"`
}

// Clean reports whether the pass found nothing wrong.
func (r *Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Mismatches) == 0
}

// Verifier re-checks case directories.
type Verifier struct {
	journal *auditlog.Store
	logger  *slog.Logger
}

// NewVerifier constructs a verifier. journal may be nil.
func NewVerifier(journal *auditlog.Store, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Verifier{
		journal: journal,
		logger:  logging.WithComponent(logger, "verify"),
	}
}

// Verify re-hashes every file the canonical manifest records and checks each
// derivative's source linkage. The manifest must already exist.
func (v *Verifier) Verify(ctx context.Context, caseDir string) (*Report, error) {
	m, err := manifest.Load(caseDir)
	if err != nil {
		return nil, err
	}

	report := &Report{
		CaseDir:    m.CaseDir,
		Missing:    []string{},
		Mismatches: []Mismatch{},
	}

	for _, rec := range m.Originals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v.checkFile(report, caseDir, rec.Path, rec.SHA256)
	}
	for _, rec := range m.Derivatives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v.checkFile(report, caseDir, rec.Path, rec.SHA256)
		if !m.HasOriginal(rec.SourceSHA256) {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Path:     rec.Path,
				Field:    FieldSource,
				Expected: rec.SourceSHA256,
			})
		}
	}

	v.journal.Record(ctx, v.logger, auditlog.Event{
		CaseDir: caseDir,
		Action:  auditlog.ActionCaseVerified,
		Detail:  fmt.Sprintf("checked=%d missing=%d mismatches=%d", report.Checked, len(report.Missing), len(report.Mismatches)),
	})

	if report.Clean() {
		v.logger.Info("case verified clean",
			logging.String(logging.FieldCaseDir, caseDir),
			logging.Int("checked", report.Checked),
		)
	} else {
		v.logger.Warn("case verification found problems",
			logging.String(logging.FieldCaseDir, caseDir),
			logging.Int("checked", report.Checked),
			logging.Int("missing", len(report.Missing)),
			logging.Int("mismatches", len(report.Mismatches)),
		)
	}
	return report, nil
}

func (v *Verifier) checkFile(report *Report, caseDir, rel, want string) {
	report.Checked++
	digest, err := hashing.ComputeFileHash(filepath.Join(caseDir, filepath.FromSlash(rel)))
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		report.Missing = append(report.Missing, rel)
	case err != nil:
		// Unreadable is indistinguishable from absent for custody purposes;
		// surface it as missing rather than aborting the pass.
		v.logger.Warn("file unreadable during verification",
			logging.String(logging.FieldPath, rel),
			logging.Error(err),
		)
		report.Missing = append(report.Missing, rel)
	case digest != want:
		report.Mismatches = append(report.Mismatches, Mismatch{
			Path:     rel,
			Field:    FieldContent,
			Expected: want,
			Got:      digest,
		})
	}
}
