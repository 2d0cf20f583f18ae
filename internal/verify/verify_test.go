package verify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"custody/internal/hashing"
	"custody/internal/logging"
	"custody/internal/manifest"
	"custody/internal/services"
	"custody/internal/testsupport"
)

func verifyCase(t *testing.T, caseDir string) *Report {
	t.Helper()
	report, err := NewVerifier(nil, logging.NewNop()).Verify(context.Background(), caseDir)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	return report
}

func TestVerifyRequiresManifest(t *testing.T) {
	caseDir := testsupport.NewCaseDir(t, map[string]string{"clip.mov": "alpha"})
	_, err := NewVerifier(nil, logging.NewNop()).Verify(context.Background(), caseDir)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Verify() without manifest = %v, want ErrNotFound", err)
	}
}

func TestVerifyCleanCase(t *testing.T) {
	caseDir := testsupport.NewCaseDir(t, map[string]string{
		"alpha.mov": "alpha",
		"bravo.mov": "bravo",
	})
	if _, err := manifest.Create(context.Background(), caseDir, "stub 1.0", logging.NewNop()); err != nil {
		t.Fatalf("manifest.Create() error: %v", err)
	}

	report := verifyCase(t, caseDir)
	if !report.Clean() {
		t.Fatalf("Clean() = false for untouched case: %+v", report)
	}
	if report.Checked != 2 {
		t.Fatalf("Checked = %d, want 2", report.Checked)
	}
}

func TestVerifyDetectsTamperedOriginal(t *testing.T) {
	caseDir := testsupport.NewCaseDir(t, map[string]string{
		"alpha.mov": "alpha",
		"bravo.mov": "bravo",
	})
	if _, err := manifest.Create(context.Background(), caseDir, "stub 1.0", logging.NewNop()); err != nil {
		t.Fatalf("manifest.Create() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(caseDir, "originals", "alpha.mov"), []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tamper file: %v", err)
	}

	report := verifyCase(t, caseDir)
	if len(report.Mismatches) != 1 {
		t.Fatalf("Mismatches = %+v, want exactly one", report.Mismatches)
	}
	mm := report.Mismatches[0]
	if mm.Path != "originals/alpha.mov" || mm.Field != FieldContent {
		t.Fatalf("mismatch = %+v, want content mismatch for originals/alpha.mov", mm)
	}
	if mm.Expected == mm.Got || mm.Got == "" {
		t.Fatalf("mismatch digests not populated: %+v", mm)
	}
	if len(report.Missing) != 0 {
		t.Fatalf("Missing = %v, want none", report.Missing)
	}
}

func TestVerifyDetectsMissingFile(t *testing.T) {
	caseDir := testsupport.NewCaseDir(t, map[string]string{"alpha.mov": "alpha"})
	if _, err := manifest.Create(context.Background(), caseDir, "stub 1.0", logging.NewNop()); err != nil {
		t.Fatalf("manifest.Create() error: %v", err)
	}
	if err := os.Remove(filepath.Join(caseDir, "originals", "alpha.mov")); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	report := verifyCase(t, caseDir)
	if len(report.Missing) != 1 || report.Missing[0] != "originals/alpha.mov" {
		t.Fatalf("Missing = %v, want [originals/alpha.mov]", report.Missing)
	}
	if report.Clean() {
		t.Fatal("Clean() = true with a missing file")
	}
}

func TestVerifyDetectsBogusDerivativeSource(t *testing.T) {
	caseDir := testsupport.NewCaseDir(t, map[string]string{"alpha.mov": "alpha"})
	if _, err := manifest.Create(context.Background(), caseDir, "stub 1.0", logging.NewNop()); err != nil {
		t.Fatalf("manifest.Create() error: %v", err)
	}

	proxyDir := filepath.Join(caseDir, "derivatives", "proxies")
	if err := os.MkdirAll(proxyDir, 0o755); err != nil {
		t.Fatalf("mkdir proxies: %v", err)
	}
	if err := os.WriteFile(filepath.Join(proxyDir, "bogus.web.mp4"), []byte("proxy"), 0o644); err != nil {
		t.Fatalf("write proxy: %v", err)
	}
	const bogus = "00000000000000000000000000000000000000000000000000000000deadbeef"
	rec := manifest.DerivativeRecord{
		Kind:         "video_proxy",
		Path:         "derivatives/proxies/bogus.web.mp4",
		Preset:       "web",
		SourceSHA256: bogus,
		Tool:         "ffmpeg",
		ToolVersion:  "stub 1.0",
	}
	var err error
	rec.SHA256, err = hashing.ComputeFileHash(filepath.Join(proxyDir, "bogus.web.mp4"))
	if err != nil {
		t.Fatalf("hash proxy: %v", err)
	}
	if _, err := manifest.AddDerivative(context.Background(), caseDir, rec, "stub 1.0", logging.NewNop()); err != nil {
		t.Fatalf("AddDerivative() error: %v", err)
	}

	report := verifyCase(t, caseDir)
	if report.Clean() {
		t.Fatal("Clean() = true with an unmatched derivative source")
	}
	var found bool
	for _, mm := range report.Mismatches {
		if mm.Field == FieldSource && mm.Path == rec.Path && mm.Expected == bogus {
			found = true
		}
	}
	if !found {
		t.Fatalf("no source mismatch for %s in %+v", rec.Path, report.Mismatches)
	}
}
