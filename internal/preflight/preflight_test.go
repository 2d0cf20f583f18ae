package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"custody/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckTranscoder_NotFound(t *testing.T) {
	result := CheckTranscoder(context.Background(), "definitely-not-a-real-transcoder")
	if result.Passed {
		t.Fatal("expected failure for missing binary")
	}
}

func TestCheckTranscoder_NotConfigured(t *testing.T) {
	result := CheckTranscoder(context.Background(), "  ")
	if result.Passed {
		t.Fatal("expected failure for blank binary")
	}
}

func TestCheckTranscoder_OK(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "fakecoder")
	script := "#!/bin/sh\necho 'fakecoder version 6.1.1 Copyright (c) test'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	result := CheckTranscoder(context.Background(), "fakecoder")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTranscoderBinary("definitely-not-real"))
	caseDir := testsupport.NewCaseDir(t, map[string]string{"clip.mov": "alpha"})

	results := RunAll(context.Background(), cfg, caseDir)
	if len(results) != 3 {
		t.Fatalf("RunAll() returned %d results, want 3", len(results))
	}
	if AllPassed(results) {
		t.Fatal("AllPassed() = true with an unresolvable transcoder")
	}
	if !results[0].Passed {
		t.Fatalf("case directory check failed: %s", results[0].Detail)
	}
}
