package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"custody/internal/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, _, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected no config file to exist")
	}
	if cfg.Transcoder.Binary != "ffmpeg" {
		t.Fatalf("unexpected default transcoder: %q", cfg.Transcoder.Binary)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if !filepath.IsAbs(cfg.Paths.LogDir) {
		t.Fatalf("log dir not absolute: %q", cfg.Paths.LogDir)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, "custody.toml")
	content := strings.Join([]string{
		"[paths]",
		`log_dir = "~/logs"`,
		"[transcoder]",
		`binary = "ffmpeg-custom"`,
		"timeout_seconds = 90",
		"[logging]",
		`format = "json"`,
		`level = "debug"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Paths.LogDir != filepath.Join(home, "logs") {
		t.Fatalf("log dir not expanded: %q", cfg.Paths.LogDir)
	}
	if cfg.Transcoder.Binary != "ffmpeg-custom" || cfg.Transcoder.TimeoutSeconds != 90 {
		t.Fatalf("transcoder not parsed: %+v", cfg.Transcoder)
	}
	if cfg.AuditDBPath() != filepath.Join(home, "logs", "audit.db") {
		t.Fatalf("unexpected audit db path: %q", cfg.AuditDBPath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Transcoder.TimeoutSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for negative timeout")
	}

	cfg = config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for bad log format")
	}

	cfg = config.Default()
	cfg.Transcoder.Binary = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for empty transcoder binary")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	target := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(target); err != nil {
		t.Fatalf("Load sample: %v", err)
	} else if !exists {
		t.Fatal("sample config not detected")
	}
}
