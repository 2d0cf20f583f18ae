package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"custody/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	if err := os.MkdirAll(cfgVal.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("create log dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTranscoderBinary overrides the transcoder executable on the test
// config.
func WithTranscoderBinary(binary string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcoder.Binary = binary
	}
}

// WithTranscoderTimeout sets the transcoder subprocess timeout in seconds.
func WithTranscoderTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcoder.TimeoutSeconds = seconds
	}
}

// WithStubbedTranscoder writes a stub transcoder executable that copies its
// penultimate argument to its final argument, prepends its directory to PATH,
// and points the config at it. The stub behaves deterministically: output
// bytes equal input bytes.
func WithStubbedTranscoder() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		script := []byte("#!/bin/sh\n" +
			"# naive arg scan: copy the argument following -i to the last argument\n" +
			"input=\"\"\n" +
			"prev=\"\"\n" +
			"for arg in \"$@\"; do\n" +
			"  if [ \"$prev\" = \"-i\" ]; then input=\"$arg\"; fi\n" +
			"  prev=\"$arg\"\n" +
			"  last=\"$arg\"\n" +
			"done\n" +
			"cp \"$input\" \"$last\"\n")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write stub transcoder: %v", err)
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})

		b.cfg.Transcoder.Binary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
