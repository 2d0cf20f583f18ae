package transcode_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"custody/internal/services"
	"custody/internal/transcode"
)

type stubExecutor struct {
	runs   [][]string
	output []string
	err    error
	body   []byte
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	s.runs = append(s.runs, append([]string{binary}, args...))
	for _, line := range s.output {
		if onOutput != nil {
			onOutput(line)
		}
	}
	if s.err != nil {
		return s.err
	}
	if s.body != nil && len(args) > 0 {
		return os.WriteFile(args[len(args)-1], s.body, 0o644)
	}
	return nil
}

func TestTranscodeWritesOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.mkv")
	if err := os.WriteFile(input, []byte("source"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	output := filepath.Join(dir, "out", "proxy.mp4")

	exec := &stubExecutor{body: []byte("proxy-bytes")}
	client, err := transcode.New("ffmpeg", 0, transcode.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.Transcode(context.Background(), input, output, transcode.PresetWeb); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	if len(exec.runs) != 1 {
		t.Fatalf("expected one invocation, got %d", len(exec.runs))
	}
	argv := exec.runs[0]
	if argv[0] != "ffmpeg" {
		t.Fatalf("wrong binary: %v", argv)
	}
	joined := strings.Join(argv, " ")
	for _, fragment := range []string{"-i " + input, "-crf 28", output} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in argv %q", fragment, joined)
		}
	}
}

func TestTranscodePresetArgsAreFixed(t *testing.T) {
	web := transcode.PresetWeb.Args()
	review := transcode.PresetReview.Args()
	if strings.Join(web, " ") == strings.Join(review, " ") {
		t.Fatal("presets must differ")
	}
	// Mutating a returned slice must not leak into the preset table.
	web[0] = "mutated"
	if transcode.PresetWeb.Args()[0] == "mutated" {
		t.Fatal("preset args aliased to internal table")
	}
	if transcode.PresetWeb.Ext() != ".mp4" || transcode.PresetReview.Ext() != ".mkv" {
		t.Fatalf("unexpected extensions: %s %s", transcode.PresetWeb.Ext(), transcode.PresetReview.Ext())
	}
}

func TestTranscodeFailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "proxy.mp4")
	// Simulate a crashed tool that left partial bytes behind.
	if err := os.WriteFile(output, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	exec := &stubExecutor{err: errors.New("exit status 1")}
	client, err := transcode.New("ffmpeg", 0, transcode.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = client.Transcode(context.Background(), filepath.Join(dir, "input.mkv"), output, transcode.PresetWeb)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external-tool marker, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("partial output survived failure: %v", statErr)
	}
}

func TestTranscodeRejectsUnknownPreset(t *testing.T) {
	client, err := transcode.New("ffmpeg", 0, transcode.WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = client.Transcode(context.Background(), "in", "out", transcode.Preset("lossless"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestTranscodeTimeoutKillsSubprocess(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "slow-transcoder")
	script := "#!/bin/sh\nsleep 30\n"
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	client, err := transcode.New(binary, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	output := filepath.Join(dir, "proxy.mp4")
	start := time.Now()
	err = client.Transcode(context.Background(), filepath.Join(dir, "input.mkv"), output, transcode.PresetWeb)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external-tool marker, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("timeout did not bound the subprocess: %v", elapsed)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatal("partial output survived timeout")
	}
}

func TestVersionParsesProbeOutput(t *testing.T) {
	exec := &stubExecutor{output: []string{"ffmpeg version 7.1 Copyright (c) 2000-2024"}}
	client, err := transcode.New("ffmpeg", 0, transcode.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := client.Version(context.Background()); got != "7.1" {
		t.Fatalf("Version = %q, want 7.1", got)
	}
}

func TestVersionProbeFailureReturnsEmpty(t *testing.T) {
	exec := &stubExecutor{err: errors.New("not installed")}
	client, err := transcode.New("ffmpeg", 0, transcode.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := client.Version(context.Background()); got != "" {
		t.Fatalf("expected empty version, got %q", got)
	}
}

func TestParsePreset(t *testing.T) {
	if preset, err := transcode.ParsePreset(" Web "); err != nil || preset != transcode.PresetWeb {
		t.Fatalf("ParsePreset(web) = %v, %v", preset, err)
	}
	if _, err := transcode.ParsePreset("broadcast"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestToolName(t *testing.T) {
	client, err := transcode.New("/usr/local/bin/ffmpeg", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.Tool() != "ffmpeg" {
		t.Fatalf("Tool = %q", client.Tool())
	}
}
