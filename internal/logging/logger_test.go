package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerLine(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	WithComponent(logger, "manifest").Info("manifest written",
		String(FieldPath, "manifests/manifest.canonical.json"),
		Int("originals", 2),
	)

	line := buf.String()
	for _, fragment := range []string{"INFO", "[manifest]", "manifest written", "path=manifests/manifest.canonical.json", "originals=2"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in line %q", fragment, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be lifted into the header, got %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("probe", String("detail", "not found"))
	if !strings.Contains(buf.String(), `detail="not found"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("hidden")
	logger.Warn("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info record should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestJSONHandlerFieldNames(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	logger.Info("export complete", String(FieldCaseDir, "/cases/matter-1"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record["msg"] != "export complete" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["case_dir"] != "/cases/matter-1" {
		t.Fatalf("unexpected case_dir: %v", record["case_dir"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("missing ts field")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
