// Package preflight validates the environment before custody operations run.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"custody/internal/config"
	"custody/internal/transcode"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// caseDir may be empty when no case is in scope.
func RunAll(ctx context.Context, cfg *config.Config, caseDir string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if caseDir != "" {
		results = append(results, CheckDirectoryAccess("Case directory", caseDir))
	}
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckTranscoder(ctx, cfg.Transcoder.Binary))
	return results
}

// AllPassed reports whether every check in results passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTranscoder verifies that the transcoder binary resolves on PATH and
// answers a version probe.
func CheckTranscoder(ctx context.Context, binary string) Result {
	const name = "Transcoder"

	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}
	if _, err := exec.LookPath(binary); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", binary)}
	}
	client, err := transcode.New(binary, 0)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	version := client.Version(ctx)
	if version == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s found but version probe failed", binary)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s", binary, version)}
}
