// Package proxy turns an original evidence file into a registered playback
// proxy: hash the source, derive the content-addressed output name, run the
// transcoder, hash the result, and append the derivative record to the
// canonical manifest.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"custody/internal/auditlog"
	"custody/internal/hashing"
	"custody/internal/logging"
	"custody/internal/manifest"
	"custody/internal/services"
	"custody/internal/transcode"
)

const kindVideoProxy = "video_proxy"

// Generator produces and registers video proxies for case originals.
type Generator struct {
	transcoder transcode.Transcoder
	journal    *auditlog.Store
	logger     *slog.Logger
}

// NewGenerator constructs a generator. journal may be nil; journaling is
// best-effort and never blocks proxy creation.
func NewGenerator(transcoder transcode.Transcoder, journal *auditlog.Store, logger *slog.Logger) (*Generator, error) {
	if transcoder == nil {
		return nil, errors.New("proxy generator requires a transcoder")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		transcoder: transcoder,
		journal:    journal,
		logger:     logging.WithComponent(logger, "proxy"),
	}, nil
}

// Create transcodes the original at originalRel (case-relative) into a proxy
// named <source_sha256>.<preset>.<ext> under derivatives/proxies/ and
// registers the derivative. Returns the case-relative proxy path and its
// hash.
func (g *Generator) Create(ctx context.Context, caseDir, originalRel string, preset transcode.Preset) (string, string, error) {
	rel, err := normalizeRel(originalRel)
	if err != nil {
		return "", "", err
	}

	originalAbs := filepath.Join(caseDir, filepath.FromSlash(rel))
	if _, err := os.Stat(originalAbs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", services.Wrap(services.ErrNotFound, "proxy", "resolve", rel, err)
		}
		return "", "", fmt.Errorf("inspect original: %w", err)
	}

	sourceSHA, err := hashing.ComputeFileHash(originalAbs)
	if err != nil {
		return "", "", err
	}

	outputName := sourceSHA + "." + preset.String() + preset.Ext()
	outputRel := manifest.ProxiesRelPath(outputName)
	outputAbs := filepath.Join(manifest.ProxiesDir(caseDir), outputName)

	g.logger.Info("launching proxy transcode",
		logging.String(logging.FieldCaseDir, caseDir),
		logging.String(logging.FieldPath, rel),
		logging.String(logging.FieldPreset, preset.String()),
		logging.String("source_sha256", sourceSHA),
	)

	started := time.Now()
	if err := g.transcoder.Transcode(ctx, originalAbs, outputAbs, preset); err != nil {
		return "", "", err
	}

	proxySHA, err := hashing.ComputeFileHash(outputAbs)
	if err != nil {
		return "", "", err
	}

	toolVersion := g.transcoder.Version(ctx)
	record := manifest.DerivativeRecord{
		Kind:         kindVideoProxy,
		Path:         outputRel,
		Preset:       preset.String(),
		SHA256:       proxySHA,
		SourceSHA256: sourceSHA,
		Tool:         g.transcoder.Tool(),
		ToolVersion:  orSentinel(toolVersion),
	}
	if _, err := manifest.AddDerivative(ctx, caseDir, record, toolVersion, g.logger); err != nil {
		return "", "", err
	}

	g.journal.Record(ctx, g.logger, auditlog.Event{
		CaseDir: caseDir,
		Action:  auditlog.ActionProxyCreated,
		Path:    outputRel,
		SHA256:  proxySHA,
		Detail:  fmt.Sprintf("preset=%s source=%s", preset, sourceSHA),
	})

	g.logger.Info("proxy registered",
		logging.String(logging.FieldPath, outputRel),
		logging.String(logging.FieldSHA256, proxySHA),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outputRel, proxySHA, nil
}

func normalizeRel(originalRel string) (string, error) {
	rel := path.Clean(filepath.ToSlash(strings.TrimSpace(originalRel)))
	if rel == "." || rel == "" || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", services.Wrap(services.ErrValidation, "proxy", "resolve", fmt.Sprintf("path %q must be case-relative", originalRel), nil)
	}
	return rel, nil
}

func orSentinel(version string) string {
	if strings.TrimSpace(version) == "" {
		return manifest.ToolVersionNotFound
	}
	return version
}
