package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"custody/internal/caselock"
	"custody/internal/logging"
	"custody/internal/services"
)

// AddDerivative appends a derivative record to the case's canonical
// manifest, keeping the derivatives array sorted by path. The caller supplies
// everything but the command fingerprint, which is computed here. If no
// canonical manifest exists yet one is created first.
//
// The whole read-modify-write runs under the exclusive case lock; concurrent
// registrars serialize instead of overwriting each other.
func AddDerivative(ctx context.Context, caseDir string, rec DerivativeRecord, transcoderVersion string, logger *slog.Logger) (DerivativeRecord, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	log := logging.WithComponent(logger, "registry")

	if err := validateDerivative(rec); err != nil {
		return DerivativeRecord{}, err
	}

	lock, err := caselock.Acquire(ctx, caseDir)
	if err != nil {
		return DerivativeRecord{}, err
	}
	defer lock.Unlock()

	m, err := Load(caseDir)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			return DerivativeRecord{}, err
		}
		m, err = createLocked(ctx, caseDir, transcoderVersion, logger)
		if err != nil {
			return DerivativeRecord{}, err
		}
	}

	fingerprint, err := Fingerprint(rec.Kind, rec.Preset, rec.SourceSHA256)
	if err != nil {
		return DerivativeRecord{}, err
	}
	rec.CommandFingerprint = fingerprint

	m.Derivatives = append(m.Derivatives, rec)
	if err := writeCanonical(caseDir, m); err != nil {
		return DerivativeRecord{}, err
	}
	if err := WriteMeta(caseDir, transcoderVersion); err != nil {
		return DerivativeRecord{}, err
	}

	log.Info("derivative registered",
		logging.String(logging.FieldCaseDir, caseDir),
		logging.String(logging.FieldPath, rec.Path),
		logging.String(logging.FieldSHA256, rec.SHA256),
		logging.String("source_sha256", rec.SourceSHA256),
	)
	return rec, nil
}

func validateDerivative(rec DerivativeRecord) error {
	for name, value := range map[string]string{
		"path":          rec.Path,
		"sha256":        rec.SHA256,
		"kind":          rec.Kind,
		"preset":        rec.Preset,
		"source_sha256": rec.SourceSHA256,
	} {
		if strings.TrimSpace(value) == "" {
			return services.Wrap(services.ErrValidation, "registry", "add", fmt.Sprintf("derivative %s required", name), nil)
		}
	}
	return nil
}
