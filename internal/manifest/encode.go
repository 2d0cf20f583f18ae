package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"custody/internal/hashing"
)

// EncodeCanonical serializes the manifest in RFC 8785 canonical form:
// lexicographic key order, minimal separators, no trailing newline. Equal
// manifests always encode to identical bytes.
func EncodeCanonical(m *CanonicalManifest) ([]byte, error) {
	return encodeJCS(m)
}

// EncodeMeta serializes the meta manifest in the same canonical form so the
// two files share one on-disk convention.
func EncodeMeta(m *MetaManifest) ([]byte, error) {
	return encodeJCS(m)
}

func encodeJCS(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize manifest: %w", err)
	}
	return canonical, nil
}

// Fingerprint computes the command fingerprint for a derivation operation: a
// SHA-256 over the canonical encoding of the operation's defining
// parameters. It identifies "the same operation" without reference to
// wall-clock time.
func Fingerprint(kind, preset, sourceSHA256 string) (string, error) {
	params := struct {
		Kind         string `json:"kind"`
		Preset       string `json:"preset"`
		SourceSHA256 string `json:"source_sha256"`
	}{Kind: kind, Preset: preset, SourceSHA256: sourceSHA256}

	canonical, err := encodeJCS(params)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashing.HashBytes(canonical), nil
}
