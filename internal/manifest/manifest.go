package manifest

import "path/filepath"

// SchemaVersion is written into both manifests. Bump only with a migration
// story for previously written cases.
const SchemaVersion = "1.1.0"

// ToolVersionNotFound is the sentinel recorded when the transcoder version
// probe fails; a failed probe never aborts manifest generation.
const ToolVersionNotFound = "not found"

// Fixed case-directory layout.
const (
	OriginalsDirName = "originals"
	proxiesRelDir    = "derivatives/proxies"
	canonicalRel     = "manifests/manifest.canonical.json"
	metaRel          = "manifests/manifest.meta.json"
)

// OriginalRecord is the content-addressed identity of one intake file.
// Immutable once written. Field order mirrors the canonical JSON key order.
type OriginalRecord struct {
	Mtime  int64  `json:"mtime"`
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// DerivativeRecord traces a generated artifact back to the exact source
// bytes it was derived from and the operation that produced it.
type DerivativeRecord struct {
	CommandFingerprint string `json:"command_fingerprint"`
	Kind               string `json:"kind"`
	Path               string `json:"path"`
	Preset             string `json:"preset"`
	SHA256             string `json:"sha256"`
	SourceSHA256       string `json:"source_sha256"`
	Tool               string `json:"tool"`
	ToolVersion        string `json:"tool_version"`
}

// CanonicalManifest is the single source of truth for what evidence exists
// in a case. It carries no generation timestamps; given the same file state
// its serialized form is byte-identical across runs.
type CanonicalManifest struct {
	CaseDir       string             `json:"case_dir"`
	Derivatives   []DerivativeRecord `json:"derivatives"`
	Originals     []OriginalRecord   `json:"originals"`
	SchemaVersion string             `json:"schema_version"`
}

// ToolVersions records the runtime and transcoder versions in the meta
// manifest.
type ToolVersions struct {
	Interpreter string `json:"interpreter"`
	Transcoder  string `json:"transcoder"`
}

// MetaManifest carries the volatile facts about manifest generation, kept
// out of the canonical manifest so the latter stays reproducible.
type MetaManifest struct {
	GeneratedAt   string       `json:"generated_at"`
	SchemaVersion string       `json:"schema_version"`
	ToolVersions  ToolVersions `json:"tool_versions"`
}

// OriginalsDir returns the intake directory for a case.
func OriginalsDir(caseDir string) string {
	return filepath.Join(caseDir, OriginalsDirName)
}

// ProxiesDir returns the directory holding generated proxy files.
func ProxiesDir(caseDir string) string {
	return filepath.Join(caseDir, filepath.FromSlash(proxiesRelDir))
}

// ProxiesRelPath returns the case-relative, slash-normalized path of a proxy
// file named name.
func ProxiesRelPath(name string) string {
	return proxiesRelDir + "/" + name
}

// CanonicalPath returns the canonical manifest location for a case.
func CanonicalPath(caseDir string) string {
	return filepath.Join(caseDir, filepath.FromSlash(canonicalRel))
}

// MetaPath returns the meta manifest location for a case.
func MetaPath(caseDir string) string {
	return filepath.Join(caseDir, filepath.FromSlash(metaRel))
}

// CanonicalRelPath and MetaRelPath are the case-relative manifest paths as
// they appear inside export archives.
func CanonicalRelPath() string { return canonicalRel }

func MetaRelPath() string { return metaRel }

// HasOriginal reports whether any original record carries the given hash.
func (m *CanonicalManifest) HasOriginal(sha256 string) bool {
	for _, rec := range m.Originals {
		if rec.SHA256 == sha256 {
			return true
		}
	}
	return false
}
