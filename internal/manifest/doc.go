// Package manifest owns the on-disk record of what evidence exists in a
// case directory.
//
// Two files live under manifests/: the canonical manifest, a deterministic,
// content-addressed listing of originals and derivatives whose serialized
// form is byte-identical for identical input state, and the meta manifest,
// which holds the volatile facts (generation time, tool versions) that would
// otherwise poison reproducibility. Every mutation rewrites both under the
// exclusive case lock.
package manifest
