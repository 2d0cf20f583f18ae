// Package auditlog keeps an append-only chain-of-custody journal of the
// operations performed against case directories: manifest creation,
// derivative registration, exports, and verification runs. The journal is
// stored outside the case directory and is advisory only; integrity truth
// lives in the canonical manifest.
package auditlog
