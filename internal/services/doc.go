// Package services defines shared error classification used across the
// integrity toolkit.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures with a
//     stable class (not found, external tool, schema) the command layer can
//     translate into process exit codes.
//
// Integrity findings (hash mismatches, missing evidence files) are never
// errors; they travel as report values from the verifier. The markers here
// cover precondition violations and tool failures only.
package services
