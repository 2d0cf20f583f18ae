// Package main hosts the custody CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into manifest
// construction, proxy generation, deterministic export, verification, and
// configuration scaffolding. It centralizes configuration resolution, audit
// journal access, and structured logging setup so subcommands can focus on
// user experience instead of wiring.
//
// This layer is the only place errors become exit codes: 0 on success, 2 for
// precondition or IO failures, 3 when a verification pass found problems.
package main
