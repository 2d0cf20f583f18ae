// Package logging builds the slog loggers used across the toolkit: a console
// handler for interactive use and a JSON handler for machine consumption,
// with shared field-name constants so records stay greppable.
package logging
