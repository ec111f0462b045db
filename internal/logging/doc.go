// Package logging builds the slog loggers used across the pipeline: a compact
// console handler for interactive runs and a JSON handler for log files and
// non-terminal output. The "component" attribute is promoted into the console
// line prefix so per-stage loggers read naturally.
package logging
