// Package pipeline drives the per-track maintenance sequence. Each track
// flows through backup, waveform extraction, two-pass loudness normalization,
// encoding, metadata resolution, tagging, and promotion, with every stage
// skipped when its cached artifact is still fresh.
package pipeline
