// Package normalize drives the two-pass loudness protocol over a track's
// lossless waveform: measure, correct in linear mode with the measured
// values fixed, then re-encode at the configured bitrate. Each stage writes
// through a temp path so interrupted runs never leave a half-written
// artifact in the cache.
package normalize
