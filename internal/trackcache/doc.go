// Package trackcache owns the hidden per-directory cache of derived
// artifacts (backup, waveform, normalized forms, tagged form, cover art) and
// the freshness checks that decide when each must be regenerated: an artifact
// is fresh when it exists and is no older than its dependency or watermark.
package trackcache
