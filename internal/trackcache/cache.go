package trackcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tonearm/internal/services"
)

// Artifact kind suffixes. Every derived artifact is named from the source
// stem plus a fixed suffix so the layout stays deterministic.
const (
	backupSuffix             = ".orig.mp3"
	waveformSuffix           = ".wav"
	normalizedWaveformSuffix = ".norm.wav"
	normalizedTrackSuffix    = ".norm.mp3"
	taggedTrackSuffix        = ".tagged.mp3"
	coverArtSuffix           = ".cover.jpg"
	promotionSuffix          = ".promote.mp3"
	tempSuffix               = ".tmp"
)

// Cache addresses the hidden per-directory cache for one track's derived
// artifacts. The cache directory lives beside the track so renames into the
// track's own path stay on one filesystem.
type Cache struct {
	dir  string
	stem string
}

// ForTrack derives the cache location for a source track.
func ForTrack(trackPath, dirName string) Cache {
	trackPath = filepath.Clean(trackPath)
	base := filepath.Base(trackPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return Cache{
		dir:  filepath.Join(filepath.Dir(trackPath), dirName),
		stem: stem,
	}
}

// Dir returns the cache directory path.
func (c Cache) Dir() string { return c.dir }

// EnsureDir creates the cache directory when missing.
func (c Cache) EnsureDir() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return services.Wrap(services.ErrFileSystem, "cache", "create directory", c.dir, err)
	}
	return nil
}

// Backup is the write-once snapshot of the original track bytes.
func (c Cache) Backup() string { return c.artifact(backupSuffix) }

// Waveform is the lossless intermediate decoded from the track.
func (c Cache) Waveform() string { return c.artifact(waveformSuffix) }

// NormalizedWaveform is the loudness-corrected waveform from pass 2.
func (c Cache) NormalizedWaveform() string { return c.artifact(normalizedWaveformSuffix) }

// NormalizedTrack is the re-encoded MP3 of the corrected waveform.
func (c Cache) NormalizedTrack() string { return c.artifact(normalizedTrackSuffix) }

// TaggedTrack is the final artifact: normalized audio with resolved tags and
// cover art. It is the artifact promoted over the track's own path.
func (c Cache) TaggedTrack() string { return c.artifact(taggedTrackSuffix) }

// CoverArt is the extracted album-art image, when the source carries one.
func (c Cache) CoverArt() string { return c.artifact(coverArtSuffix) }

// PromotionStaging is the temporary copy renamed over the track during
// promotion.
func (c Cache) PromotionStaging() string { return c.artifact(promotionSuffix) }

// TempFor returns the rename-staging path for a full-stream rewrite of the
// given artifact.
func TempFor(path string) string { return path + tempSuffix }

func (c Cache) artifact(suffix string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s%s", c.stem, suffix))
}
