package tagging

import (
	"context"
	"log/slog"
	"os"

	"tonearm/internal/fileutil"
	"tonearm/internal/metadata"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/trackcache"
)

// Writer stamps resolved metadata and cover art onto normalized artifacts.
// Every write is a full-stream rewrite to a temp path followed by an atomic
// rename; the artifact being read is never mutated in place.
type Writer struct {
	transcoder ffmpeg.Transcoder
	logger     *slog.Logger
}

// NewWriter builds a tag writer.
func NewWriter(transcoder ffmpeg.Transcoder, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{transcoder: transcoder, logger: logger.With("component", "tag")}
}

// Write produces the tagged artifact at taggedPath from the normalized
// artifact, then multiplexes cover art in a second pass when an extracted
// image exists at coverPath.
func (w *Writer) Write(ctx context.Context, normalizedPath, trackPath string, resolved metadata.Resolved, taggedPath, coverPath string) error {
	tags, err := BuildTags(trackPath, resolved)
	if err != nil {
		return err
	}

	temp := trackcache.TempFor(taggedPath)
	if err := w.transcoder.WriteTags(ctx, normalizedPath, temp, tags); err != nil {
		_ = os.Remove(temp)
		return err
	}
	if err := fileutil.ReplaceFile(temp, taggedPath); err != nil {
		return err
	}
	w.logger.Debug("tags written", slog.String("track", trackPath), slog.Int("tags", len(tags)))

	_, hasCover, err := trackcache.Stat(coverPath)
	if err != nil {
		return err
	}
	if !hasCover {
		return nil
	}

	temp = trackcache.TempFor(taggedPath)
	if err := w.transcoder.AttachCoverArt(ctx, taggedPath, coverPath, temp); err != nil {
		_ = os.Remove(temp)
		return err
	}
	if err := fileutil.ReplaceFile(temp, taggedPath); err != nil {
		return err
	}
	w.logger.Debug("cover art attached", slog.String("track", trackPath))
	return nil
}
