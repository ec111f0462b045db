package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tonearm/internal/config"
	"tonearm/internal/fileutil"
	"tonearm/internal/metadata"
	"tonearm/internal/normalize"
	"tonearm/internal/services"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/tagging"
	"tonearm/internal/trackcache"
)

// Result reports which stages produced new artifacts for one track.
type Result struct {
	Track         string
	BackupCreated bool
	Normalized    bool
	Retagged      bool
	Promoted      bool
}

// Orchestrator sequences the per-track stage machine: backup, waveform,
// two-pass normalization, encode, metadata resolution, tagging, and atomic
// promotion over the source path. Tracks are processed one at a time, each
// to completion, and the first failure halts the run.
type Orchestrator struct {
	cfg        *config.Config
	transcoder ffmpeg.Transcoder
	engine     *normalize.Engine
	writer     *tagging.Writer
	resolver   *metadata.Resolver
	logger     *slog.Logger
}

// New builds an orchestrator over the given transcoder.
func New(cfg *config.Config, transcoder ffmpeg.Transcoder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:        cfg,
		transcoder: transcoder,
		engine:     normalize.NewEngine(transcoder, cfg, logger),
		writer:     tagging.NewWriter(transcoder, logger),
		resolver:   metadata.NewResolver(cfg.Paths.LibraryDir, cfg.Metadata.DocumentName),
		logger:     logger.With("component", "pipeline"),
	}
}

// Process runs every track in input order. The observer, when set, sees each
// track's outcome before the run decides whether to continue; any track
// failure aborts the remaining tracks.
func (o *Orchestrator) Process(ctx context.Context, paths []string, observe func(Result, error)) error {
	for _, path := range paths {
		result, err := o.ProcessTrack(ctx, path)
		if observe != nil {
			observe(result, err)
		}
		if err != nil {
			return fmt.Errorf("track %s: %w", path, err)
		}
	}
	return nil
}

// ProcessTrack runs the full stage sequence for a single track.
func (o *Orchestrator) ProcessTrack(ctx context.Context, path string) (Result, error) {
	result := Result{Track: path}

	if !strings.EqualFold(filepath.Ext(path), tagging.AudioExtension) {
		return result, services.Wrap(services.ErrNotAnAudioFile, "intake", "check extension", path, nil)
	}
	track, err := filepath.Abs(path)
	if err != nil {
		return result, services.Wrap(services.ErrFileSystem, "intake", "resolve path", path, err)
	}
	result.Track = track

	if _, present, err := trackcache.Stat(track); err != nil {
		return result, err
	} else if !present {
		return result, services.Wrap(services.ErrFileSystem, "intake", "stat track", track, os.ErrNotExist)
	}

	cache := trackcache.ForTrack(track, o.cfg.Cache.DirName)
	if err := cache.EnsureDir(); err != nil {
		return result, err
	}

	// Stage 1: write-once backup of the original bytes.
	if _, hasBackup, err := trackcache.Stat(cache.Backup()); err != nil {
		return result, err
	} else if !hasBackup {
		if err := fileutil.CopyFile(track, cache.Backup()); err != nil {
			return result, services.Wrap(services.ErrFileSystem, "backup", "snapshot original", track, err)
		}
		result.BackupCreated = true
		o.logger.Debug("backup created", slog.String("track", track))
	}

	// The audio chain's freshness gate: the retained tagged artifact against
	// the track itself. Promotion advances the tagged artifact's mtime, so an
	// untouched track reads as fresh on the next run while edited bytes
	// invalidate the whole chain.
	audioStale, err := trackcache.IsStalePath(cache.TaggedTrack(), track)
	if err != nil {
		return result, err
	}

	// Stage 2: lossless waveform.
	ranWaveform := false
	if _, hasWaveform, err := trackcache.Stat(cache.Waveform()); err != nil {
		return result, err
	} else if audioStale || !hasWaveform {
		if err := o.engine.ExtractWaveform(ctx, track, cache.Waveform()); err != nil {
			return result, err
		}
		ranWaveform = true
	}

	// Stage 3: two-pass loudness normalization.
	ranNormalize := false
	if stale, err := trackcache.IsStalePath(cache.NormalizedWaveform(), cache.Waveform()); err != nil {
		return result, err
	} else if stale {
		if _, err := o.engine.Normalize(ctx, cache.Waveform(), cache.NormalizedWaveform()); err != nil {
			return result, err
		}
		ranNormalize = true
	}

	// Stage 4: encode to the target format.
	ranEncode := false
	if ranNormalize {
		ranEncode = true
	} else if stale, err := trackcache.IsStalePath(cache.NormalizedTrack(), cache.NormalizedWaveform()); err != nil {
		return result, err
	} else if stale {
		ranEncode = true
	}
	if ranEncode {
		if err := o.engine.Encode(ctx, cache.NormalizedWaveform(), cache.NormalizedTrack()); err != nil {
			return result, err
		}
	}

	audioRan := ranWaveform || ranNormalize || ranEncode
	result.Normalized = audioRan

	// Cover-art freshness is tied to audio staleness only; metadata-only
	// invalidation reuses the cached image. The backup keeps the original
	// picture stream available across promotions.
	if audioRan {
		found, err := o.transcoder.ExtractCoverArt(ctx, cache.Backup(), cache.CoverArt())
		if err != nil {
			return result, err
		}
		if !found {
			o.logger.Debug("no cover art", slog.String("track", track))
		}
	}

	// Stage 5: metadata resolution, always.
	resolved, err := o.resolver.Resolve(track)
	if err != nil {
		return result, err
	}

	// Stage 6: tagging when the audio changed or the resolved documents are
	// newer than the tagged artifact.
	tagStale := audioRan
	if !tagStale {
		stale, err := trackcache.IsStaleTime(cache.TaggedTrack(), resolved.Watermark)
		if err != nil {
			return result, err
		}
		tagStale = stale
	}
	if tagStale {
		if err := o.writer.Write(ctx, cache.NormalizedTrack(), track, resolved, cache.TaggedTrack(), cache.CoverArt()); err != nil {
			return result, err
		}
		result.Retagged = true
	}

	// Stage 7: atomic promotion, then advance the retained artifact so the
	// next run sees the chain as fresh.
	if result.BackupCreated || audioRan || result.Retagged {
		staging := cache.PromotionStaging()
		if err := fileutil.CopyFileVerified(cache.TaggedTrack(), staging); err != nil {
			return result, services.Wrap(services.ErrFileSystem, "promote", "stage final artifact", track, err)
		}
		if err := os.Rename(staging, track); err != nil {
			_ = os.Remove(staging)
			return result, services.Wrap(services.ErrFileSystem, "promote", "rename over track", track, err)
		}
		if err := fileutil.Touch(cache.TaggedTrack()); err != nil {
			return result, services.Wrap(services.ErrFileSystem, "promote", "advance artifact time", cache.TaggedTrack(), err)
		}
		result.Promoted = true
	}

	o.logger.Info("track processed",
		slog.String("track", track),
		slog.Bool("normalized", result.Normalized),
		slog.Bool("retagged", result.Retagged),
		slog.Bool("promoted", result.Promoted),
	)
	return result, nil
}
