package normalize

import (
	"context"
	"log/slog"
	"os"

	"tonearm/internal/config"
	"tonearm/internal/fileutil"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/trackcache"
)

// Engine performs the two-pass loudness protocol: a measurement pass over the
// lossless waveform, then a linear correction pass pinned to the measured
// values, and finally a re-encode to the compressed target format.
type Engine struct {
	transcoder ffmpeg.Transcoder
	target     ffmpeg.Target
	bitrate    string
	logger     *slog.Logger
}

// NewEngine builds an engine from the configured loudness targets.
func NewEngine(transcoder ffmpeg.Transcoder, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		transcoder: transcoder,
		target: ffmpeg.Target{
			IntegratedLoudness: cfg.Normalization.IntegratedLoudness,
			LoudnessRange:      cfg.Normalization.LoudnessRange,
			TruePeak:           cfg.Normalization.TruePeak,
		},
		bitrate: cfg.Normalization.Bitrate,
		logger:  logger.With("component", "normalize"),
	}
}

// ExtractWaveform decodes the track into its lossless intermediate. The
// output lands at waveformPath only after a complete write.
func (e *Engine) ExtractWaveform(ctx context.Context, trackPath, waveformPath string) error {
	temp := trackcache.TempFor(waveformPath)
	if err := e.transcoder.ExtractWaveform(ctx, trackPath, temp); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return fileutil.ReplaceFile(temp, waveformPath)
}

// Normalize runs both loudness passes, producing the corrected waveform at
// normalizedPath and returning the pass-1 statistics.
func (e *Engine) Normalize(ctx context.Context, waveformPath, normalizedPath string) (ffmpeg.LoudnessStats, error) {
	stats, err := e.transcoder.MeasureLoudness(ctx, waveformPath, e.target)
	if err != nil {
		return ffmpeg.LoudnessStats{}, err
	}
	e.logger.Info("loudness measured",
		slog.String("waveform", waveformPath),
		slog.Float64("input_i", stats.InputIntegrated),
		slog.Float64("input_tp", stats.InputTruePeak),
		slog.Float64("input_lra", stats.InputLoudnessRange),
		slog.Float64("input_thresh", stats.InputThreshold),
	)

	temp := trackcache.TempFor(normalizedPath)
	if err := e.transcoder.CorrectLoudness(ctx, waveformPath, temp, e.target, stats); err != nil {
		_ = os.Remove(temp)
		return ffmpeg.LoudnessStats{}, err
	}
	if err := fileutil.ReplaceFile(temp, normalizedPath); err != nil {
		return ffmpeg.LoudnessStats{}, err
	}
	return stats, nil
}

// Encode compresses the corrected waveform to the final track format at the
// fixed configured bitrate.
func (e *Engine) Encode(ctx context.Context, normalizedPath, trackOutPath string) error {
	temp := trackcache.TempFor(trackOutPath)
	if err := e.transcoder.EncodeTrack(ctx, normalizedPath, temp, e.bitrate); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return fileutil.ReplaceFile(temp, trackOutPath)
}
