package normalize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"log/slog"

	"tonearm/internal/config"
	"tonearm/internal/services"
	"tonearm/internal/services/ffmpeg"
)

// fakeTranscoder records invocations and writes placeholder outputs, so the
// engine's temp-and-rename handling can be observed on a real filesystem.
type fakeTranscoder struct {
	stats       ffmpeg.LoudnessStats
	measured    []ffmpeg.Target
	corrected   []ffmpeg.LoudnessStats
	encodeDests []string
	failCorrect bool
}

func (f *fakeTranscoder) ExtractWaveform(_ context.Context, _, dest string) error {
	return os.WriteFile(dest, []byte("wav"), 0o644)
}

func (f *fakeTranscoder) MeasureLoudness(_ context.Context, _ string, target ffmpeg.Target) (ffmpeg.LoudnessStats, error) {
	f.measured = append(f.measured, target)
	return f.stats, nil
}

func (f *fakeTranscoder) CorrectLoudness(_ context.Context, _, dest string, _ ffmpeg.Target, measured ffmpeg.LoudnessStats) error {
	if f.failCorrect {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "correct loudness", "boom", errors.New("exit status 1"))
	}
	f.corrected = append(f.corrected, measured)
	return os.WriteFile(dest, []byte("norm wav"), 0o644)
}

func (f *fakeTranscoder) EncodeTrack(_ context.Context, _, dest, _ string) error {
	f.encodeDests = append(f.encodeDests, dest)
	return os.WriteFile(dest, []byte("mp3"), 0o644)
}

func (f *fakeTranscoder) ExtractCoverArt(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (f *fakeTranscoder) WriteTags(_ context.Context, _, _ string, _ []ffmpeg.Tag) error {
	return nil
}

func (f *fakeTranscoder) AttachCoverArt(_ context.Context, _, _, _ string) error {
	return nil
}

func newTestEngine(t *testing.T, fake *fakeTranscoder) *Engine {
	t.Helper()
	cfg := config.Default()
	return NewEngine(fake, &cfg, slog.Default())
}

func TestNormalizeFeedsMeasurementsToCorrection(t *testing.T) {
	fake := &fakeTranscoder{stats: ffmpeg.LoudnessStats{
		InputIntegrated:    -23.4,
		InputTruePeak:      -4.2,
		InputLoudnessRange: 7.1,
		InputThreshold:     -33.0,
		TargetOffset:       0.3,
	}}
	engine := newTestEngine(t, fake)

	dir := t.TempDir()
	wave := filepath.Join(dir, "song.wav")
	norm := filepath.Join(dir, "song.norm.wav")
	if err := os.WriteFile(wave, []byte("wav"), 0o644); err != nil {
		t.Fatalf("seed waveform: %v", err)
	}

	stats, err := engine.Normalize(context.Background(), wave, norm)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if stats != fake.stats {
		t.Fatalf("returned stats %+v", stats)
	}
	if len(fake.corrected) != 1 || fake.corrected[0] != fake.stats {
		t.Fatalf("pass 2 must pin pass-1 values, got %+v", fake.corrected)
	}
	if len(fake.measured) != 1 || fake.measured[0].IntegratedLoudness != -16 {
		t.Fatalf("target not threaded through: %+v", fake.measured)
	}
	if _, err := os.Stat(norm); err != nil {
		t.Fatalf("normalized waveform missing: %v", err)
	}
	if _, err := os.Stat(norm + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestNormalizeFailureLeavesNoArtifact(t *testing.T) {
	fake := &fakeTranscoder{failCorrect: true}
	engine := newTestEngine(t, fake)

	dir := t.TempDir()
	wave := filepath.Join(dir, "song.wav")
	norm := filepath.Join(dir, "song.norm.wav")
	if err := os.WriteFile(wave, []byte("wav"), 0o644); err != nil {
		t.Fatalf("seed waveform: %v", err)
	}

	_, err := engine.Normalize(context.Background(), wave, norm)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, statErr := os.Stat(norm); !os.IsNotExist(statErr) {
		t.Fatalf("failed pass must not produce the artifact")
	}
}

func TestExtractWaveformAndEncode(t *testing.T) {
	fake := &fakeTranscoder{}
	engine := newTestEngine(t, fake)

	dir := t.TempDir()
	track := filepath.Join(dir, "song.mp3")
	wave := filepath.Join(dir, "song.wav")
	out := filepath.Join(dir, "song.norm.mp3")
	if err := os.WriteFile(track, []byte("src"), 0o644); err != nil {
		t.Fatalf("seed track: %v", err)
	}

	if err := engine.ExtractWaveform(context.Background(), track, wave); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := os.Stat(wave); err != nil {
		t.Fatalf("waveform missing: %v", err)
	}

	if err := engine.Encode(context.Background(), wave, out); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("encoded track missing: %v", err)
	}
	if len(fake.encodeDests) != 1 || fake.encodeDests[0] != out+".tmp" {
		t.Fatalf("encode must write through temp path, got %v", fake.encodeDests)
	}
}
