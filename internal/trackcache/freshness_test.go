package trackcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAt(t *testing.T, path string, at time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestIsStaleTimeMissingCandidate(t *testing.T) {
	stale, err := IsStaleTime(filepath.Join(t.TempDir(), "missing"), time.Now())
	if err != nil {
		t.Fatalf("stale: %v", err)
	}
	if !stale {
		t.Fatalf("missing candidate must be stale")
	}
}

func TestIsStaleTimeComparison(t *testing.T) {
	dir := t.TempDir()
	candidate := filepath.Join(dir, "artifact")
	at := time.Now().Truncate(time.Second)
	writeAt(t, candidate, at)

	stale, err := IsStaleTime(candidate, at.Add(time.Second))
	if err != nil || !stale {
		t.Fatalf("older candidate must be stale (stale=%v err=%v)", stale, err)
	}

	stale, err = IsStaleTime(candidate, at)
	if err != nil || stale {
		t.Fatalf("equal mtime must be fresh (stale=%v err=%v)", stale, err)
	}

	stale, err = IsStaleTime(candidate, at.Add(-time.Second))
	if err != nil || stale {
		t.Fatalf("newer candidate must be fresh (stale=%v err=%v)", stale, err)
	}
}

func TestIsStalePath(t *testing.T) {
	dir := t.TempDir()
	reference := filepath.Join(dir, "source")
	candidate := filepath.Join(dir, "derived")
	base := time.Now().Truncate(time.Second)
	writeAt(t, reference, base)
	writeAt(t, candidate, base.Add(time.Second))

	stale, err := IsStalePath(candidate, reference)
	if err != nil || stale {
		t.Fatalf("newer derived artifact must be fresh (stale=%v err=%v)", stale, err)
	}

	writeAt(t, reference, base.Add(2*time.Second))
	stale, err = IsStalePath(candidate, reference)
	if err != nil || !stale {
		t.Fatalf("touched source must invalidate (stale=%v err=%v)", stale, err)
	}
}

func TestIsStalePathMissingReference(t *testing.T) {
	dir := t.TempDir()
	candidate := filepath.Join(dir, "derived")
	writeAt(t, candidate, time.Now())

	if _, err := IsStalePath(candidate, filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("missing reference must be an error")
	}
}

func TestStatAbsence(t *testing.T) {
	_, present, err := Stat(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("absence must not be an error: %v", err)
	}
	if present {
		t.Fatalf("expected absent")
	}
}

func TestCacheLayout(t *testing.T) {
	c := ForTrack("/music/album/02 Song.mp3", ".tonearm")
	if c.Dir() != "/music/album/.tonearm" {
		t.Fatalf("dir: %s", c.Dir())
	}
	cases := map[string]string{
		c.Backup():             "/music/album/.tonearm/02 Song.orig.mp3",
		c.Waveform():           "/music/album/.tonearm/02 Song.wav",
		c.NormalizedWaveform(): "/music/album/.tonearm/02 Song.norm.wav",
		c.NormalizedTrack():    "/music/album/.tonearm/02 Song.norm.mp3",
		c.TaggedTrack():        "/music/album/.tonearm/02 Song.tagged.mp3",
		c.CoverArt():           "/music/album/.tonearm/02 Song.cover.jpg",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("artifact path %q, want %q", got, want)
		}
	}
	if TempFor(c.TaggedTrack()) != c.TaggedTrack()+".tmp" {
		t.Fatalf("temp path: %s", TempFor(c.TaggedTrack()))
	}
}
