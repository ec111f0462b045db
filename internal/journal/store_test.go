package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID, err := store.BeginRun(ctx)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}

	records := []TrackRecord{
		{RunID: runID, Track: "/music/a.mp3", Normalized: true, Retagged: true, Promoted: true},
		{RunID: runID, Track: "/music/b.mp3", ErrorMessage: "ffmpeg exited with status 1"},
	}
	for _, record := range records {
		if err := store.RecordTrack(ctx, record); err != nil {
			t.Fatalf("record track: %v", err)
		}
	}
	if err := store.FinishRun(ctx, runID, StatusFailed, "track /music/b.mp3 failed"); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.ID != runID || run.Status != StatusFailed || run.Tracks != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.FinishedAt.IsZero() || run.FinishedAt.Before(run.StartedAt) {
		t.Fatalf("finish time out of order: %+v", run)
	}
	if run.ErrorMessage == "" {
		t.Fatalf("error message lost")
	}

	tracks, err := store.RunTracks(ctx, runID)
	if err != nil {
		t.Fatalf("run tracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(tracks))
	}
	if !tracks[0].Normalized || !tracks[0].Promoted || tracks[0].ErrorMessage != "" {
		t.Fatalf("first record %+v", tracks[0])
	}
	if tracks[1].ErrorMessage != "ffmpeg exited with status 1" {
		t.Fatalf("second record %+v", tracks[1])
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := store.BeginRun(ctx)
		if err != nil {
			t.Fatalf("begin run: %v", err)
		}
		if err := store.FinishRun(ctx, id, StatusCompleted, ""); err != nil {
			t.Fatalf("finish run: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].StartedAt.Before(runs[1].StartedAt) {
		t.Fatalf("runs not newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}

func TestFinishRunUnknownID(t *testing.T) {
	store := openTestStore(t)
	if err := store.FinishRun(context.Background(), "nope", StatusCompleted, ""); err == nil {
		t.Fatalf("expected error for unknown run")
	}
}

func TestOpenRefusesSecondWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = first.Close() }()

	if _, err := Open(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("second open err = %v, want ErrLocked", err)
	}
}

func TestStoreReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	runID, err := store.BeginRun(ctx)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := store.FinishRun(ctx, runID, StatusCompleted, ""); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Fatalf("history lost across reopen: %+v", runs)
	}
}
