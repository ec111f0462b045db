package main

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tonearm/internal/deps"
	"tonearm/internal/journal"
	"tonearm/internal/pipeline"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/tagging"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process [track...]",
		Short: "Normalize, tag, and promote tracks",
		Long: "Process runs each track through backup, two-pass loudness normalization,\n" +
			"tagging, and promotion. Without arguments every audio file under the\n" +
			"library root is processed; fresh tracks are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			if status := deps.CheckFFmpeg(cfg.FFmpeg.Binary); !status.Available {
				return fmt.Errorf("ffmpeg unavailable: %s", status.Detail)
			}

			tracks := args
			if len(tracks) == 0 {
				tracks, err = collectLibraryTracks(cfg.Paths.LibraryDir, cfg.Cache.DirName)
				if err != nil {
					return err
				}
				if len(tracks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tracks found under", cfg.Paths.LibraryDir)
					return nil
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orchestrator := pipeline.New(cfg, ffmpeg.New(cfg.FFmpeg.Binary), logger)

			var store *journal.Store
			var runID string
			if cfg.Journal.Enabled {
				store, err = journal.Open(cfg.Journal.Path)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer func() { _ = store.Close() }()
				runID, err = store.BeginRun(runCtx)
				if err != nil {
					return fmt.Errorf("begin journal run: %w", err)
				}
			}

			observe := func(result pipeline.Result, trackErr error) {
				if store == nil {
					return
				}
				record := journal.TrackRecord{
					RunID:      runID,
					Track:      result.Track,
					Normalized: result.Normalized,
					Retagged:   result.Retagged,
					Promoted:   result.Promoted,
				}
				if trackErr != nil {
					record.ErrorMessage = trackErr.Error()
				}
				if err := store.RecordTrack(runCtx, record); err != nil {
					logger.Warn("journal write failed", "error", err)
				}
			}

			runErr := orchestrator.Process(runCtx, tracks, observe)

			if store != nil {
				status := journal.StatusCompleted
				message := ""
				if runErr != nil {
					status = journal.StatusFailed
					message = runErr.Error()
				}
				if err := store.FinishRun(runCtx, runID, status, message); err != nil {
					logger.Warn("journal finish failed", "error", err)
				}
			}

			if runErr != nil {
				return runErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d track(s)\n", len(tracks))
			return nil
		},
	}
}

// collectLibraryTracks gathers every audio file under root in path order,
// skipping cache directories.
func collectLibraryTracks(root, cacheDirName string) ([]string, error) {
	var tracks []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk library: %w", err)
		}
		if entry.IsDir() {
			if entry.Name() == cacheDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), tagging.AudioExtension) {
			tracks = append(tracks, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(tracks)
	return tracks, nil
}
