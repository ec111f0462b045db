package syncer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/text/unicode/norm"

	"tonearm/internal/config"
	"tonearm/internal/fileutil"
	"tonearm/internal/services"
	"tonearm/internal/trackcache"
)

// Summary reports what one sync pass did.
type Summary struct {
	Copied  int
	Deleted int
	Skipped int
	Bytes   int64
}

// Syncer mirrors the library onto a mounted device directory. Cache
// directories and metadata documents never leave the library; destination
// names are NFC-normalized so the mirror is stable across filesystems with
// different normalization behavior.
type Syncer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New builds a syncer.
func New(cfg *config.Config, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{cfg: cfg, logger: logger.With("component", "sync")}
}

// Sync performs one mirror pass from the library to the device directory.
func (s *Syncer) Sync(ctx context.Context) (Summary, error) {
	var summary Summary

	library := s.cfg.Paths.LibraryDir
	device := s.cfg.Paths.DeviceDir
	if device == "" {
		return summary, services.Wrap(services.ErrConfiguration, "sync", "resolve device", "device_dir is not configured", nil)
	}
	if info, err := os.Stat(device); err != nil {
		return summary, services.Wrap(services.ErrFileSystem, "sync", "stat device", device, err)
	} else if !info.IsDir() {
		return summary, services.Wrap(services.ErrConfiguration, "sync", "stat device", device+" is not a directory", nil)
	}

	if err := s.checkFreeSpace(device); err != nil {
		return summary, err
	}

	expected := make(map[string]struct{})

	err := filepath.WalkDir(library, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return services.Wrap(services.ErrFileSystem, "sync", "walk library", path, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == library {
			return nil
		}

		rel, relErr := filepath.Rel(library, path)
		if relErr != nil {
			return services.Wrap(services.ErrFileSystem, "sync", "relativize", path, relErr)
		}

		if entry.IsDir() {
			if entry.Name() == s.cfg.Cache.DirName {
				return filepath.SkipDir
			}
			if s.excluded(rel) {
				return filepath.SkipDir
			}
			destRel := norm.NFC.String(rel)
			expected[destRel] = struct{}{}
			dest := filepath.Join(device, destRel)
			if mkErr := os.MkdirAll(dest, 0o755); mkErr != nil {
				return services.Wrap(services.ErrFileSystem, "sync", "create directory", dest, mkErr)
			}
			return nil
		}

		if entry.Name() == s.cfg.Metadata.DocumentName {
			return nil
		}
		if s.excluded(rel) {
			return nil
		}

		destRel := norm.NFC.String(rel)
		expected[destRel] = struct{}{}
		copied, size, copyErr := s.copyIfStale(path, filepath.Join(device, destRel))
		if copyErr != nil {
			return copyErr
		}
		if copied {
			summary.Copied++
			summary.Bytes += size
		} else {
			summary.Skipped++
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	if s.cfg.Sync.DeleteExtraneous {
		deleted, delErr := s.deleteExtraneous(ctx, device, expected)
		summary.Deleted = deleted
		if delErr != nil {
			return summary, delErr
		}
	}

	s.logger.Info("sync complete",
		slog.Int("copied", summary.Copied),
		slog.Int("skipped", summary.Skipped),
		slog.Int("deleted", summary.Deleted),
		slog.Int64("bytes", summary.Bytes),
	)
	return summary, nil
}

// excluded matches the library-relative path against the configured glob
// patterns, both as a whole and per path component.
func (s *Syncer) excluded(rel string) bool {
	for _, pattern := range s.cfg.Sync.ExcludePatterns {
		if matched, err := filepath.Match(pattern, rel); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, filepath.Base(rel)); err == nil && matched {
			return true
		}
	}
	return false
}

// copyIfStale copies src over dest when dest is missing or differs in size or
// modification time. The source's mtime is replicated onto the copy so an
// unchanged file is skipped on the next pass.
func (s *Syncer) copyIfStale(src, dest string) (bool, int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, 0, services.Wrap(services.ErrFileSystem, "sync", "stat source", src, err)
	}

	destInfo, present, err := trackcache.Stat(dest)
	if err != nil {
		return false, 0, err
	}
	if present && destInfo.Size() == srcInfo.Size() && !destInfo.ModTime().Before(srcInfo.ModTime()) {
		return false, 0, nil
	}

	temp := trackcache.TempFor(dest)
	if err := fileutil.CopyFile(src, temp); err != nil {
		_ = os.Remove(temp)
		return false, 0, services.Wrap(services.ErrFileSystem, "sync", "copy track", src, err)
	}
	if err := fileutil.ReplaceFile(temp, dest); err != nil {
		return false, 0, err
	}
	if err := os.Chtimes(dest, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return false, 0, services.Wrap(services.ErrFileSystem, "sync", "replicate mtime", dest, err)
	}
	s.logger.Debug("copied", slog.String("source", src), slog.String("dest", dest))
	return true, srcInfo.Size(), nil
}

// deleteExtraneous removes device entries with no library counterpart.
// Deeper paths are removed first so emptied directories can follow.
func (s *Syncer) deleteExtraneous(ctx context.Context, device string, expected map[string]struct{}) (int, error) {
	var extraneous []string

	err := filepath.WalkDir(device, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return services.Wrap(services.ErrFileSystem, "sync", "walk device", path, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == device {
			return nil
		}
		rel, relErr := filepath.Rel(device, path)
		if relErr != nil {
			return services.Wrap(services.ErrFileSystem, "sync", "relativize", path, relErr)
		}
		if _, ok := expected[rel]; !ok {
			extraneous = append(extraneous, path)
			if entry.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	sort.Slice(extraneous, func(i, j int) bool {
		return strings.Count(extraneous[i], string(filepath.Separator)) > strings.Count(extraneous[j], string(filepath.Separator))
	})

	deleted := 0
	for _, path := range extraneous {
		if err := os.RemoveAll(path); err != nil {
			return deleted, services.Wrap(services.ErrFileSystem, "sync", "delete extraneous", path, err)
		}
		s.logger.Debug("deleted", slog.String("path", path))
		deleted++
	}
	return deleted, nil
}

// checkFreeSpace refuses to start when the device's free ratio is already
// below the configured floor.
func (s *Syncer) checkFreeSpace(device string) error {
	if s.cfg.Sync.MinFreeRatio <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(device, &stat); err != nil {
		return services.Wrap(services.ErrFileSystem, "sync", "statfs device", device, err)
	}
	if stat.Blocks == 0 {
		return nil
	}
	free := float64(stat.Bavail) / float64(stat.Blocks)
	if free < s.cfg.Sync.MinFreeRatio {
		return services.Wrap(services.ErrFileSystem, "sync", "check free space", device, nil)
	}
	return nil
}
