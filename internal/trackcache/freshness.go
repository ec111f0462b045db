package trackcache

import (
	"errors"
	"os"
	"time"

	"tonearm/internal/services"
)

// Stat is a three-way existence check: file info when present, a false flag
// when absent, and an error only for genuine faults. Absence is never an
// error here.
func Stat(path string) (os.FileInfo, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, services.Wrap(services.ErrFileSystem, "cache", "stat", path, err)
	}
	return info, true, nil
}

// IsStaleTime reports whether the candidate is missing or strictly older
// than the reference timestamp.
func IsStaleTime(candidate string, reference time.Time) (bool, error) {
	info, present, err := Stat(candidate)
	if err != nil {
		return false, err
	}
	if !present {
		return true, nil
	}
	return info.ModTime().Before(reference), nil
}

// IsStalePath reports whether the candidate is missing or strictly older
// than the reference file. The reference must exist.
func IsStalePath(candidate, reference string) (bool, error) {
	refInfo, present, err := Stat(reference)
	if err != nil {
		return false, err
	}
	if !present {
		return false, services.Wrap(services.ErrFileSystem, "cache", "stat reference", reference, os.ErrNotExist)
	}
	return IsStaleTime(candidate, refInfo.ModTime())
}
