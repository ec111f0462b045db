package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAnAudioFile marks inputs whose extension does not match the
	// managed audio format.
	ErrNotAnAudioFile = errors.New("not an audio file")
	// ErrMetadataParse marks a per-directory metadata document that could not
	// be parsed; the wrapped detail names the offending file.
	ErrMetadataParse = errors.New("metadata parse error")
	// ErrExternalTool marks a nonzero exit from the transcoding tool; the
	// wrapped detail carries the captured diagnostic lines.
	ErrExternalTool = errors.New("external tool error")
	// ErrFileSystem marks any I/O fault other than "does not exist".
	ErrFileSystem = errors.New("filesystem error")
	// ErrConfiguration marks unusable configuration or missing tool binaries.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrFileSystem
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
