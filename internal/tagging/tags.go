package tagging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"tonearm/internal/metadata"
	"tonearm/internal/services"
	"tonearm/internal/services/ffmpeg"
)

// AudioExtension is the managed audio format's file suffix.
const AudioExtension = ".mp3"

// BuildTags computes the full tag set for a track. The title always comes
// from the filename stem, and the track number from the file's 1-based
// position among filename-sorted audio siblings unless numbering is disabled.
func BuildTags(trackPath string, resolved metadata.Resolved) ([]ffmpeg.Tag, error) {
	base := filepath.Base(trackPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	tags := []ffmpeg.Tag{{Key: "title", Value: stem}}
	if resolved.Artist != "" {
		tags = append(tags, ffmpeg.Tag{Key: "artist", Value: resolved.Artist})
	}
	if resolved.Album != "" {
		tags = append(tags, ffmpeg.Tag{Key: "album", Value: resolved.Album})
	}

	if !resolved.NoTrackNumbers {
		position, total, err := trackPosition(trackPath)
		if err != nil {
			return nil, err
		}
		tags = append(tags, ffmpeg.Tag{Key: "track", Value: fmt.Sprintf("%d/%d", position, total)})
	}

	disc := resolved.Disc
	if disc <= 0 {
		disc = 1
	}
	tags = append(tags, ffmpeg.Tag{Key: "disc", Value: strconv.Itoa(disc)})

	extraKeys := make([]string, 0, len(resolved.Extra))
	for key := range resolved.Extra {
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		tags = append(tags, ffmpeg.Tag{Key: key, Value: resolved.Extra[key]})
	}

	return tags, nil
}

// trackPosition locates the track among its filename-sorted audio siblings.
func trackPosition(trackPath string) (position, total int, err error) {
	dir := filepath.Dir(trackPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrFileSystem, "tag", "list siblings", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), AudioExtension) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	base := filepath.Base(trackPath)
	for i, name := range names {
		if name == base {
			return i + 1, len(names), nil
		}
	}
	return 0, 0, services.Wrap(services.ErrFileSystem, "tag", "locate track",
		fmt.Sprintf("%s not found among %d siblings", base, len(names)), nil)
}
