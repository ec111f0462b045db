package metadata

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tonearm/internal/services"
)

// Reserved document keys. Both tag values they would shadow are always
// computed, so they never pass through.
const (
	keyNoTrackNumbers = "no_track_numbers"
	keyTitle          = "title"
	keyTrack          = "track"
	keyArtist         = "artist"
	keyAlbum          = "album"
	keyDisc           = "disc"
)

// Fields is the merged tag set contributed by metadata documents: the
// recognized fields plus an open passthrough map for extension tags.
type Fields struct {
	Artist         string
	Album          string
	Disc           int
	NoTrackNumbers bool
	Extra          map[string]string
}

// Resolved couples merged fields with a freshness watermark: the latest
// modification time among all documents consulted.
type Resolved struct {
	Fields
	Watermark time.Time
}

// readDocument loads one directory's document as a flat key/value layer.
// A missing file is an empty layer, reported via the found flag; any other
// stat or read fault is a filesystem error.
func readDocument(path string) (map[string]any, time.Time, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, services.Wrap(services.ErrFileSystem, "metadata", "stat document", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, false, services.Wrap(services.ErrFileSystem, "metadata", "read document", path, err)
	}

	layer := map[string]any{}
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, time.Time{}, false, services.Wrap(services.ErrMetadataParse, "metadata", "parse document", path, err)
	}
	return layer, info.ModTime(), true, nil
}

// fieldsFromLayers converts a merged key/value map into typed fields.
func fieldsFromLayers(merged map[string]any) Fields {
	fields := Fields{Extra: map[string]string{}}
	for key, value := range merged {
		switch strings.ToLower(key) {
		case keyArtist:
			fields.Artist = stringify(value)
		case keyAlbum:
			fields.Album = stringify(value)
		case keyDisc:
			fields.Disc = intify(value)
		case keyNoTrackNumbers:
			fields.NoTrackNumbers = boolify(value)
		case keyTitle, keyTrack:
			// Always computed from the file itself; document values are dropped.
		default:
			fields.Extra[key] = stringify(value)
		}
	}
	return fields
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intify(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return 0
}

func boolify(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	}
	return false
}
