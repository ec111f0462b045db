package ffmpeg

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// loudnormMarker precedes the JSON statistics block on ffmpeg's diagnostic
// stream. Everything before it is progress noise and is discarded.
const loudnormMarker = "[Parsed_loudnorm"

// LoudnessStats captures the measured values from the loudnorm analysis pass.
type LoudnessStats struct {
	InputIntegrated    float64
	InputTruePeak      float64
	InputLoudnessRange float64
	InputThreshold     float64
	TargetOffset       float64
}

// loudnorm emits every number as a JSON string.
type rawLoudnormStats struct {
	InputI      string `json:"input_i"`
	InputTP     string `json:"input_tp"`
	InputLRA    string `json:"input_lra"`
	InputThresh string `json:"input_thresh"`
	Offset      string `json:"target_offset"`
}

// parseLoudnormStats scans diagnostic lines for the marker and decodes the
// JSON object that follows it.
func parseLoudnormStats(lines []string) (LoudnessStats, error) {
	markerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, loudnormMarker) {
			markerIdx = i
		}
	}
	if markerIdx < 0 {
		return LoudnessStats{}, errors.New("loudnorm statistics marker not found")
	}

	var block strings.Builder
	found := false
	for _, line := range lines[markerIdx+1:] {
		trimmed := strings.TrimSpace(line)
		block.WriteString(trimmed)
		block.WriteByte('\n')
		if trimmed == "}" {
			found = true
			break
		}
	}
	if !found {
		return LoudnessStats{}, errors.New("loudnorm statistics block truncated")
	}

	var raw rawLoudnormStats
	if err := json.Unmarshal([]byte(block.String()), &raw); err != nil {
		return LoudnessStats{}, fmt.Errorf("decode loudnorm block: %w", err)
	}

	stats := LoudnessStats{}
	fields := []struct {
		name  string
		value string
		dst   *float64
	}{
		{"input_i", raw.InputI, &stats.InputIntegrated},
		{"input_tp", raw.InputTP, &stats.InputTruePeak},
		{"input_lra", raw.InputLRA, &stats.InputLoudnessRange},
		{"input_thresh", raw.InputThresh, &stats.InputThreshold},
		{"target_offset", raw.Offset, &stats.TargetOffset},
	}
	for _, field := range fields {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(field.value), 64)
		if err != nil {
			return LoudnessStats{}, fmt.Errorf("loudnorm field %s: %w", field.name, err)
		}
		*field.dst = parsed
	}
	return stats, nil
}
