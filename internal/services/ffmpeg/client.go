package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"tonearm/internal/services"
)

// Tag is one key/value metadata pair stamped onto an output container.
type Tag struct {
	Key   string
	Value string
}

// Target holds the loudness-normalization targets for both passes.
type Target struct {
	IntegratedLoudness float64
	LoudnessRange      float64
	TruePeak           float64
}

// Transcoder abstracts the external tool with one operation per transform
// kind so the pipeline's decision logic can run against a fake.
type Transcoder interface {
	// ExtractWaveform decodes src into a lossless WAV at dest.
	ExtractWaveform(ctx context.Context, src, dest string) error
	// MeasureLoudness runs the non-destructive loudnorm measurement pass and
	// returns the structured statistics from the tool's diagnostic stream.
	MeasureLoudness(ctx context.Context, wavePath string, target Target) (LoudnessStats, error)
	// CorrectLoudness reapplies loudnorm in linear mode with measured values
	// fixed, writing the corrected waveform to dest.
	CorrectLoudness(ctx context.Context, wavePath, dest string, target Target, measured LoudnessStats) error
	// EncodeTrack compresses a waveform to MP3 at the fixed bitrate.
	EncodeTrack(ctx context.Context, wavePath, dest, bitrate string) error
	// ExtractCoverArt copies an embedded picture stream to dest. A false
	// result means the source carries no art; it is not a failure.
	ExtractCoverArt(ctx context.Context, src, dest string) (bool, error)
	// WriteTags rewrites src to dest with a fresh metadata set.
	WriteTags(ctx context.Context, src, dest string, tags []Tag) error
	// AttachCoverArt multiplexes art into src as an attached picture stream.
	AttachCoverArt(ctx context.Context, src, art, dest string) error
}

// Executor abstracts command execution for testability. Every diagnostic
// line (stdout and stderr) is forwarded to onLine in arrival order.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives the ffmpeg binary. It keeps no per-track state; all inputs
// and outputs are explicit paths.
type Client struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg client for the given binary.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) ExtractWaveform(ctx context.Context, src, dest string) error {
	args := []string{"-y", "-hide_banner", "-nostdin", "-i", src, "-vn", dest}
	_, err := c.run(ctx, "extract waveform", args)
	return err
}

func (c *Client) MeasureLoudness(ctx context.Context, wavePath string, target Target) (LoudnessStats, error) {
	filter := fmt.Sprintf("loudnorm=I=%s:LRA=%s:TP=%s:print_format=json",
		formatLevel(target.IntegratedLoudness),
		formatLevel(target.LoudnessRange),
		formatLevel(target.TruePeak))
	args := []string{"-hide_banner", "-nostdin", "-i", wavePath, "-af", filter, "-f", "null", "-"}
	lines, err := c.run(ctx, "measure loudness", args)
	if err != nil {
		return LoudnessStats{}, err
	}
	stats, err := parseLoudnormStats(lines)
	if err != nil {
		return LoudnessStats{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "measure loudness", diagnosticTail(lines), err)
	}
	return stats, nil
}

func (c *Client) CorrectLoudness(ctx context.Context, wavePath, dest string, target Target, measured LoudnessStats) error {
	filter := fmt.Sprintf(
		"loudnorm=I=%s:LRA=%s:TP=%s:measured_I=%s:measured_LRA=%s:measured_TP=%s:measured_thresh=%s:offset=%s:linear=true",
		formatLevel(target.IntegratedLoudness),
		formatLevel(target.LoudnessRange),
		formatLevel(target.TruePeak),
		formatLevel(measured.InputIntegrated),
		formatLevel(measured.InputLoudnessRange),
		formatLevel(measured.InputTruePeak),
		formatLevel(measured.InputThreshold),
		formatLevel(measured.TargetOffset))
	args := []string{"-y", "-hide_banner", "-nostdin", "-i", wavePath, "-af", filter, dest}
	_, err := c.run(ctx, "correct loudness", args)
	return err
}

func (c *Client) EncodeTrack(ctx context.Context, wavePath, dest, bitrate string) error {
	args := []string{"-y", "-hide_banner", "-nostdin", "-i", wavePath, "-codec:a", "libmp3lame", "-b:a", bitrate, dest}
	_, err := c.run(ctx, "encode track", args)
	return err
}

func (c *Client) ExtractCoverArt(ctx context.Context, src, dest string) (bool, error) {
	args := []string{"-y", "-hide_banner", "-nostdin", "-i", src, "-an", "-codec:v", "copy", dest}
	if _, err := c.run(ctx, "extract cover art", args); err != nil {
		_ = os.Remove(dest)
		// Only a nonzero exit means the source has no picture stream. A tool
		// that never ran, or a canceled context, is a real failure.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) WriteTags(ctx context.Context, src, dest string, tags []Tag) error {
	args := []string{"-y", "-hide_banner", "-nostdin", "-i", src, "-codec", "copy", "-map_metadata", "-1", "-id3v2_version", "3"}
	for _, tag := range tags {
		args = append(args, "-metadata", tag.Key+"="+tag.Value)
	}
	args = append(args, dest)
	_, err := c.run(ctx, "write tags", args)
	return err
}

func (c *Client) AttachCoverArt(ctx context.Context, src, art, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-nostdin",
		"-i", src, "-i", art,
		"-map", "0:a", "-map", "1:v",
		"-codec", "copy", "-id3v2_version", "3",
		"-metadata:s:v", "title=Album cover",
		"-metadata:s:v", "comment=Cover (front)",
		dest,
	}
	_, err := c.run(ctx, "attach cover art", args)
	return err
}

// run executes one invocation, returning every captured diagnostic line. A
// nonzero exit is fatal and carries the tail of those lines.
func (c *Client) run(ctx context.Context, operation string, args []string) ([]string, error) {
	var (
		mu    sync.Mutex
		lines []string
	)
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		return lines, services.Wrap(services.ErrExternalTool, "ffmpeg", operation, diagnosticTail(lines), err)
	}
	return lines, nil
}

const diagnosticTailLines = 20

func diagnosticTail(lines []string) string {
	if len(lines) == 0 {
		return "no diagnostic output"
	}
	start := 0
	if len(lines) > diagnosticTailLines {
		start = len(lines) - diagnosticTailLines
	}
	return strings.Join(lines[start:], "\n")
}

func formatLevel(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return err
	}
	return scanErr
}
