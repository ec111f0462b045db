// Package ffmpeg wraps the external transcoding tool behind a capability
// interface with one operation per transform kind: waveform extraction,
// two-pass loudness measurement and correction, MP3 encoding, cover-art
// extraction, tag rewriting, and picture-stream multiplexing.
//
// Every invocation is sequential and uninterruptible beyond the caller's
// context; a nonzero exit surfaces as services.ErrExternalTool carrying the
// tail of the captured diagnostic stream. The loudnorm measurement pass
// additionally parses the JSON statistics block that follows the
// "[Parsed_loudnorm" marker on that stream.
package ffmpeg
