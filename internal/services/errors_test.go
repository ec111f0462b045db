package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := Wrap(ErrExternalTool, "normalize", "measure loudness", "/music/a.mp3", base)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"normalize", "measure loudness", "/music/a.mp3"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrFileSystem) {
		t.Fatalf("expected filesystem marker fallback, got %v", err)
	}
	if !strings.Contains(err.Error(), "pipeline failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrMetadataParse, "resolve", "parse document", "/music/album.yaml", nil)
	if !errors.Is(err, ErrMetadataParse) {
		t.Fatalf("expected ErrMetadataParse, got %v", err)
	}
	if !strings.Contains(err.Error(), "album.yaml") {
		t.Fatalf("expected offending file in message, got %q", err.Error())
	}
}
