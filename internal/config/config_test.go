package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.FFmpeg.Binary != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary %q", cfg.FFmpeg.Binary)
	}
	if cfg.Journal.Path == "" {
		t.Fatalf("journal path should default under log dir")
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`library_dir = "` + filepath.Join(dir, "music") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[normalization]",
		"integrated_loudness = -14.0",
		`bitrate = "256k"`,
		"[metadata]",
		`document_name = "tags.yaml"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %s (exists), got %s exists=%v", path, resolved, exists)
	}
	if cfg.Normalization.IntegratedLoudness != -14.0 {
		t.Fatalf("integrated loudness not applied: %g", cfg.Normalization.IntegratedLoudness)
	}
	if cfg.Normalization.Bitrate != "256k" {
		t.Fatalf("bitrate not applied: %q", cfg.Normalization.Bitrate)
	}
	if cfg.Metadata.DocumentName != "tags.yaml" {
		t.Fatalf("document name not applied: %q", cfg.Metadata.DocumentName)
	}
	// Unset sections keep defaults.
	if cfg.Cache.DirName != defaultCacheDirName {
		t.Fatalf("cache dir default lost: %q", cfg.Cache.DirName)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing library", func(c *Config) { c.Paths.LibraryDir = "" }},
		{"positive true peak", func(c *Config) { c.Normalization.TruePeak = 1.0 }},
		{"bad bitrate", func(c *Config) { c.Normalization.Bitrate = "lots" }},
		{"visible cache dir", func(c *Config) { c.Cache.DirName = "cache" }},
		{"document with path", func(c *Config) { c.Metadata.DocumentName = "a/b.yaml" }},
		{"free ratio", func(c *Config) { c.Sync.MinFreeRatio = 1.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load: exists=%v err=%v", exists, err)
	}
}
