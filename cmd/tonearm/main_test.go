package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tonearm/internal/config"
	"tonearm/internal/journal"
	"tonearm/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	libraryDir string
	logDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "ffmpeg"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		libraryDir: filepath.Join(base, "library"),
		logDir:     filepath.Join(base, "logs"),
	}
	for _, dir := range []string{env.libraryDir, env.logDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	cfg := config.Default()
	cfg.Paths.LibraryDir = env.libraryDir
	cfg.Paths.LogDir = env.logDir
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output %q does not contain %q", haystack, needle)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"--config", env.configPath, "config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	requireContains(t, out, "Loaded "+env.configPath)
	requireContains(t, out, env.libraryDir)
	requireContains(t, out, "Configuration OK")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	requireContains(t, out, "Sample configuration written to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err = runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatalf("expected refusal to overwrite existing config")
	}

	out, err = runCLI(t, []string{"config", "init", "--path", target, "--force"})
	if err != nil {
		t.Fatalf("config init --force: %v\n%s", err, out)
	}
	requireContains(t, out, "Sample configuration written to "+target)
}

func TestDepsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"--config", env.configPath, "deps"})
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "yes")
}

func TestDepsCommandMissingBinary(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", t.TempDir())

	out, err := runCLI(t, []string{"--config", env.configPath, "deps"})
	if err == nil {
		t.Fatalf("expected failure when ffmpeg is missing\n%s", out)
	}
}

func TestHistoryCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"--config", env.configPath, "history"})
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	requireContains(t, out, "No runs recorded")
}

func TestProcessCommandEmptyLibrary(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"--config", env.configPath, "process"})
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	requireContains(t, out, "No tracks found")
}

func TestProcessCommandRejectsNonAudioArgument(t *testing.T) {
	env := setupCLITestEnv(t)
	notes := filepath.Join(env.libraryDir, "notes.txt")
	if err := os.WriteFile(notes, []byte("text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := runCLI(t, []string{"--config", env.configPath, "process", notes}); err == nil {
		t.Fatalf("expected rejection of non-audio argument")
	}

	store := testsupport.MustOpenJournal(t, filepath.Join(env.logDir, "journal.db"))
	runs, err := store.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != journal.StatusFailed {
		t.Fatalf("expected one failed run in the journal, got %+v", runs)
	}
	records, err := store.RunTracks(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatalf("run tracks: %v", err)
	}
	if len(records) != 1 || records[0].ErrorMessage == "" {
		t.Fatalf("expected one failed track record, got %+v", records)
	}
}

func TestSyncCommandMirrorsLibrary(t *testing.T) {
	env := setupCLITestEnv(t)
	device := t.TempDir()
	track := filepath.Join(env.libraryDir, "01 One.mp3")
	if err := os.WriteFile(track, []byte("one"), 0o644); err != nil {
		t.Fatalf("write track: %v", err)
	}

	out, err := runCLI(t, []string{"--config", env.configPath, "sync", "--device", device})
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	requireContains(t, out, "Copied 1")
	if _, err := os.Stat(filepath.Join(device, "01 One.mp3")); err != nil {
		t.Fatalf("mirrored file missing: %v", err)
	}
}
