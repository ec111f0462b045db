package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	DeviceDir  string `toml:"device_dir"`
}

// Normalization contains the loudness targets and encode settings applied to
// every track.
type Normalization struct {
	IntegratedLoudness float64 `toml:"integrated_loudness"`
	LoudnessRange      float64 `toml:"loudness_range"`
	TruePeak           float64 `toml:"true_peak"`
	Bitrate            string  `toml:"bitrate"`
}

// Metadata contains configuration for per-directory override documents.
type Metadata struct {
	DocumentName string `toml:"document_name"`
}

// Cache contains configuration for the per-directory artifact cache.
type Cache struct {
	DirName string `toml:"dir_name"`
}

// Sync contains configuration for mirroring the library to a device.
type Sync struct {
	ExcludePatterns  []string `toml:"exclude_patterns"`
	DeleteExtraneous bool     `toml:"delete_extraneous"`
	MinFreeRatio     float64  `toml:"min_free_ratio"`
}

// Journal contains configuration for the run-history database.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// FFmpeg contains configuration for the external transcoding tool.
type FFmpeg struct {
	Binary string `toml:"binary"`
}

// Config encapsulates all configuration values for tonearm.
//
// Configuration sections by subsystem:
//   - Paths: library root, log directory, sync device directory
//   - Normalization: loudness targets and MP3 encode bitrate
//   - Metadata: per-directory override document name
//   - Cache: hidden artifact cache directory name
//   - Sync: device mirroring exclusions and free-space floor
//   - Journal: run-history database
//   - Logging: log format and level
//   - FFmpeg: transcoder binary
type Config struct {
	Paths         Paths         `toml:"paths"`
	Normalization Normalization `toml:"normalization"`
	Metadata      Metadata      `toml:"metadata"`
	Cache         Cache         `toml:"cache"`
	Sync          Sync          `toml:"sync"`
	Journal       Journal       `toml:"journal"`
	Logging       Logging       `toml:"logging"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tonearm/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tonearm.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DeviceDir) != "" {
		if c.Paths.DeviceDir, err = expandPath(c.Paths.DeviceDir); err != nil {
			return fmt.Errorf("paths.device_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.LogDir, "journal.db")
	} else if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Metadata.DocumentName) == "" {
		c.Metadata.DocumentName = defaultMetadataDocument
	}
	if strings.TrimSpace(c.Cache.DirName) == "" {
		c.Cache.DirName = defaultCacheDirName
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// EnsureDirectories creates the directories tonearm needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, filepath.Dir(c.Journal.Path)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
