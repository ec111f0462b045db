package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var bitratePattern = regexp.MustCompile(`^[0-9]+k$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNormalization(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateNormalization() error {
	n := c.Normalization
	if n.IntegratedLoudness < -70 || n.IntegratedLoudness > -5 {
		return fmt.Errorf("normalization.integrated_loudness %g outside usable range [-70, -5] LUFS", n.IntegratedLoudness)
	}
	if n.LoudnessRange <= 0 {
		return errors.New("normalization.loudness_range must be positive")
	}
	if n.TruePeak > 0 {
		return errors.New("normalization.true_peak must be 0 dBTP or below")
	}
	if !bitratePattern.MatchString(strings.TrimSpace(n.Bitrate)) {
		return fmt.Errorf("normalization.bitrate %q must look like \"192k\"", n.Bitrate)
	}
	return nil
}

func (c *Config) validateMetadata() error {
	name := strings.TrimSpace(c.Metadata.DocumentName)
	if name == "" {
		return errors.New("metadata.document_name must be set")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.New("metadata.document_name must be a bare file name")
	}
	return nil
}

func (c *Config) validateCache() error {
	name := strings.TrimSpace(c.Cache.DirName)
	if name == "" {
		return errors.New("cache.dir_name must be set")
	}
	if !strings.HasPrefix(name, ".") {
		return errors.New("cache.dir_name must be hidden (start with a dot)")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.New("cache.dir_name must be a bare directory name")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.MinFreeRatio < 0 || c.Sync.MinFreeRatio >= 1 {
		return errors.New("sync.min_free_ratio must be in [0, 1)")
	}
	for _, pattern := range c.Sync.ExcludePatterns {
		if strings.TrimSpace(pattern) == "" {
			return errors.New("sync.exclude_patterns must not contain empty entries")
		}
	}
	return nil
}
