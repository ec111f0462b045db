package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tonearm/internal/config"
)

func newConfigCommand() *cobra.Command {
	parent := &cobra.Command{
		Use:   "config",
		Short: "Inspect and bootstrap the configuration file",
	}
	parent.AddCommand(newConfigInitCommand(), newConfigValidateCommand())
	return parent
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveInitTarget(targetPath)
			if err != nil {
				return err
			}

			if _, statErr := os.Stat(target); statErr == nil && !force {
				return fmt.Errorf("refusing to overwrite %s (pass --force to replace it)", target)
			} else if statErr != nil && !os.IsNotExist(statErr) {
				return fmt.Errorf("check config path: %w", statErr)
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sample configuration written to %s\n", target)
			fmt.Fprintln(out, "Set paths.library_dir before the first run; everything else has a usable default.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (defaults to the standard location)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing configuration file")
	return cmd
}

func resolveInitTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configFlag, _ := cmd.Flags().GetString("config")
			cfg, path, exists, err := config.Load(configFlag)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Loaded %s\n", path)
			} else {
				fmt.Fprintf(out, "No config file at %s; built-in defaults in effect\n", path)
			}

			device := cfg.Paths.DeviceDir
			if device == "" {
				device = "(not set)"
			}
			journal := "disabled"
			if cfg.Journal.Enabled {
				journal = cfg.Journal.Path
			}
			fmt.Fprintf(out, "  library:  %s\n", cfg.Paths.LibraryDir)
			fmt.Fprintf(out, "  device:   %s\n", device)
			fmt.Fprintf(out, "  loudness: %g LUFS, range %g LU, peak %g dBTP, %s\n",
				cfg.Normalization.IntegratedLoudness,
				cfg.Normalization.LoudnessRange,
				cfg.Normalization.TruePeak,
				cfg.Normalization.Bitrate)
			fmt.Fprintf(out, "  journal:  %s\n", journal)
			fmt.Fprintln(out, "Configuration OK")
			return nil
		},
	}
}
