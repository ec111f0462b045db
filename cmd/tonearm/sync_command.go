package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tonearm/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var deleteExtraneous bool
	var deviceDir string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the library onto a device directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			if deviceDir != "" {
				cfg.Paths.DeviceDir = deviceDir
			}
			if deleteExtraneous {
				cfg.Sync.DeleteExtraneous = true
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := syncer.New(cfg, logger).Sync(runCtx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d, skipped %d, deleted %d (%d bytes)\n",
				summary.Copied, summary.Skipped, summary.Deleted, summary.Bytes)
			return nil
		},
	}

	cmd.Flags().StringVar(&deviceDir, "device", "", "Device directory (overrides paths.device_dir)")
	cmd.Flags().BoolVar(&deleteExtraneous, "delete", false, "Delete device files with no library counterpart")
	return cmd
}
