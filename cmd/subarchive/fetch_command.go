package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"subarchive/internal/language"
	"subarchive/internal/logging"
	"subarchive/internal/metadata"
	"subarchive/internal/preflight"
	"subarchive/internal/services"
	"subarchive/internal/subtitles"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "fetch <info.json>...",
		Short: "Download, convert, and index the configured caption tracks for videos",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("provide at least one video metadata file. Example: subarchive fetch /path/to/video.info.json")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			defer logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, time.Now())

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					return preflightError(failed)
				}
			}

			svc, store, err := ctx.openService(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			var rows [][]string
			var errs []error
			for _, arg := range args {
				video, err := metadata.Load(strings.TrimSpace(arg))
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", arg, err))
					continue
				}

				runCtx := services.WithRequestID(cmd.Context(), uuid.NewString())
				var persisted []subtitles.TrackDescriptor
				err = withVideoLock(cfg, video.ID, func() error {
					var procErr error
					persisted, procErr = svc.Process(runCtx, video)
					return procErr
				})
				for _, track := range persisted {
					rows = append(rows, []string{
						video.ID,
						track.Language,
						language.DisplayName(track.Language),
						string(track.Source),
						filepath.Join(cfg.Paths.MediaDir, filepath.FromSlash(track.MediaPath)),
					})
				}
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					errs = append(errs, fmt.Errorf("%s: %w", video.ID, err))
				}
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No caption tracks archived")
			} else {
				fmt.Fprintln(out, renderTable(
					[]string{"Video", "Lang", "Language", "Source", "Path"},
					rows,
					nil,
				))
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory and search index readiness checks")
	return cmd
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "cli", "preflight", strings.Join(parts, "; "), nil)
}
