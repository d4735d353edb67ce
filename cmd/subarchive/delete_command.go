package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subarchive/internal/services"
	"subarchive/internal/subtitles"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var languages []string

	cmd := &cobra.Command{
		Use:   "delete <video-id>",
		Short: "Remove archived caption files and index documents for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID := strings.TrimSpace(args[0])
			if videoID == "" {
				return services.Wrap(services.ErrValidation, "cli", "delete", "video id is required", nil)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			svc, store, err := ctx.openService(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			// nil tracks removes everything the ledger recorded for the video.
			var tracks []subtitles.TrackDescriptor
			if len(languages) > 0 {
				tracks = make([]subtitles.TrackDescriptor, 0, len(languages))
				for _, lang := range languages {
					rec, err := store.Track(cmd.Context(), videoID, strings.TrimSpace(lang))
					if err != nil {
						return err
					}
					if rec == nil {
						return services.Wrap(services.ErrNotFound, "cli", "delete",
							fmt.Sprintf("no %s track recorded for %s", lang, videoID), nil)
					}
					tracks = append(tracks, subtitles.TrackDescriptor{
						Language:  rec.Language,
						Source:    subtitles.Source(rec.Source),
						Format:    rec.Format,
						URL:       rec.URL,
						MediaPath: rec.MediaPath,
					})
				}
			}

			err = withVideoLock(cfg, videoID, func() error {
				return svc.Delete(cmd.Context(), videoID, tracks)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted captions for %s\n", videoID)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "Only delete these recorded languages (repeatable)")
	return cmd
}
