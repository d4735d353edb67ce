package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subarchive/internal/language"
	"subarchive/internal/ledger"
	"subarchive/internal/services"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tracks [video-id]",
		Short: "List archived videos, or the caption tracks of one video",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return services.Wrap(services.ErrTransient, "cli", "open ledger", cfg.LedgerPath(), err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				videos, err := store.Videos(cmd.Context())
				if err != nil {
					return err
				}
				if len(videos) == 0 {
					fmt.Fprintln(out, "No archived videos")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Video", "Tracks", "Indexed", "Languages", "Updated"},
					videoRows(videos),
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
				return nil
			}

			videoID := strings.TrimSpace(args[0])
			tracks, err := store.TracksForVideo(cmd.Context(), videoID)
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				return services.Wrap(services.ErrNotFound, "cli", "tracks", "no tracks recorded for "+videoID, nil)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Lang", "Language", "Source", "Cues", "Docs", "Indexed", "Path"},
				trackRows(tracks),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func videoRows(videos []ledger.VideoSummary) [][]string {
	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, []string{
			v.VideoID,
			strconv.Itoa(v.TrackCount),
			strconv.Itoa(v.Indexed),
			strings.Join(v.Languages, ","),
			v.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func trackRows(tracks []ledger.Track) [][]string {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{
			t.Language,
			language.DisplayName(t.Language),
			t.Source,
			strconv.Itoa(t.CueCount),
			strconv.Itoa(t.DocumentCount),
			yesNo(t.Indexed),
			t.MediaPath,
		})
	}
	return rows
}
