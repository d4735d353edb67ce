package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subarchive/internal/ledger"
	"subarchive/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration readiness and archive totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Readiness", colorize)
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			indexKind, indexDetail := statusInfo, "disabled"
			if cfg.Downloads.SubtitleIndex {
				indexKind, indexDetail = statusOK, "enabled ("+cfg.Index.Name+")"
			}
			lines = append(lines, renderStatusLine("Indexing", indexKind, indexDetail, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Archive", colorize)...)
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				lines = append(lines, renderStatusLine("Ledger", statusError, err.Error(), colorize))
			} else {
				defer store.Close()
				videos, err := store.Videos(cmd.Context())
				if err != nil {
					lines = append(lines, renderStatusLine("Ledger", statusError, err.Error(), colorize))
				} else {
					tracks, indexed := 0, 0
					for _, v := range videos {
						tracks += v.TrackCount
						indexed += v.Indexed
					}
					lines = append(lines,
						renderStatusLine("Ledger", statusOK, cfg.LedgerPath(), colorize),
						renderStatusLine("Videos", statusInfo, fmt.Sprint(len(videos)), colorize),
						renderStatusLine("Tracks", statusInfo, fmt.Sprintf("%d (%d indexed)", tracks, indexed), colorize),
					)
				}
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return preflightError(failed)
			}
			return nil
		},
	}
}
