package main

import (
	"fmt"
	"time"

	"MacroLens/internal/report"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent resolutions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if !cfg.RecorderEnabled() {
				return fmt.Errorf("history is disabled (database.sqlite_path is %q)", cfg.Database.SQLitePath)
			}
			a := newApp(cfg, logger)
			defer a.Close()

			rows, err := a.recorder.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.FormatHistory(rows, time.Now()))
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of resolutions to show")
	return cmd
}
