package main

import (
	"errors"
	"fmt"
	"time"

	"MacroLens/internal/api"
	"MacroLens/internal/report"

	"github.com/spf13/cobra"
)

func newOverviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "overview SYMBOL",
		Short:   "Show the company profile for a ticker",
		Args:    cobra.ExactArgs(1),
		Example: "  macrolens overview IBM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			a := newApp(cfg, logger)
			defer a.Close()

			av, ok := a.alphaVantage()
			if !ok {
				return errors.New("company overviews need the alphavantage source (set ALPHAVANTAGE_API_KEY)")
			}
			o, err := av.Overview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.FormatOverview(o))
			return err
		},
	}
}

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	var q api.SnapshotQuery
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compare one year of an IMF DataMapper indicator across economies",
		Example: `  macrolens snapshot
  macrolens snapshot --indicator LUR --year 2023 --entities USA,DEU,JPN`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			a := newApp(cfg, logger)
			defer a.Close()

			dm, ok := a.dataMapper()
			if !ok {
				return errors.New("snapshots need the imf_datamapper source")
			}
			indicator, year, entities := q.Normalize(time.Now())
			values, err := dm.Snapshot(cmd.Context(), indicator, entities, year)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.FormatSnapshot(indicator, year, values))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Indicator, "indicator", api.DefaultSnapshotIndicator, "DataMapper indicator code")
	f.IntVar(&q.Year, "year", 0, "year to compare (default current year)")
	f.StringVar(&q.Entities, "entities", "", "comma-separated ISO3 codes (default popular economies)")
	return cmd
}
