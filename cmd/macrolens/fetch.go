package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"MacroLens/internal/calculator"
	"MacroLens/internal/export"
	"MacroLens/internal/model"
	"MacroLens/internal/report"

	"github.com/spf13/cobra"
)

type fetchOptions struct {
	source    string
	entity    string
	indicator string
	frequency string
	start     string
	end       string
	format    string
	out       string
}

func newFetchCmd(root *rootOptions) *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Resolve one series and print a summary or export it",
		Example: `  macrolens fetch --source datacommons --entity USA --indicator Count_Person --frequency A
  macrolens fetch --source imf_sdmx --entity DEU --indicator IFS/PCPI_IX --frequency M --start 2015 --out cpi.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, format, err := opts.request()
			if err != nil {
				return err
			}
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			a := newApp(cfg, logger)
			defer a.Close()

			series, err := a.resolver.Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeSeries(cmd.OutOrStdout(), series, format, opts.out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.source, "source", "", "data source ("+sourceNames()+")")
	f.StringVar(&opts.entity, "entity", "", "entity code, e.g. USA or country/USA")
	f.StringVar(&opts.indicator, "indicator", "", "indicator code")
	f.StringVar(&opts.frequency, "frequency", "A", "frequency: A, Q, M or D")
	f.StringVar(&opts.start, "start", "", "first period to keep, e.g. 2010 or 2010-01")
	f.StringVar(&opts.end, "end", "", "last period to keep")
	f.StringVar(&opts.format, "format", "", "export format: csv, json or xlsx (default from --out extension)")
	f.StringVar(&opts.out, "out", "", "write the series to this file instead of printing a summary")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("indicator")
	return cmd
}

// request validates the flags; format is empty when only a summary is wanted.
func (o *fetchOptions) request() (model.SeriesRequest, export.Format, error) {
	src, err := model.ParseSource(o.source)
	if err != nil {
		return model.SeriesRequest{}, "", err
	}
	freq, err := model.ParseFrequency(o.frequency)
	if err != nil {
		return model.SeriesRequest{}, "", err
	}
	rng, err := model.ParseRange(o.start, o.end)
	if err != nil {
		return model.SeriesRequest{}, "", err
	}
	var format export.Format
	switch {
	case o.format != "":
		format, err = export.ParseFormat(o.format)
	case o.out != "":
		format, err = export.ParseFormat(filepath.Ext(o.out))
	}
	if err != nil {
		return model.SeriesRequest{}, "", err
	}
	return model.SeriesRequest{
		Source:        src,
		EntityCode:    o.entity,
		IndicatorCode: o.indicator,
		Frequency:     freq,
		DateRange:     rng,
	}, format, nil
}

func writeSeries(stdout io.Writer, series *model.NormalizedSeries, format export.Format, out string) error {
	if format == "" {
		sum, err := calculator.Summarize(series, 0)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(stdout, report.FormatSummary(series, sum))
		return err
	}
	if out == "" {
		return export.Write(stdout, format, series)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := export.Write(f, format, series); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d points to %s\n", series.Len(), out)
	return nil
}

func sourceNames() string {
	names := ""
	for i, s := range model.Sources {
		if i > 0 {
			names += ", "
		}
		names += string(s)
	}
	return names
}
