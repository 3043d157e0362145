package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"MacroLens/internal/catalog"
	"MacroLens/internal/model"

	"github.com/spf13/cobra"
)

func newIndicatorsCmd() *cobra.Command {
	var source, category string
	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "List the indicator codes known for a source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := model.ParseSource(source)
			if err != nil {
				return err
			}
			return printIndicators(cmd.OutOrStdout(), src, category)
		},
	}
	cmd.Flags().StringVar(&source, "source", string(model.SourceDataCommons), "data source")
	cmd.Flags().StringVar(&category, "category", "", "limit to one category")
	return cmd
}

func printIndicators(w io.Writer, src model.Source, category string) error {
	categories := catalog.Categories(src)
	if len(categories) == 0 {
		_, err := fmt.Fprintf(w, "no indicator catalog for %s; pass codes directly\n", src)
		return err
	}
	if category != "" {
		categories = []string{category}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cat := range categories {
		list := catalog.Indicators(src, cat)
		if len(list) == 0 {
			return fmt.Errorf("unknown category %q for %s", cat, src)
		}
		fmt.Fprintf(tw, "[%s]\n", cat)
		for _, ind := range list {
			fmt.Fprintf(tw, "  %s\t%s\n", ind.Code, ind.Label)
		}
	}
	return tw.Flush()
}
