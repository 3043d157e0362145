// Package report renders series summaries, metadata and history as plain text.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"MacroLens/internal/calculator"
	"MacroLens/internal/catalog"
	"MacroLens/internal/collector"
	"MacroLens/internal/model"
	"MacroLens/internal/recorder"

	"github.com/dustin/go-humanize"
)

// Number renders v with thousands separators and at most two decimals.
func Number(v float64) string {
	if math.Abs(v) >= 1e12 {
		return humanize.FormatFloat("#,###.", v)
	}
	return strings.TrimSuffix(strings.TrimRight(humanize.FormatFloat("#,###.##", v), "0"), ".")
}

func signed(v float64) string {
	if v > 0 {
		return "+" + Number(v)
	}
	return Number(v)
}

// FormatSummary formats a resolved series and its summary for display.
func FormatSummary(series *model.NormalizedSeries, sum *calculator.Summary) string {
	var b strings.Builder
	req := series.Request

	b.WriteString(fmt.Sprintf("%s | %s %s (%s)\n", req.Source,
		catalog.Name(req.EntityCode), catalog.Label(req.Source, req.IndicatorCode), req.Frequency.Name()))
	if series.EntityUsed != "" && series.EntityUsed != req.EntityCode {
		b.WriteString(fmt.Sprintf("Entity:   %s (requested %s)\n", series.EntityUsed, req.EntityCode))
	}
	b.WriteString(fmt.Sprintf("Points:   %s (%s .. %s)", humanize.Comma(int64(sum.Count)), sum.FirstDate, sum.LastDate))
	if series.Skipped > 0 {
		b.WriteString(fmt.Sprintf(", %d skipped", series.Skipped))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Latest:   %s (%s)\n", Number(sum.Last), sum.LastDate))
	b.WriteString(fmt.Sprintf("Range:    %s (%s) .. %s (%s), position %.0f%%\n",
		Number(sum.Min), sum.MinDate, Number(sum.Max), sum.MaxDate, sum.Position*100))
	b.WriteString(fmt.Sprintf("Mean:     %s\n", Number(sum.Mean)))

	b.WriteString(fmt.Sprintf("Change:   %s", signed(sum.Change)))
	if sum.PctChange != nil {
		b.WriteString(fmt.Sprintf(" (%+.2f%%)", *sum.PctChange))
	}
	b.WriteString("\n")
	if sum.CAGR != nil {
		b.WriteString(fmt.Sprintf("CAGR:     %+.2f%% per year\n", *sum.CAGR))
	}
	if sum.SMA != nil {
		b.WriteString(fmt.Sprintf("SMA(%d):%s%s\n", sum.SMAWindow, pad(sum.SMAWindow), Number(*sum.SMA)))
	}
	if sum.RSI != nil {
		b.WriteString(fmt.Sprintf("RSI(%d): %.1f\n", calculator.RSIPeriod, *sum.RSI))
	}
	return b.String()
}

// pad aligns "SMA(n):" with the other labels.
func pad(window int) string {
	width := len(fmt.Sprintf("SMA(%d):", window))
	if width >= 10 {
		return " "
	}
	return strings.Repeat(" ", 10-width)
}

// FormatHistory formats recent resolutions, newest first.
func FormatHistory(rows []recorder.Resolution, now time.Time) string {
	if len(rows) == 0 {
		return "no resolutions recorded\n"
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%-14s %-12s %s %s/%s@%s", humanize.RelTime(r.Timestamp, now, "ago", "from now"),
			r.Outcome, r.Source, r.Entity, r.Indicator, r.Frequency))
		if r.Outcome == "ok" {
			b.WriteString(fmt.Sprintf(" points=%d", r.Points))
			if r.Skipped > 0 {
				b.WriteString(fmt.Sprintf(" skipped=%d", r.Skipped))
			}
		} else if r.Error != "" {
			b.WriteString(" error=" + r.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Compact renders large magnitudes with a K/M/B/T suffix.
func Compact(v float64) string {
	abs := math.Abs(v)
	for _, u := range []struct {
		div    float64
		suffix string
	}{{1e12, "T"}, {1e9, "B"}, {1e6, "M"}, {1e3, "K"}} {
		if abs >= u.div {
			return fmt.Sprintf("%.2f%s", v/u.div, u.suffix)
		}
	}
	return Number(v)
}

// FormatOverview formats a company profile. Missing figures print as N/A.
func FormatOverview(o *collector.CompanyOverview) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s | %s\n", o.Symbol, o.Name))
	if o.Exchange != "" || o.Currency != "" {
		b.WriteString(fmt.Sprintf("Listing:   %s %s\n", o.Exchange, o.Currency))
	}
	if o.Sector != "" {
		b.WriteString(fmt.Sprintf("Sector:    %s / %s\n", o.Sector, o.Industry))
	}
	b.WriteString(fmt.Sprintf("Mkt cap:   %s\n", optional(o.MarketCap, Compact)))
	b.WriteString(fmt.Sprintf("52w range: %s .. %s\n", optional(o.Low52, Number), optional(o.High52, Number)))
	b.WriteString(fmt.Sprintf("Beta:      %s\n", optional(o.Beta, Number)))
	b.WriteString(fmt.Sprintf("Fwd P/E:   %s\n", optional(o.ForwardPE, Number)))
	b.WriteString(fmt.Sprintf("Dividend:  %s\n", optional(o.DividendYield, func(v float64) string {
		return fmt.Sprintf("%.2f%%", v)
	})))
	return b.String()
}

func optional(v *float64, format func(float64) string) string {
	if v == nil {
		return "N/A"
	}
	return format(*v)
}

// FormatSnapshot formats a cross-country snapshot, largest value first.
func FormatSnapshot(indicator string, year int, values []collector.SnapshotValue) string {
	if len(values) == 0 {
		return "no values\n"
	}
	rows := append([]collector.SnapshotValue(nil), values...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s, %d\n", catalog.Label(model.SourceIMFDataMapper, indicator), year))
	for i, v := range rows {
		b.WriteString(fmt.Sprintf("%3d. %-20s %s\n", i+1, catalog.Name(v.Entity), Number(v.Value)))
	}
	return b.String()
}
