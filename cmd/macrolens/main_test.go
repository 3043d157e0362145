package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"MacroLens/internal/cache"
	"MacroLens/internal/config"
	"MacroLens/internal/export"
	"MacroLens/internal/model"

	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ALPHAVANTAGE_API_KEY", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestCreateLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger, err := createLogger(level)
		if err != nil {
			t.Fatalf("createLogger(%q): %v", level, err)
		}
		if logger == nil {
			t.Fatalf("createLogger(%q) returned nil", level)
		}
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg := testConfig(t)
	c := cache.New(time.Hour, time.Hour, zap.NewNop(), cache.NewMemoryStore(16, time.Hour))

	reg := buildRegistry(cfg, c, zap.NewNop())
	if _, ok := reg.Get(model.SourceAlphaVantage); ok {
		t.Error("alphavantage registered without an api key")
	}
	if got := len(reg.Sources()); got != 5 {
		t.Errorf("sources = %v, want 5", reg.Sources())
	}

	cfg.Providers.AlphaVantage.APIKey = "demo"
	cfg.Providers.Yahoo.Disabled = true
	reg = buildRegistry(cfg, c, zap.NewNop())
	if _, ok := reg.Get(model.SourceAlphaVantage); !ok {
		t.Error("alphavantage missing with an api key")
	}
	if _, ok := reg.Get(model.SourceYahoo); ok {
		t.Error("disabled yahoo still registered")
	}
}

func TestFetchOptionsRequest(t *testing.T) {
	opts := &fetchOptions{
		source:    "sdmx",
		entity:    "DEU",
		indicator: "IFS/PCPI_IX",
		frequency: "m",
		start:     "2015",
		end:       "2016",
		out:       "cpi.XLSX",
	}
	req, format, err := opts.request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Source != model.SourceIMFSDMX || req.Frequency != model.Monthly {
		t.Errorf("req = %+v", req)
	}
	if format != export.XLSX {
		t.Errorf("format = %q, want xlsx", format)
	}
	if req.DateRange == nil || req.DateRange.End.Format("2006-01-02") != "2016-12-31" {
		t.Errorf("range = %+v", req.DateRange)
	}

	opts.out = ""
	if _, format, _ = opts.request(); format != "" {
		t.Errorf("format without --out = %q, want summary", format)
	}

	opts.format = "parquet"
	if _, _, err := opts.request(); err == nil {
		t.Error("expected error for unknown format")
	}
}

func testSeries() *model.NormalizedSeries {
	return &model.NormalizedSeries{
		Request: model.SeriesRequest{
			Source:        model.SourceDataCommons,
			EntityCode:    "USA",
			IndicatorCode: "Count_Person",
			Frequency:     model.Annual,
		},
		EntityUsed: "country/USA",
		Points: []model.ObservationPoint{
			{Date: "2020", Time: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: 100},
			{Date: "2021", Time: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Value: 110},
		},
	}
}

func TestWriteSeries(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSeries(&buf, testSeries(), "", ""); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(buf.String(), "Points:") {
		t.Errorf("summary output:\n%s", buf.String())
	}

	buf.Reset()
	if err := writeSeries(&buf, testSeries(), export.CSV, ""); err != nil {
		t.Fatalf("csv: %v", err)
	}
	if !strings.Contains(buf.String(), "2021") {
		t.Errorf("csv output:\n%s", buf.String())
	}

	out := filepath.Join(t.TempDir(), "series.json")
	buf.Reset()
	if err := writeSeries(&buf, testSeries(), export.JSON, out); err != nil {
		t.Fatalf("json file: %v", err)
	}
	if !strings.Contains(buf.String(), "wrote 2 points") {
		t.Errorf("status line = %q", buf.String())
	}
}

func TestPrintIndicators(t *testing.T) {
	var buf bytes.Buffer
	if err := printIndicators(&buf, model.SourceDataCommons, "Population"); err != nil {
		t.Fatalf("printIndicators: %v", err)
	}
	if !strings.Contains(buf.String(), "Count_Person") {
		t.Errorf("output:\n%s", buf.String())
	}

	if err := printIndicators(&buf, model.SourceDataCommons, "Nope"); err == nil {
		t.Error("expected error for unknown category")
	}

	buf.Reset()
	if err := printIndicators(&buf, model.SourceYahoo, ""); err != nil {
		t.Fatalf("yahoo: %v", err)
	}
	if !strings.Contains(buf.String(), "no indicator catalog") {
		t.Errorf("yahoo output = %q", buf.String())
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "fetch", "overview", "snapshot"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	snap, _, _ := root.Find([]string{"snapshot"})
	if f := snap.Flags().Lookup("indicator"); f == nil || f.DefValue != "NGDPD" {
		t.Errorf("snapshot --indicator flag = %+v", f)
	}
}
