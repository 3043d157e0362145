package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MacroLens/internal/httpx"
	"MacroLens/internal/model"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *httpx.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := httpx.New(httpx.Options{
		Timeout: 5 * time.Second,
		Retry:   httpx.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
	return srv, client
}

func TestRegistry(t *testing.T) {
	a := NewStaticFetcher(nil)
	b := &StaticFetcher{SourceName: model.SourceYahoo}
	reg := NewRegistry(a, b)

	if f, ok := reg.Get(model.SourceStatic); !ok || f != a {
		t.Fatal("static fetcher not registered")
	}
	if _, ok := reg.Get(model.SourceIMFREST); ok {
		t.Fatal("unexpected imf_rest fetcher")
	}
	got := reg.Sources()
	if len(got) != 2 || got[0] != model.SourceStatic || got[1] != model.SourceYahoo {
		t.Errorf("Sources() = %v", got)
	}
}

func TestSplitIndicator(t *testing.T) {
	tests := []struct {
		in, def, ds, ind string
	}{
		{"IFS/NGDP_R_XDC", "X", "IFS", "NGDP_R_XDC"},
		{"PCPI_IX", "IFS", "IFS", "PCPI_IX"},
		{" BOP/BCA ", "IFS", "BOP", "BCA"},
	}
	for _, tc := range tests {
		ds, ind := splitIndicator(tc.in, tc.def)
		if ds != tc.ds || ind != tc.ind {
			t.Errorf("splitIndicator(%q) = %q, %q", tc.in, ds, ind)
		}
	}
}

func TestStaticFetcher(t *testing.T) {
	f := NewStaticFetcher(map[string]any{"USA": map[string]any{"2020": 1.0}})
	f.Alternates = map[string]string{"USA": "US"}

	p, a := f.EntityForms("USA")
	if p != "USA" || a != "US" {
		t.Errorf("EntityForms = %q, %q", p, a)
	}
	raw, err := f.Fetch(context.Background(), Query{Entity: "USA"})
	if err != nil || raw == nil {
		t.Fatalf("Fetch = %v, %v", raw, err)
	}
	if raw, _ := f.Fetch(context.Background(), Query{Entity: "US"}); raw != nil {
		t.Errorf("expected nil payload for US, got %v", raw)
	}
	if n := len(f.Calls()); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
	f.Frequencies = []model.Frequency{model.Annual}
	if f.Supports(model.Daily) {
		t.Error("daily should be unsupported")
	}
}

func TestDataCommonsFetcher(t *testing.T) {
	srv, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stat/series" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("stat_var") != "Count_Person" || q.Get("observation_period") != "P1Y" || q.Get("key") != "k" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("place") != "country/USA" {
			w.Write([]byte(`{"series":{}}`))
			return
		}
		w.Write([]byte(`{"series":{"2019":328239523,"2020":331501080}}`))
	})
	f := NewDataCommonsFetcher(srv.URL, "k", client)

	p, a := f.EntityForms("usa")
	if p != "country/USA" || a != "usa" {
		t.Errorf("EntityForms = %q, %q", p, a)
	}
	raw, err := f.Fetch(context.Background(), Query{Entity: p, Indicator: "Count_Person", Period: "P1Y"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	series, ok := raw.(map[string]any)
	if !ok || len(series) != 2 {
		t.Fatalf("raw = %#v", raw)
	}
	if n, ok := series["2020"].(json.Number); !ok || n.String() != "331501080" {
		t.Errorf("2020 = %#v", series["2020"])
	}

	raw, err = f.Fetch(context.Background(), Query{Entity: "usa", Indicator: "Count_Person", Period: "P1Y"})
	if err != nil || raw != nil {
		t.Errorf("empty series should be (nil, nil), got %v, %v", raw, err)
	}
}

func TestDataMapperFetcher(t *testing.T) {
	srv, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/NGDPD/USA" {
			w.Write([]byte(`{"api":{"version":"1"}}`))
			return
		}
		if got := r.URL.Query().Get("periods"); got != "2020,2021" {
			t.Errorf("periods = %q", got)
		}
		w.Write([]byte(`{"values":{"NGDPD":{"USA":{"2020":21.4,"2021":23.0}}}}`))
	})
	f := NewDataMapperFetcher(srv.URL, client)
	rng := &model.DateRange{
		Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	raw, err := f.Fetch(context.Background(), Query{Entity: "USA", Indicator: "NGDPD", Range: rng})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if m, ok := raw.(map[string]any); !ok || len(m) != 2 {
		t.Fatalf("raw = %#v", raw)
	}

	raw, err = f.Fetch(context.Background(), Query{Entity: "XXX", Indicator: "NGDPD"})
	if err != nil || raw != nil {
		t.Errorf("unknown entity should be (nil, nil), got %v, %v", raw, err)
	}
	if f.Supports(model.Monthly) {
		t.Error("datamapper is annual only")
	}
}

func TestSDMXFetcher(t *testing.T) {
	srv, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/CompactData/IFS/Q.US.NGDP_R_XDC":
			w.Write([]byte(`{"CompactData":{"DataSet":{"Series":{"@FREQ":"Q","Obs":[
				{"@TIME_PERIOD":"2020-Q1","@OBS_VALUE":"100.5"},
				{"@TIME_PERIOD":"2020-Q2","@OBS_VALUE":"98.1"}]}}}}`))
		case "/CompactData/IFS/A.US.LUR":
			w.Write([]byte(`{"CompactData":{"DataSet":{"Series":{"Obs":{"@TIME_PERIOD":"2020","@OBS_VALUE":"8.1"}}}}}`))
		case "/CompactData/IFS/A.DE.LUR":
			w.Write([]byte(`<html>maintenance</html>`))
		default:
			w.Write([]byte(`{"CompactData":{"DataSet":{}}}`))
		}
	})
	f := NewSDMXFetcher(srv.URL, client)

	p, a := f.EntityForms("USA")
	if p != "US" || a != "USA" {
		t.Errorf("EntityForms = %q, %q", p, a)
	}
	raw, err := f.Fetch(context.Background(), Query{Entity: "US", Indicator: "IFS/NGDP_R_XDC", Frequency: model.Quarterly})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if list, ok := raw.([]any); !ok || len(list) != 2 {
		t.Fatalf("raw = %#v", raw)
	}

	raw, err = f.Fetch(context.Background(), Query{Entity: "US", Indicator: "LUR", Frequency: model.Annual})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if list, ok := raw.([]any); !ok || len(list) != 1 {
		t.Errorf("single observation should be wrapped, got %#v", raw)
	}

	raw, err = f.Fetch(context.Background(), Query{Entity: "USA", Indicator: "LUR", Frequency: model.Annual})
	if err != nil || raw != nil {
		t.Errorf("missing series should be (nil, nil), got %v, %v", raw, err)
	}

	_, err = f.Fetch(context.Background(), Query{Entity: "DE", Indicator: "LUR", Frequency: model.Annual})
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestRESTFetcher(t *testing.T) {
	srv, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "jsondata" {
			t.Errorf("format = %q", r.URL.Query().Get("format"))
		}
		if !strings.HasSuffix(r.URL.Path, "/data/IFS/A.USA.NGDP") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"data":{
			"dataSets":[{"series":{"0:0:0":{"observations":{"0":["1.5"],"1":[2.5],"7":[9]}}}}],
			"structure":{"dimensions":{"observation":[{"id":"TIME_PERIOD","values":[{"id":"2019"},{"id":"2020"}]}]}}
		}}`))
	})
	f := NewRESTFetcher(srv.URL, client)

	p, a := f.EntityForms("us")
	if p != "USA" || a != "US" {
		t.Errorf("EntityForms = %q, %q", p, a)
	}
	raw, err := f.Fetch(context.Background(), Query{Entity: "USA", Indicator: "NGDP", Frequency: model.Annual})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		t.Fatalf("raw = %#v", raw)
	}
	if m["2019"] != "1.5" {
		t.Errorf("2019 = %#v", m["2019"])
	}
	if _, ok := m["2020"].(json.Number); !ok {
		t.Errorf("2020 = %#v", m["2020"])
	}
	if _, ok := m["obs:7"]; !ok {
		t.Errorf("unknown index should be kept under obs:7, got %v", m)
	}

	raw, err = f.Fetch(context.Background(), Query{Entity: "US", Indicator: "NGDP", Frequency: model.Annual})
	if err != nil || raw != nil {
		t.Errorf("404 should be (nil, nil), got %v, %v", raw, err)
	}
}

func TestAlphaVantageFetcher(t *testing.T) {
	srv, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("symbol") {
		case "IBM":
			if q.Get("function") != "TIME_SERIES_MONTHLY" {
				t.Errorf("function = %q", q.Get("function"))
			}
			w.Write([]byte(`{"Meta Data":{"2. Symbol":"IBM"},"Monthly Time Series":{
				"2024-01-31":{"1. open":"162.8","4. close":"183.66"},
				"2024-02-29":{"1. open":"183.6","4. close":"185.03"}}}`))
		case "LIMIT":
			w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`))
		default:
			w.Write([]byte(`{"Error Message":"Invalid API call."}`))
		}
	})
	f := NewAlphaVantageFetcher(srv.URL, "demo", client)

	raw, err := f.Fetch(context.Background(), Query{Entity: "IBM", Frequency: model.Monthly})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	m, ok := raw.(map[string]any)
	if !ok || m["2024-01-31"] != "183.66" {
		t.Fatalf("raw = %#v", raw)
	}

	raw, err = f.Fetch(context.Background(), Query{Entity: "NOPE", Frequency: model.Daily})
	if err != nil || raw != nil {
		t.Errorf("error message should be (nil, nil), got %v, %v", raw, err)
	}

	_, err = f.Fetch(context.Background(), Query{Entity: "LIMIT", Frequency: model.Daily})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if f.Supports(model.Annual) || f.Supports(model.Quarterly) {
		t.Error("alphavantage offers daily and monthly only")
	}
}

func TestYahooFetcher(t *testing.T) {
	srv, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("interval = %q", r.URL.Query().Get("interval"))
		}
		if !strings.HasSuffix(r.URL.Path, "/^GSPC") {
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
			return
		}
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704205800,1704292200,1704378600],
			"indicators":{"quote":[{"close":[4742.83,null,4688.68]}]}}],"error":null}}`))
	})
	f := NewYahooFetcher(srv.URL, client)

	p, a := f.EntityForms("spx500")
	if p != "^GSPC" || a != "SPX500" {
		t.Errorf("EntityForms = %q, %q", p, a)
	}
	raw, err := f.Fetch(context.Background(), Query{Entity: p, Frequency: model.Daily})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	records, ok := raw.([]any)
	if !ok || len(records) != 3 {
		t.Fatalf("raw = %#v", raw)
	}
	first := records[0].(map[string]any)
	if first["date"] != "2024-01-02" {
		t.Errorf("first date = %v", first["date"])
	}
	if records[1].(map[string]any)["value"] != nil {
		t.Error("null close should pass through as nil")
	}

	raw, err = f.Fetch(context.Background(), Query{Entity: "NOPE", Frequency: model.Daily})
	if err != nil || raw != nil {
		t.Errorf("not found should be (nil, nil), got %v, %v", raw, err)
	}
	if f.Supports(model.Annual) {
		t.Error("yahoo has no annual interval")
	}
}
