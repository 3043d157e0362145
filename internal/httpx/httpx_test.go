package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"MacroLens/internal/cache"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestHTTPError_RedactsKey(t *testing.T) {
	err := &HTTPError{
		Method:     "GET",
		URL:        "https://example.com/query?symbol=IBM&apikey=secret",
		StatusCode: 404,
		Body:       []byte("Not Found"),
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("expected api key to be redacted: %s", err.Error())
	}
	if !IsStatus(err, 404) {
		t.Error("expected IsStatus to match 404")
	}
}

func TestGet_CachesSuccessfulResponses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"series":{"2020":1}}`))
	}))
	defer srv.Close()

	c := New(Options{Retry: fastRetry(), Cache: cache.New(time.Hour, time.Hour, nil, cache.NewMemoryStore(10, time.Hour))})
	for i := 0; i < 3; i++ {
		body, err := c.Get(context.Background(), srv.URL+"/stat?x=1", cache.Data, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"series":{"2020":1}}` {
			t.Fatalf("unexpected body: %s", body)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(Options{Retry: fastRetry()})
	if _, err := c.Get(context.Background(), srv.URL, cache.Data, nil); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestGet_DoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(Options{Retry: fastRetry()})
	_, err := c.Get(context.Background(), srv.URL, cache.Data, nil)
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 HTTPError, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected a single call, got %d", n)
	}
}

func TestGet_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{Retry: fastRetry()})
	_, err := c.Get(context.Background(), srv.URL, cache.Data, nil)
	if !IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("expected 502 HTTPError, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestGet_DecodesCompressedBodies(t *testing.T) {
	payload := `{"values":{"NGDPD":{"USA":{"2024":29.2}}}}`
	tests := []struct {
		name     string
		encoding string
		write    func(w http.ResponseWriter)
	}{
		{"gzip", "gzip", func(w http.ResponseWriter) {
			gz := gzip.NewWriter(w)
			gz.Write([]byte(payload))
			gz.Close()
		}},
		{"brotli", "br", func(w http.ResponseWriter) {
			br := brotli.NewWriter(w)
			br.Write([]byte(payload))
			br.Close()
		}},
		{"zstd", "zstd", func(w http.ResponseWriter) {
			zw, _ := zstd.NewWriter(w)
			zw.Write([]byte(payload))
			zw.Close()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.Header.Get("Accept-Encoding"), tt.encoding) {
					t.Errorf("expected Accept-Encoding to offer %s", tt.encoding)
				}
				w.Header().Set("Content-Encoding", tt.encoding)
				tt.write(w)
			}))
			defer srv.Close()

			c := New(Options{Retry: fastRetry()})
			var out any
			if err := c.GetJSON(context.Background(), srv.URL, cache.Data, &out, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			values := out.(map[string]any)["values"].(map[string]any)["NGDPD"].(map[string]any)["USA"].(map[string]any)
			if values["2024"] != json.Number("29.2") {
				t.Errorf("expected json.Number 29.2, got %#v", values["2024"])
			}
		})
	}
}

func TestDecodeJSON_NotJSON(t *testing.T) {
	var out any
	err := DecodeJSON([]byte("<html>maintenance</html>"), &out)
	if !errors.Is(err, ErrNotJSON) {
		t.Errorf("expected ErrNotJSON, got %v", err)
	}
}

func TestGet_HonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(Options{Retry: fastRetry()})
	if _, err := c.Get(ctx, srv.URL, cache.Data, nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestGet_RejectedBodiesAreNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write([]byte(`{"Note":"call frequency exceeded"}`))
			return
		}
		w.Write([]byte(`{"series":{"2020":1}}`))
	}))
	defer srv.Close()

	errThrottled := errors.New("throttled")
	check := func(body []byte) error {
		if strings.Contains(string(body), "Note") {
			return errThrottled
		}
		return nil
	}
	c := New(Options{Retry: fastRetry(), Cache: cache.New(time.Hour, time.Hour, nil, cache.NewMemoryStore(10, time.Hour))})

	if _, err := c.Get(context.Background(), srv.URL, cache.Data, check); !errors.Is(err, errThrottled) {
		t.Fatalf("expected check error, got %v", err)
	}
	for i := 0; i < 2; i++ {
		body, err := c.Get(context.Background(), srv.URL, cache.Data, check)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(body), "series") {
			t.Fatalf("unexpected body: %s", body)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 upstream calls (rejected body then cached data), got %d", n)
	}
}

func TestGet_RefetchesCachedBodyFailingCheck(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(10, time.Hour)
	c := New(Options{Retry: fastRetry(), Cache: cache.New(time.Hour, time.Hour, nil, store)})
	store.Set(cache.Key(srv.URL), []byte(`{"Note":"stale"}`), time.Hour)

	check := func(body []byte) error {
		if strings.Contains(string(body), "Note") {
			return errors.New("throttled")
		}
		return nil
	}
	body, err := c.Get(context.Background(), srv.URL, cache.Data, check)
	if err != nil || string(body) != `{"ok":true}` {
		t.Fatalf("expected fresh body, got %q %v", body, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestGet_HonoursRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(Options{Retry: fastRetry()})
	start := time.Now()
	if _, err := c.Get(context.Background(), srv.URL, cache.Data, nil); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("retried after %v, want the requested 1s", elapsed)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
}

func TestGet_CapsRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	retry := fastRetry()
	retry.MaxAttempts = 2
	retry.MaxRetryAfter = 10 * time.Millisecond
	c := New(Options{Retry: retry})
	start := time.Now()
	if _, err := c.Get(context.Background(), srv.URL, cache.Data, nil); !IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("expected 503 HTTPError, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("waited %v despite the cap", elapsed)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{"soon", 0},
		{time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat), 0},
	}
	for _, tc := range tests {
		resp := &http.Response{Header: http.Header{}}
		if tc.header != "" {
			resp.Header.Set("Retry-After", tc.header)
		}
		if got := ParseRetryAfter(resp); got != tc.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}

	future := &http.Response{Header: http.Header{}}
	future.Header.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))
	if got := ParseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Errorf("ParseRetryAfter(date) = %v", got)
	}
}
