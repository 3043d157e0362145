package cache

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestKey_StripsCredentials(t *testing.T) {
	a := Key("https://www.alphavantage.co/query?function=TIME_SERIES_DAILY&symbol=IBM&apikey=secret1")
	b := Key("https://www.alphavantage.co/query?function=TIME_SERIES_DAILY&symbol=IBM&apikey=secret2")
	if a != b {
		t.Error("expected keys differing only by apikey to match")
	}
	c := Key("https://www.alphavantage.co/query?function=TIME_SERIES_DAILY&symbol=MSFT&apikey=secret1")
	if a == c {
		t.Error("expected different symbols to produce different keys")
	}
	if !strings.HasPrefix(a, "http:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	m := NewMemoryStore(10, time.Hour)
	if err := m.Set("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, _, ok := m.Get("k"); ok {
		t.Error("expected entry to expire")
	}

	m.Set("k2", []byte("v2"), time.Hour)
	got, _, ok := m.Get("k2")
	if !ok || string(got) != "v2" {
		t.Errorf("expected hit with v2, got %q %v", got, ok)
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	m := NewMemoryStore(2, time.Hour)
	m.Set("a", []byte("1"), time.Hour)
	m.Set("b", []byte("2"), time.Hour)
	m.Set("c", []byte("3"), time.Hour)
	if _, _, ok := m.Get("a"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", m.Len())
	}
}

func TestCompressor_RoundTrip(t *testing.T) {
	c, err := NewCompressor(3)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	src := bytes.Repeat([]byte(`{"date":"2020-01-01","value":1.5},`), 200)
	packed := c.Compress(src)
	if len(packed) >= len(src) {
		t.Errorf("expected compression, got %d >= %d", len(packed), len(src))
	}
	out, err := c.Decompress(packed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, src) {
		t.Error("round trip mismatch")
	}
}

func TestDiskStore_InMemory(t *testing.T) {
	d, err := NewDiskStore("", 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if _, _, ok := d.Get("missing"); ok {
		t.Error("expected miss")
	}
	if err := d.Set("k", []byte(`{"series":{}}`), time.Hour); err != nil {
		t.Fatal(err)
	}
	got, remaining, ok := d.Get("k")
	if !ok || string(got) != `{"series":{}}` {
		t.Errorf("expected stored payload, got %q %v", got, ok)
	}
	if remaining <= 0 || remaining > time.Hour {
		t.Errorf("expected remaining ttl within an hour, got %v", remaining)
	}
	if err := d.CollectGarbage(); err != nil {
		t.Errorf("unexpected gc error: %v", err)
	}
}

func TestCache_BackfillsFasterTier(t *testing.T) {
	mem := NewMemoryStore(10, time.Hour)
	slow := NewMemoryStore(10, time.Hour)
	slow.Set("k", []byte("v"), time.Hour)

	c := New(time.Hour, 2*time.Hour, nil, mem, slow)
	got, ok := c.Get("k", Data)
	if !ok || string(got) != "v" {
		t.Fatalf("expected hit from slow tier, got %q %v", got, ok)
	}
	if _, _, ok := mem.Get("k"); !ok {
		t.Error("expected fast tier to be backfilled")
	}
}

func TestCache_BackfillKeepsRemainingTTL(t *testing.T) {
	mem := NewMemoryStore(10, time.Hour)
	slow := NewMemoryStore(10, time.Hour)
	// written long ago: only a minute of its lifetime is left
	slow.Set("k", []byte("v"), time.Minute)

	c := New(time.Hour, 2*time.Hour, nil, mem, slow)
	if _, ok := c.Get("k", Data); !ok {
		t.Fatal("expected hit from slow tier")
	}
	_, remaining, ok := mem.Get("k")
	if !ok {
		t.Fatal("expected fast tier to be backfilled")
	}
	if remaining > time.Minute {
		t.Errorf("backfilled entry lives %v, want at most the slow tier's minute", remaining)
	}
}

func TestDiskStore_BackfillKeepsRemainingTTL(t *testing.T) {
	d, err := NewDiskStore("", 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	mem := NewMemoryStore(10, time.Hour)
	c := New(24*time.Hour, 48*time.Hour, nil, mem, d)
	defer c.Close()

	if err := d.Set("k", []byte("v"), 10*time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k", Data); !ok {
		t.Fatal("expected hit from disk tier")
	}
	_, remaining, ok := mem.Get("k")
	if !ok {
		t.Fatal("expected memory tier to be backfilled")
	}
	if remaining > 10*time.Minute {
		t.Errorf("backfilled entry lives %v, want at most 10m", remaining)
	}
}

func TestCache_TTLDefaults(t *testing.T) {
	c := New(0, 0, nil)
	if c.TTL(Data) != DefaultDataTTL {
		t.Errorf("expected data ttl %v, got %v", DefaultDataTTL, c.TTL(Data))
	}
	if c.TTL(Metadata) != DefaultMetadataTTL {
		t.Errorf("expected metadata ttl %v, got %v", DefaultMetadataTTL, c.TTL(Metadata))
	}
}
