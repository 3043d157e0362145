package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Class selects the TTL a cached response gets.
type Class string

const (
	// Data is time-series payloads, refreshed daily.
	Data Class = "data"
	// Metadata is catalog-like payloads that rarely change.
	Metadata Class = "metadata"
)

const (
	DefaultDataTTL     = 24 * time.Hour
	DefaultMetadataTTL = 7 * 24 * time.Hour
)

// Store is one cache tier. Get also reports the entry's remaining
// lifetime, 0 when the tier does not know it.
type Store interface {
	Get(key string) ([]byte, time.Duration, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Close() error
}

// Cache layers stores from fastest to slowest. A hit in a slower tier is
// copied into the faster ones for the rest of its lifetime.
type Cache struct {
	stores []Store
	ttl    map[Class]time.Duration
	logger *zap.Logger
}

// New creates a Cache over the given tiers. Zero TTLs fall back to defaults.
func New(dataTTL, metadataTTL time.Duration, logger *zap.Logger, stores ...Store) *Cache {
	if dataTTL <= 0 {
		dataTTL = DefaultDataTTL
	}
	if metadataTTL <= 0 {
		metadataTTL = DefaultMetadataTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		stores: stores,
		ttl:    map[Class]time.Duration{Data: dataTTL, Metadata: metadataTTL},
		logger: logger,
	}
}

// TTL returns the lifetime for a class.
func (c *Cache) TTL(class Class) time.Duration {
	if d, ok := c.ttl[class]; ok {
		return d
	}
	return c.ttl[Data]
}

// Get looks the key up tier by tier.
func (c *Cache) Get(key string, class Class) ([]byte, bool) {
	for i, s := range c.stores {
		v, remaining, ok := s.Get(key)
		if !ok {
			continue
		}
		ttl := c.TTL(class)
		if remaining > 0 && remaining < ttl {
			ttl = remaining
		}
		for j := 0; j < i; j++ {
			if err := c.stores[j].Set(key, v, ttl); err != nil {
				c.logger.Warn("cache backfill failed", zap.Error(err))
			}
		}
		return v, true
	}
	return nil, false
}

// Set writes to every tier. Failures are logged, never returned: a cache
// problem must not fail a fetch.
func (c *Cache) Set(key string, class Class, value []byte) {
	for _, s := range c.stores {
		if err := s.Set(key, value, c.TTL(class)); err != nil {
			c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Close closes every tier and returns the first error.
func (c *Cache) Close() error {
	var first error
	for _, s := range c.stores {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var secretParams = []string{"apikey", "api_key", "key", "token"}

// Key derives a cache key from a request URL with credentials removed.
func Key(rawURL string) string {
	normalized := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		q := u.Query()
		for name := range q {
			for _, secret := range secretParams {
				if strings.EqualFold(name, secret) {
					q.Del(name)
				}
			}
		}
		u.RawQuery = q.Encode()
		normalized = u.String()
	}
	sum := sha256.Sum256([]byte(normalized))
	return "http:" + hex.EncodeToString(sum[:])
}
