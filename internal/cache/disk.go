package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// DiskStore persists responses in badger with native per-entry TTL.
// Payloads are zstd-compressed.
type DiskStore struct {
	db         *badger.DB
	compressor *Compressor
	logger     *zap.Logger
}

// NewDiskStore opens (or creates) a badger directory. An empty dir keeps
// everything in memory, which tests use.
func NewDiskStore(dir string, compressionLevel int, logger *zap.Logger) (*DiskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	compressor, err := NewCompressor(compressionLevel)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("disk cache opened", zap.String("dir", dir))
	return &DiskStore{db: db, compressor: compressor, logger: logger}, nil
}

func (d *DiskStore) Get(key string) ([]byte, time.Duration, bool) {
	var (
		compressed []byte
		remaining  time.Duration
	)
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		// ExpiresAt is unix seconds, 0 for entries without a TTL
		if at := item.ExpiresAt(); at > 0 {
			remaining = max(time.Until(time.Unix(int64(at), 0)), time.Second)
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			d.logger.Warn("disk cache read failed", zap.Error(err))
		}
		return nil, 0, false
	}
	value, err := d.compressor.Decompress(compressed)
	if err != nil {
		d.logger.Warn("disk cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, 0, false
	}
	return value, remaining, true
}

func (d *DiskStore) Set(key string, value []byte, ttl time.Duration) error {
	payload := d.compressor.Compress(value)
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), payload).WithTTL(ttl))
	})
}

// CollectGarbage reclaims value-log space; badger returns ErrNoRewrite when
// there was nothing to do.
func (d *DiskStore) CollectGarbage() error {
	err := d.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

func (d *DiskStore) Close() error {
	d.compressor.Close()
	return d.db.Close()
}
