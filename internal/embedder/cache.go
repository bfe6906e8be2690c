package embedder

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// metaModelKey stores the provider model identifier the cached vectors were
// produced with. A model change invalidates every entry.
var metaModelKey = []byte("!meta:model")

// Cache is a persistent content-addressed embedding cache backed by
// BadgerDB. Keys are document-content fingerprints (SHA-256 hex), so
// identical text shares one entry regardless of which document or path it
// came from.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter bridges badger's logger interface onto slog.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenCache opens (or creates) the cache at dir and reconciles it against the
// given model identifier: if the stored model differs, all entries are
// dropped before use.
func OpenCache(dir, model string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}

	c := &Cache{db: db, logger: slog.Default()}
	if err := c.reconcileModel(model); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) reconcileModel(model string) error {
	var stored string
	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(metaModelKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			stored = string(val)
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("reading cache model marker: %w", err)
	}

	if stored != "" && stored != model {
		c.logger.Info("embedding model changed, dropping cache",
			slog.String("old", stored), slog.String("new", model))
		if err := c.db.DropAll(); err != nil {
			return fmt.Errorf("dropping stale cache: %w", err)
		}
	}

	return c.db.Update(func(tx *badger.Txn) error {
		return tx.Set(metaModelKey, []byte(model))
	})
}

// Get returns the cached vector for a content fingerprint.
func (c *Cache) Get(fingerprint string) ([]float32, bool, error) {
	var vector []float32
	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(fingerprint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vector = decodeVector(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return vector, true, nil
}

// Put stores a vector under a content fingerprint.
func (c *Cache) Put(fingerprint string, vector []float32) error {
	err := c.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(fingerprint), encodeVector(vector))
	})
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Len counts cached vectors, excluding the model marker.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if string(iter.Item().Key()) != string(metaModelKey) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// encodeVector packs a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian float32 vector.
func decodeVector(data []byte) []float32 {
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
