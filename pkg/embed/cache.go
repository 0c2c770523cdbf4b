package embed

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheOptions configures the persistent embedding cache.
type CacheOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	// Useful for testing with a real badger engine.
	InMemory bool

	// TTL expires cached vectors after the given duration.
	// Zero means entries never expire.
	TTL time.Duration

	// Logger sets the badger logger. If nil, a quiet logger is used that
	// only reports warnings and errors.
	Logger badger.Logger
}

// Cache wraps an [Embedder] with a persistent text→vector cache.
//
// Vectors are keyed by (model, sha256 of text), so the same cache directory
// can be shared across models without collisions. Cache hits skip the remote
// API entirely; remote billing only accrues on misses.
type Cache struct {
	inner  Embedder
	db     *badger.DB
	prefix []byte
	model  string
	ttl    time.Duration
}

var _ Embedder = (*Cache)(nil)

// cacheEntry is the msgpack-encoded value stored per text.
type cacheEntry struct {
	Vector    []float32 `msgpack:"vector"`
	Model     string    `msgpack:"model"`
	CreatedAt int64     `msgpack:"created_at"`
}

// NewCache creates a persistent cache around inner.
//
// If inner exposes a Model() string method, the model identifier becomes
// part of every cache key; otherwise keys share the "unknown" namespace.
func NewCache(inner Embedder, opts CacheOptions) (*Cache, error) {
	if inner == nil {
		return nil, errors.New("embed: nil inner embedder")
	}
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("embed: CacheOptions.Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("embed: open cache: %w", err)
	}

	model := "unknown"
	if m, ok := inner.(interface{ Model() string }); ok {
		model = m.Model()
	}

	return &Cache{
		inner:  inner,
		db:     db,
		prefix: []byte("emb:" + model + ":"),
		model:  model,
		ttl:    opts.TTL,
	}, nil
}

// Embed returns the cached vector for text, calling the inner embedder on a miss.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	vec, ok, err := c.lookup(text)
	if err != nil {
		return nil, fmt.Errorf("embed: cache read: %w", err)
	}
	if ok {
		return vec, nil
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.store(text, vec); err != nil {
		return nil, fmt.Errorf("embed: cache write: %w", err)
	}
	return vec, nil
}

// EmbedBatch returns vectors for multiple texts, calling the inner embedder
// once for the subset of texts not already cached.
func (c *Cache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	result := make([][]float32, len(texts))
	var missIdx []int
	for i, text := range texts {
		vec, ok, err := c.lookup(text)
		if err != nil {
			return nil, fmt.Errorf("embed: cache read: %w", err)
		}
		if ok {
			result[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
	}
	if len(missIdx) == 0 {
		return result, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}
	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	now := time.Now().Unix()
	for j, i := range missIdx {
		result[i] = vecs[j]
		data, err := msgpack.Marshal(cacheEntry{Vector: vecs[j], Model: c.model, CreatedAt: now})
		if err != nil {
			return nil, fmt.Errorf("embed: cache encode: %w", err)
		}
		entry := badger.NewEntry(c.key(missTexts[j]), data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		if err := wb.SetEntry(entry); err != nil {
			return nil, fmt.Errorf("embed: cache write: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("embed: cache write: %w", err)
	}
	return result, nil
}

// Dimension returns the inner embedder's vector dimensionality.
func (c *Cache) Dimension() int {
	return c.inner.Dimension()
}

// Close releases the underlying badger database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	k := make([]byte, 0, len(c.prefix)+len(sum))
	k = append(k, c.prefix...)
	k = append(k, sum[:]...)
	return k
}

// lookup reports whether a usable vector is cached for text.
// A corrupt entry counts as a miss and is overwritten by the next store.
func (c *Cache) lookup(text string) ([]float32, bool, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(text))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry cacheEntry
	if err := msgpack.Unmarshal(val, &entry); err != nil {
		return nil, false, nil // treat malformed entries as misses
	}
	return entry.Vector, true, nil
}

func (c *Cache) store(text string, vec []float32) error {
	data, err := msgpack.Marshal(cacheEntry{Vector: vec, Model: c.model, CreatedAt: time.Now().Unix()})
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(c.key(text), data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// quietLogger suppresses badger's debug and info output.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
