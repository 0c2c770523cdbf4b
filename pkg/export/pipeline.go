package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/vecdump/vecdump/pkg/store"
)

// FetchOptions tunes how a batch of keys resolves into entries.
type FetchOptions struct {
	// EmbeddingField is the hash field decoded as a packed vector.
	// Empty means DefaultEmbeddingField.
	EmbeddingField string

	// CollectionLimit caps exported list and sorted-set elements.
	// Zero means DefaultCollectionLimit.
	CollectionLimit int64
}

func (o FetchOptions) embeddingField() string {
	if o.EmbeddingField == "" {
		return DefaultEmbeddingField
	}
	return o.EmbeddingField
}

func (o FetchOptions) collectionLimit() int64 {
	if o.CollectionLimit <= 0 {
		return DefaultCollectionLimit
	}
	return o.CollectionLimit
}

// FetchBatch resolves keys into manifest entries, preserving input order,
// with exactly two pipelined round trips: one for the type of every key,
// one for the values through type-directed accessors. Lists and sorted
// sets are truncated to the collection limit; keys that vanished since the
// scan come back as type "none" with a null value. Any other command
// failure aborts the batch.
func FetchBatch(ctx context.Context, c store.Client, keys []string, opts FetchOptions) ([]Entry, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	field := opts.embeddingField()
	limit := opts.collectionLimit()

	pipe := c.Pipeline()
	types := make([]*store.TypeCmd, len(keys))
	for i, key := range keys {
		types[i] = pipe.Type(key)
	}
	if err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("export: fetch types: %w", err)
	}

	entries := make([]Entry, len(keys))
	resolvers := make([]func() (any, error), len(keys))
	pipe = c.Pipeline()
	for i, key := range keys {
		typ, err := types[i].Result()
		if err != nil {
			return nil, fmt.Errorf("export: type of %q: %w", key, err)
		}
		entries[i] = Entry{Key: key, Type: typ}

		switch typ {
		case store.TypeString:
			cmd := pipe.Get(key)
			resolvers[i] = func() (any, error) {
				s, err := cmd.Result()
				if err != nil {
					return nil, err
				}
				return projectValue(s), nil
			}
		case store.TypeHash:
			cmd := pipe.HGetAll(key)
			resolvers[i] = func() (any, error) {
				fields, err := cmd.Result()
				if err != nil {
					return nil, err
				}
				return projectHash(fields, field), nil
			}
		case store.TypeList:
			cmd := pipe.LRange(key, 0, limit-1)
			resolvers[i] = func() (any, error) {
				elems, err := cmd.Result()
				if err != nil {
					return nil, err
				}
				return projectStrings(elems), nil
			}
		case store.TypeSet:
			cmd := pipe.SMembers(key)
			resolvers[i] = func() (any, error) {
				members, err := cmd.Result()
				if err != nil {
					return nil, err
				}
				return projectStrings(members), nil
			}
		case store.TypeZSet:
			cmd := pipe.ZRangeWithScores(key, 0, limit-1)
			resolvers[i] = func() (any, error) {
				zs, err := cmd.Result()
				if err != nil {
					return nil, err
				}
				return projectZs(zs), nil
			}
		default:
			// TypeNone and unrecognized types fall back to GET. A key
			// that vanished resolves to a null value.
			cmd := pipe.Get(key)
			resolvers[i] = func() (any, error) {
				s, err := cmd.Result()
				if errors.Is(err, store.ErrNil) {
					return nil, nil
				}
				if err != nil {
					return nil, err
				}
				return projectValue(s), nil
			}
		}
	}
	if err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("export: fetch values: %w", err)
	}

	for i, resolve := range resolvers {
		v, err := resolve()
		if err != nil {
			return nil, fmt.Errorf("export: value of %q: %w", keys[i], err)
		}
		entries[i].Value = v
	}
	return entries, nil
}
