// Package search implements brute-force cosine-similarity search over
// embedding vectors stored in hash fields.
//
// The engine enumerates every key in the store on each query, scores every
// hash that carries an embedding field, and returns the top-k matches.
// There is no index; this trades query cost for zero write amplification
// and is intended for keyspaces up to the low hundreds of thousands.
//
// Search and export must not run concurrently against the same client: the
// underlying connection is owned by whichever operation is active.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vecdump/vecdump/pkg/embed"
	"github.com/vecdump/vecdump/pkg/store"
	"github.com/vecdump/vecdump/pkg/vector"
)

// Default hash field names.
const (
	DefaultEmbeddingField   = "embedding"
	DefaultDescriptionField = "description"
)

var (
	// ErrNoEmbedder is returned when the engine has no embedder to encode
	// the query text.
	ErrNoEmbedder = errors.New("search: embedder unavailable")

	// ErrInvalidK is returned when k is zero or negative.
	ErrInvalidK = errors.New("search: k must be positive")
)

// Result is one ranked match.
type Result struct {
	Key         string  `json:"key"`
	Description string  `json:"description"`
	Similarity  float64 `json:"similarity"`
}

// Options configures an [Engine].
type Options struct {
	// EmbeddingField is the hash field holding the packed vector.
	// Defaults to "embedding".
	EmbeddingField string

	// DescriptionField is the hash field copied into Result.Description.
	// Defaults to "description".
	DescriptionField string

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Engine scores stored vectors against query embeddings.
type Engine struct {
	client   store.Client
	embedder embed.Embedder
	opts     Options
	logger   *slog.Logger
}

// New creates a search engine over client. The embedder may be nil, in
// which case every Search call fails with [ErrNoEmbedder].
func New(client store.Client, embedder embed.Embedder, opts Options) *Engine {
	if opts.EmbeddingField == "" {
		opts.EmbeddingField = DefaultEmbeddingField
	}
	if opts.DescriptionField == "" {
		opts.DescriptionField = DefaultDescriptionField
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:   client,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}
}

// Search embeds query and returns the k stored entries most similar to it,
// in descending similarity order. Keys whose hashes lack the embedding
// field, and keys that are not hashes at all, are skipped. A stored vector
// whose bytes cannot be decoded aborts the search.
//
// Ties are broken by key enumeration order, so equal-similarity results
// come back in a stable order. Fewer than k results are returned when the
// store holds fewer than k scorable vectors.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if e.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	keys, err := e.client.Keys(ctx, "*")
	if err != nil {
		return nil, fmt.Errorf("search: list keys: %w", err)
	}
	e.logger.Debug("search: scoring keyspace", "keys", len(keys), "k", k)

	var results []Result
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		typ, err := e.client.Type(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("search: type of %q: %w", key, err)
		}
		if typ != store.TypeHash {
			continue
		}

		fields, err := e.client.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("search: fields of %q: %w", key, err)
		}
		raw, ok := fields[e.opts.EmbeddingField]
		if !ok {
			continue
		}

		vec, err := vector.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("search: embedding of %q: %w", key, err)
		}
		if len(vec) != len(qvec) {
			// Scored over the shared prefix; see vector.Cosine.
			e.logger.Debug("search: dimension mismatch",
				"key", key, "stored", len(vec), "query", len(qvec))
		}

		results = append(results, Result{
			Key:         key,
			Description: fields[e.opts.DescriptionField],
			Similarity:  vector.Cosine(qvec, vec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
