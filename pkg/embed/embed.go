// Package embed provides a text embedding interface and remote API implementations.
//
// An Embedder converts text into dense vector representations (embeddings)
// used by the search engine to score stored vectors against a query.
//
// # Implementations
//
//   - [OpenAI] — OpenAI text-embedding-3-small / text-embedding-3-large,
//     also usable with any OpenAI-compatible provider via WithBaseURL
//   - [Gemini] — Google Gemini embedding models
//   - [Cache] — a persistent badger-backed decorator around another Embedder
//   - [Static] — a deterministic in-process embedder for tests and offline runs
//
// # Quick Start
//
//	e := embed.NewOpenAI("sk-xxx", embed.WithModel(embed.ModelOpenAI3Small))
//	vec, err := e.Embed(ctx, "hello world")
//
//	vecs, err := e.EmbedBatch(ctx, []string{"hello", "world"})
package embed

import (
	"context"
	"errors"
)

// Embedder converts text into dense float32 vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embedding vectors for multiple texts.
	// Implementations may split large batches into smaller API calls
	// transparently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int
}

// Common errors.
var (
	// ErrEmptyInput is returned when the input text is empty.
	ErrEmptyInput = errors.New("embed: empty input")
)
