package embed

import (
	"context"
	"hash/fnv"
	"math"
)

// Static is a deterministic in-process embedder for tests and offline runs.
//
// Texts registered in the table return their fixed vectors. Unknown texts
// fall back to a unit-length pseudo-vector derived from the text hash, so
// the same text always maps to the same vector without any remote calls.
type Static struct {
	dim     int
	vectors map[string][]float32
}

var _ Embedder = (*Static)(nil)

// NewStatic creates a static embedder producing dim-length vectors.
// The table is optional; registered vectors are returned verbatim and
// should have dim elements.
func NewStatic(dim int, vectors map[string][]float32) *Static {
	if dim <= 0 {
		dim = 4
	}
	return &Static{dim: dim, vectors: vectors}
}

// Embed returns the registered vector for text, or a deterministic
// hash-derived unit vector when text is not in the table.
func (s *Static) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if vec, ok := s.vectors[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
	return hashVector(text, s.dim), nil
}

// EmbedBatch calls Embed for each text.
func (s *Static) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimension returns the configured vector dimensionality.
func (s *Static) Dimension() int {
	return s.dim
}

// hashVector expands a text hash into a unit-length vector.
func hashVector(text string, dim int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := float64(h.Sum64())

	vec := make([]float32, dim)
	var sum float64
	for i := range vec {
		v := math.Sin(seed * float64(i+1))
		vec[i] = float32(v)
		sum += v * v
	}
	if sum > 0 {
		norm := 1 / math.Sqrt(sum)
		for i := range vec {
			vec[i] *= float32(norm)
		}
	}
	return vec
}
