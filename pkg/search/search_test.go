package search

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/vecdump/vecdump/pkg/embed"
	"github.com/vecdump/vecdump/pkg/store"
	"github.com/vecdump/vecdump/pkg/vector"
)

// newTestEngine builds an engine over an in-memory store with a static
// embedder that maps query texts to fixed 2D directions.
func newTestEngine(t *testing.T, m *store.Memory, opts Options) *Engine {
	t.Helper()
	emb := embed.NewStatic(2, map[string][]float32{
		"east":  {1, 0},
		"north": {0, 1},
	})
	return New(m, emb, opts)
}

// seedHash stores a hash with a packed embedding and optional description.
func seedHash(m *store.Memory, key string, vec []float32, desc string) {
	fields := map[string]string{"embedding": string(vector.Encode(vec))}
	if desc != "" {
		fields["description"] = desc
	}
	m.HSet(key, fields)
}

func TestSearchRanking(t *testing.T) {
	m := store.NewMemory()
	seedHash(m, "doc:a", []float32{1, 0}, "points east")
	seedHash(m, "doc:b", []float32{0, 1}, "points north")
	seedHash(m, "doc:c", []float32{1, 0}, "also east")

	e := newTestEngine(t, m, Options{})

	results, err := e.Search(context.Background(), "east", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	// Both exact matches rank first; ties keep enumeration order.
	if results[0].Key != "doc:a" || results[1].Key != "doc:c" {
		t.Fatalf("keys = %q, %q; want doc:a, doc:c", results[0].Key, results[1].Key)
	}
	for _, r := range results {
		if math.Abs(r.Similarity-1) > 1e-9 {
			t.Fatalf("%s similarity = %v, want 1", r.Key, r.Similarity)
		}
	}

	// With k=3 the orthogonal vector comes last at similarity 0.
	results, err = e.Search(context.Background(), "east", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[2].Key != "doc:b" {
		t.Fatalf("results[2].Key = %q, want doc:b", results[2].Key)
	}
	if math.Abs(results[2].Similarity) > 1e-9 {
		t.Fatalf("orthogonal similarity = %v, want 0", results[2].Similarity)
	}
}

func TestSearchSkipsUnscorableKeys(t *testing.T) {
	m := store.NewMemory()
	m.Set("plain", "just a string")
	m.RPush("queue", "a", "b")
	m.HSet("hash:no-field", map[string]string{"name": "no vector here"})
	seedHash(m, "hash:scored", []float32{1, 0}, "")

	e := newTestEngine(t, m, Options{})

	results, err := e.Search(context.Background(), "east", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Key != "hash:scored" {
		t.Fatalf("key = %q, want hash:scored", results[0].Key)
	}
}

func TestSearchDescription(t *testing.T) {
	m := store.NewMemory()
	seedHash(m, "doc:with", []float32{1, 0}, "described")
	seedHash(m, "doc:without", []float32{1, 0}, "")

	e := newTestEngine(t, m, Options{})

	results, err := e.Search(context.Background(), "east", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Description != "described" {
		t.Fatalf("Description = %q, want %q", results[0].Description, "described")
	}
	if results[1].Description != "" {
		t.Fatalf("Description = %q, want empty", results[1].Description)
	}
}

func TestSearchCustomFields(t *testing.T) {
	m := store.NewMemory()
	m.HSet("doc:a", map[string]string{
		"vec":   string(vector.Encode([]float32{1, 0})),
		"title": "custom title",
	})

	e := newTestEngine(t, m, Options{EmbeddingField: "vec", DescriptionField: "title"})

	results, err := e.Search(context.Background(), "east", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Description != "custom title" {
		t.Fatalf("Description = %q, want %q", results[0].Description, "custom title")
	}
}

func TestSearchNoEmbedder(t *testing.T) {
	e := New(store.NewMemory(), nil, Options{})

	_, err := e.Search(context.Background(), "east", 5)
	if !errors.Is(err, ErrNoEmbedder) {
		t.Fatalf("err = %v, want ErrNoEmbedder", err)
	}
}

func TestSearchInvalidK(t *testing.T) {
	m := store.NewMemory()
	e := newTestEngine(t, m, Options{})

	for _, k := range []int{0, -1} {
		if _, err := e.Search(context.Background(), "east", k); !errors.Is(err, ErrInvalidK) {
			t.Fatalf("k=%d: err = %v, want ErrInvalidK", k, err)
		}
	}
}

func TestSearchMalformedEmbeddingAborts(t *testing.T) {
	m := store.NewMemory()
	seedHash(m, "doc:good", []float32{1, 0}, "")
	m.HSet("doc:bad", map[string]string{"embedding": "abc"}) // 3 bytes, not 4-aligned

	e := newTestEngine(t, m, Options{})

	results, err := e.Search(context.Background(), "east", 5)
	if !errors.Is(err, vector.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if !strings.Contains(err.Error(), "doc:bad") {
		t.Fatalf("err = %v, want key in message", err)
	}
	if results != nil {
		t.Fatalf("results = %v, want nil on abort", results)
	}
}

func TestSearchFewerCandidatesThanK(t *testing.T) {
	m := store.NewMemory()
	seedHash(m, "doc:a", []float32{1, 0}, "")
	seedHash(m, "doc:b", []float32{0, 1}, "")

	e := newTestEngine(t, m, Options{})

	results, err := e.Search(context.Background(), "east", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
}

func TestSearchEmptyStore(t *testing.T) {
	e := newTestEngine(t, store.NewMemory(), Options{})

	results, err := e.Search(context.Background(), "east", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0", len(results))
	}
}

func TestSearchDimensionMismatchStillScores(t *testing.T) {
	m := store.NewMemory()
	seedHash(m, "doc:threed", []float32{1, 0, 0}, "") // query is 2D

	e := newTestEngine(t, m, Options{})

	results, err := e.Search(context.Background(), "east", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	// Scored over the shared prefix, not rejected.
	if math.Abs(results[0].Similarity-1) > 1e-9 {
		t.Fatalf("similarity = %v, want 1", results[0].Similarity)
	}
}

// failingEmbedder returns a fixed error from every call.
type failingEmbedder struct {
	err error
}

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, f.err }
func (f *failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, f.err
}
func (f *failingEmbedder) Dimension() int { return 0 }

func TestSearchEmbedderError(t *testing.T) {
	wantErr := errors.New("api quota exceeded")
	e := New(store.NewMemory(), &failingEmbedder{err: wantErr}, Options{})

	_, err := e.Search(context.Background(), "east", 5)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
	if !strings.Contains(err.Error(), "embed query") {
		t.Fatalf("err = %v, want embed query context", err)
	}
}

func TestSearchCancelled(t *testing.T) {
	m := store.NewMemory()
	seedHash(m, "doc:a", []float32{1, 0}, "")

	e := newTestEngine(t, m, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Search(ctx, "east", 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
