package embed_test

import (
	"context"
	"math"
	"testing"

	"github.com/vecdump/vecdump/pkg/embed"
)

func TestStatic_TableHit(t *testing.T) {
	e := embed.NewStatic(4, map[string][]float32{
		"dinosaurs": {1, 0, 0, 0},
		"volcanoes": {0, 1, 0, 0},
	})

	vec, err := e.Embed(context.Background(), "dinosaurs")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{1, 0, 0, 0}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("vec = %v, want %v", vec, want)
		}
	}

	// Mutating the returned slice must not corrupt the table.
	vec[0] = 99
	again, err := e.Embed(context.Background(), "dinosaurs")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if again[0] != 1 {
		t.Fatalf("table entry mutated: %v", again)
	}
}

func TestStatic_FallbackDeterministic(t *testing.T) {
	e := embed.NewStatic(8, nil)

	a1, err := e.Embed(context.Background(), "some unknown text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	a2, err := e.Embed(context.Background(), "some unknown text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(a1) != 8 {
		t.Fatalf("len = %d, want 8", len(a1))
	}
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("same text produced different vectors: %v vs %v", a1, a2)
		}
	}

	b, err := e.Embed(context.Background(), "other text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	same := true
	for i := range a1 {
		if a1[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts produced identical vectors")
	}

	// Fallback vectors are unit length.
	var sum float64
	for _, v := range a1 {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-4 {
		t.Fatalf("norm = %v, want 1", math.Sqrt(sum))
	}
}

func TestStatic_Batch(t *testing.T) {
	e := embed.NewStatic(4, map[string][]float32{"a": {1, 0, 0, 0}})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("len(vecs) = %d, want 2", len(vecs))
	}
	if vecs[0][0] != 1 {
		t.Fatalf("vecs[0] = %v, want table entry", vecs[0])
	}
}

func TestStatic_EmptyInput(t *testing.T) {
	e := embed.NewStatic(4, nil)

	if _, err := e.Embed(context.Background(), ""); err != embed.ErrEmptyInput {
		t.Fatalf("Embed empty: got %v, want ErrEmptyInput", err)
	}
	if _, err := e.EmbedBatch(context.Background(), nil); err != embed.ErrEmptyInput {
		t.Fatalf("EmbedBatch nil: got %v, want ErrEmptyInput", err)
	}
}
