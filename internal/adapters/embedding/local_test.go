package embedding

import (
	"context"
	"math"
	"testing"
)

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(64)

	a, err := e.Embed(context.Background(), "hola mundo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := e.Embed(context.Background(), "hola mundo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a.Embedding) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(a.Embedding))
	}
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatalf("embeddings differ at index %d: %f vs %f", i, a.Embedding[i], b.Embedding[i])
		}
	}
}

func TestLocalEmbedder_Normalized(t *testing.T) {
	e := NewLocalEmbedder(128)

	result, err := e.Embed(context.Background(), "el proyecto usa kubernetes y docker")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for _, v := range result.Embedding {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %f", norm)
	}
}

func TestLocalEmbedder_DistinctTexts(t *testing.T) {
	e := NewLocalEmbedder(128)

	a, _ := e.Embed(context.Background(), "precio del plan premium")
	b, _ := e.Embed(context.Background(), "problema con la factura")

	same := true
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different texts to produce different embeddings")
	}
}

func TestLocalEmbedder_EmptyText(t *testing.T) {
	e := NewLocalEmbedder(32)

	result, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range result.Embedding {
		if v != 0 {
			t.Fatalf("expected zero vector for empty text, got %f at index %d", v, i)
		}
	}
}

func TestLocalEmbedder_EmbedBatch(t *testing.T) {
	e := NewLocalEmbedder(64)

	results, err := e.EmbedBatch(context.Background(), []string{"uno", "dos", "tres"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	single, _ := e.Embed(context.Background(), "dos")
	for i := range single.Embedding {
		if results[1].Embedding[i] != single.Embedding[i] {
			t.Fatal("batch embedding differs from single embedding for same text")
		}
	}
}

func TestLocalEmbedder_DefaultDimensions(t *testing.T) {
	e := NewLocalEmbedder(0)

	if e.GetDimensions() != 384 {
		t.Errorf("expected default 384 dimensions, got %d", e.GetDimensions())
	}
}

func TestLocalEmbedder_CanceledContext(t *testing.T) {
	e := NewLocalEmbedder(32)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Embed(ctx, "texto"); err == nil {
		t.Error("expected error for canceled context")
	}
}
