package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// LocalEmbedder is a deterministic feature-hashing embedder used when no
// embedding endpoint is configured. Tokens are hashed into d buckets and
// the resulting vector is L2-normalized, so identical texts always map to
// identical vectors and token overlap shows up as cosine similarity. It is
// no substitute for a learned model, but it keeps the semantic pipeline
// functional offline and in tests.
type LocalEmbedder struct {
	dimensions int
}

func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &LocalEmbedder{dimensions: dimensions}
}

func (e *LocalEmbedder) Embed(ctx context.Context, text string) (*ports.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := e.vectorize(text)
	return &ports.EmbeddingResult{
		Embedding:  vec,
		Model:      "local-feature-hash",
		Dimensions: e.dimensions,
	}, nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*ports.EmbeddingResult, error) {
	results := make([]*ports.EmbeddingResult, 0, len(texts))
	for _, text := range texts {
		result, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *LocalEmbedder) GetDimensions() int {
	return e.dimensions
}

func (e *LocalEmbedder) vectorize(text string) []float32 {
	vec := make([]float32, e.dimensions)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()

		bucket := int(sum % uint32(e.dimensions))
		// Sign from a hash bit keeps buckets from only accumulating.
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
		return true
	}
	// Accented Latin letters common in Spanish and Portuguese text.
	return r >= 0x00C0 && r <= 0x017F
}
