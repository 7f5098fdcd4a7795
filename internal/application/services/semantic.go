package services

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// SemanticService adapts the embedding client into the vector capability
// the pipeline consumes. Embedding failures surface as nil vectors, and
// similarity over nil or zero-norm vectors is 0, so callers can always
// proceed and fall back to occurrence×confidence ranking.
type SemanticService struct {
	embedding ports.EmbeddingService
}

func NewSemanticService(embedding ports.EmbeddingService) *SemanticService {
	return &SemanticService{embedding: embedding}
}

func (s *SemanticService) Vectorize(ctx context.Context, text string) []float32 {
	if text == "" {
		return nil
	}
	result, err := s.embedding.Embed(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("vectorization failed, continuing without embedding")
		return nil
	}
	if result == nil {
		return nil
	}
	return result.Embedding
}

func (s *SemanticService) VectorizeBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors
	}
	results, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		log.Warn().Err(err).Int("count", len(texts)).Msg("batch vectorization failed, continuing without embeddings")
		return vectors
	}
	for i, r := range results {
		if i >= len(vectors) {
			break
		}
		if r != nil {
			vectors[i] = r.Embedding
		}
	}
	return vectors
}

// Similarity returns the cosine similarity of two vectors clamped to
// [0,1]. Nil, zero-norm, or mismatched vectors score 0.
func (s *SemanticService) Similarity(v1, v2 []float32) float64 {
	if len(v1) == 0 || len(v2) == 0 || len(v1) != len(v2) {
		return 0
	}

	var dot, norm1, norm2 float64
	for i := range v1 {
		dot += float64(v1[i]) * float64(v2[i])
		norm1 += float64(v1[i]) * float64(v1[i])
		norm2 += float64(v2[i]) * float64(v2[i])
	}
	if norm1 == 0 || norm2 == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(norm1) * math.Sqrt(norm2))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
