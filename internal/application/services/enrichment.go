package services

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// Document relevance blends semantic similarity with entity and topic
// overlap; only documents above the floor are attached.
const (
	docSimilarityWeight    = 0.6
	docEntityOverlapWeight = 0.2
	docTopicOverlapWeight  = 0.15
	docRelevanceFloor      = 0.1
	maxRelevantDocuments   = 3
	docContentWindow       = 5000
)

func (s *AnalyzerService) attachMemory(ctx context.Context, cm *models.ContextMap, userID string) {
	if s.memory == nil || cm.ConversationID == "" {
		return
	}
	mem, err := s.memory.GetMemory(ctx, cm.ConversationID, userID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", cm.ConversationID).Msg("memory unavailable during analysis")
		return
	}
	if mem != nil {
		cm.Memory = mem.View()
	}
}

// enrichWithDocuments attaches the conversation's documents and scores each
// against the message. Only documents clearing the relevance floor are
// promoted to relevantDocuments.
func (s *AnalyzerService) enrichWithDocuments(ctx context.Context, cm *models.ContextMap) {
	if s.documents == nil || cm.ConversationID == "" {
		return
	}
	docs, err := s.documents.GetConversationDocuments(ctx, cm.ConversationID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", cm.ConversationID).Msg("documents unavailable during analysis")
		return
	}
	if len(docs) == 0 {
		return
	}

	available := make([]*models.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		available = append(available, &models.DocumentInfo{
			ID:      doc.ID,
			Name:    doc.Name,
			Type:    doc.Type,
			Summary: doc.Summary,
		})
	}
	cm.AvailableDocuments = available

	msgVec := s.semantic.Vectorize(ctx, cm.CurrentMessage)
	var relevant []*models.DocumentInfo
	for _, doc := range docs {
		content := truncateRunes(doc.Content, docContentWindow)
		similarity := s.semantic.Similarity(msgVec, s.semantic.Vectorize(ctx, content))
		lowerContent := strings.ToLower(content)

		relevance := docSimilarityWeight*similarity +
			docEntityOverlapWeight*overlapRatio(entityNames(cm.Entities), lowerContent) +
			docTopicOverlapWeight*overlapRatio(cm.TopicNames(), lowerContent)
		if relevance <= docRelevanceFloor {
			continue
		}
		relevant = append(relevant, &models.DocumentInfo{
			ID:        doc.ID,
			Name:      doc.Name,
			Type:      doc.Type,
			Summary:   doc.Summary,
			Relevance: relevance,
		})
	}
	sort.Slice(relevant, func(i, j int) bool {
		if relevant[i].Relevance != relevant[j].Relevance {
			return relevant[i].Relevance > relevant[j].Relevance
		}
		return relevant[i].Name < relevant[j].Name
	})
	if len(relevant) > maxRelevantDocuments {
		relevant = relevant[:maxRelevantDocuments]
	}
	cm.RelevantDocuments = relevant
}

func entityNames(entities []*models.Entity) []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return names
}

// overlapRatio is the fraction of names that appear in the content.
func overlapRatio(names []string, lowerContent string) float64 {
	if len(names) == 0 {
		return 0
	}
	hits := 0
	for _, name := range names {
		if name != "" && strings.Contains(lowerContent, strings.ToLower(name)) {
			hits++
		}
	}
	return float64(hits) / float64(len(names))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
