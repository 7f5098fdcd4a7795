package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/metrics"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

const (
	// Relevance scoring factor weights
	relevanceBase          = 0.5
	entityWeight           = 0.05
	entityWeightCap        = 0.3
	intensityBonus         = 0.1
	strongPositiveBonus    = 0.1
	strongNegativeBonus    = 0.15
	urgentConfusedBonus    = 0.2
	topicWeight            = 0.05
	topicWeightCap         = 0.2
	longMessageBonus       = 0.15
	longMessageWords       = 50
	strongSentimentScore   = 0.5
	strongTopicConfidence  = 0.6

	// Search scoring weights over the query tokens
	searchUserWeight   = 0.6
	searchBotWeight    = 0.4
	searchEntityWeight = 0.2
	searchScoreFloor   = 0.1
	searchTokenMinLen  = 3

	promotionBonus      = 0.2
	shortTermPruneAge   = 30 * 24 * time.Hour
)

// MemoryService manages the two per-conversation memory tiers. New items
// enter short-term; overflow migrates to long-term when relevance allows,
// and long-term relevance decays as items age.
type MemoryService struct {
	repo ports.MemoryRepository
	ids  ports.IDGenerator

	maxShortTerm       int
	maxLongTerm        int
	decayFactor        float64
	relevanceThreshold float64
}

func NewMemoryService(
	repo ports.MemoryRepository,
	ids ports.IDGenerator,
	maxShortTerm int,
	maxLongTerm int,
	decayFactor float64,
	relevanceThreshold float64,
) *MemoryService {
	return &MemoryService{
		repo:               repo,
		ids:                ids,
		maxShortTerm:       maxShortTerm,
		maxLongTerm:        maxLongTerm,
		decayFactor:        decayFactor,
		relevanceThreshold: relevanceThreshold,
	}
}

// GetMemory loads a conversation's memory, applying age decay to the
// long-term tier and recording the access on every item. Conversations
// without memory yet get an empty one.
func (s *MemoryService) GetMemory(ctx context.Context, conversationID, userID string) (*models.Memory, error) {
	if conversationID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}

	memory, err := s.repo.Load(ctx, conversationID)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.NewMemory(conversationID, userID), nil
		}
		return nil, domain.NewDomainError(err, "failed to load memory")
	}

	now := time.Now()
	kept := memory.LongTerm[:0]
	for _, item := range memory.LongTerm {
		days := now.Sub(item.Timestamp).Hours() / 24
		if days > 0 {
			item.SetRelevance(item.Relevance * math.Pow(s.decayFactor, days))
		}
		if item.Relevance < s.relevanceThreshold {
			continue
		}
		kept = append(kept, item)
	}
	memory.LongTerm = kept

	for _, item := range memory.ShortTerm {
		item.MarkAccessed()
	}
	for _, item := range memory.LongTerm {
		item.MarkAccessed()
	}
	memory.LastAccessed = now
	memory.RecountItems()

	if err := s.repo.Save(ctx, memory); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("persisting memory access failed")
	}
	metrics.MemoryOperationsTotal.WithLabelValues("get").Inc()
	return memory, nil
}

// UpdateMemory scores the item and prepends it to short-term. Overflowing
// items migrate to long-term when relevant enough; long-term is kept sorted
// by relevance and capped.
func (s *MemoryService) UpdateMemory(ctx context.Context, conversationID, userID string, item *models.MemoryItem) error {
	if conversationID == "" {
		return domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}
	if item == nil {
		return domain.NewDomainError(domain.ErrInvalidInput, "memory item is required")
	}

	memory, err := s.repo.Load(ctx, conversationID)
	if err != nil {
		if !domain.IsNotFound(err) {
			return domain.NewDomainError(err, "failed to load memory")
		}
		memory = models.NewMemory(conversationID, userID)
	}

	if item.ID == "" {
		item.ID = s.ids.GenerateMemoryItemID()
	}
	item.SetRelevance(s.computeRelevance(item))

	memory.ShortTerm = append([]*models.MemoryItem{item}, memory.ShortTerm...)
	if len(memory.ShortTerm) > s.maxShortTerm {
		overflow := memory.ShortTerm[s.maxShortTerm:]
		memory.ShortTerm = memory.ShortTerm[:s.maxShortTerm]
		for _, old := range overflow {
			if old.Relevance >= s.relevanceThreshold {
				memory.LongTerm = append(memory.LongTerm, old)
			}
		}
		sortLongTerm(memory.LongTerm)
		if len(memory.LongTerm) > s.maxLongTerm {
			memory.LongTerm = memory.LongTerm[:s.maxLongTerm]
		}
	}

	memory.LastAccessed = time.Now()
	memory.RecountItems()

	if err := s.repo.Save(ctx, memory); err != nil {
		return domain.NewDomainError(err, "failed to save memory")
	}
	metrics.MemoryOperationsTotal.WithLabelValues("update").Inc()
	return nil
}

// computeRelevance scores how worth keeping an exchange is.
func (s *MemoryService) computeRelevance(item *models.MemoryItem) float64 {
	relevance := relevanceBase

	// Factor 1: named entities anchor an exchange to concrete subjects
	entityBonus := float64(len(item.Entities)) * entityWeight
	if entityBonus > entityWeightCap {
		entityBonus = entityWeightCap
	}
	relevance += entityBonus

	// Factor 2: emotional weight
	if item.Sentiment != nil {
		if item.Sentiment.Intensity > 0.5 {
			relevance += intensityBonus
		}
		switch {
		case item.Sentiment.Label == models.SentimentUrgent || item.Sentiment.Label == models.SentimentConfused:
			relevance += urgentConfusedBonus
		case item.Sentiment.Label == models.SentimentPositive && item.Sentiment.Score > strongSentimentScore:
			relevance += strongPositiveBonus
		case item.Sentiment.Label == models.SentimentNegative && item.Sentiment.Score < -strongSentimentScore:
			relevance += strongNegativeBonus
		}
	}

	// Factor 3: confident topics
	topicBonus := 0.0
	for _, topic := range item.Topics {
		if topic.Confidence >= strongTopicConfidence {
			topicBonus += topicWeight
		}
	}
	if topicBonus > topicWeightCap {
		topicBonus = topicWeightCap
	}
	relevance += topicBonus

	// Factor 4: substantial messages carry more context
	if len(strings.Fields(item.UserMessage)) > longMessageWords {
		relevance += longMessageBonus
	}

	if relevance > 1 {
		relevance = 1
	}
	return relevance
}

// SearchMemory matches the query tokens against both tiers. Scores weigh
// user-message hits over bot-response hits, plus a per-entity bonus, all
// scaled by the item's relevance.
func (s *MemoryService) SearchMemory(ctx context.Context, conversationID, query string) ([]*models.MemorySearchResult, error) {
	if conversationID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}
	tokens := searchTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	memory, err := s.repo.Load(ctx, conversationID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, domain.NewDomainError(err, "failed to load memory")
	}

	var results []*models.MemorySearchResult
	for _, item := range append(append([]*models.MemoryItem{}, memory.ShortTerm...), memory.LongTerm...) {
		score := scoreItem(item, tokens)
		if score > searchScoreFloor {
			results = append(results, &models.MemorySearchResult{Item: item, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.ID < results[j].Item.ID
	})
	metrics.MemoryOperationsTotal.WithLabelValues("search").Inc()
	return results, nil
}

func searchTokens(query string) []string {
	var tokens []string
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(token)) > searchTokenMinLen {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func scoreItem(item *models.MemoryItem, tokens []string) float64 {
	lowerUser := strings.ToLower(item.UserMessage)
	lowerBot := strings.ToLower(item.BotResponse)

	userHits, botHits, entityHits := 0, 0, 0
	for _, token := range tokens {
		if strings.Contains(lowerUser, token) {
			userHits++
		}
		if strings.Contains(lowerBot, token) {
			botHits++
		}
		for _, e := range item.Entities {
			if strings.Contains(strings.ToLower(e.Name), token) {
				entityHits++
			}
		}
	}

	total := float64(len(tokens))
	score := searchUserWeight*float64(userHits)/total +
		searchBotWeight*float64(botHits)/total +
		searchEntityWeight*float64(entityHits)
	return score * item.Relevance
}

// DeleteMemory removes a conversation's memory documents. Deleting memory
// that does not exist is not an error.
func (s *MemoryService) DeleteMemory(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}
	if err := s.repo.Delete(ctx, conversationID); err != nil {
		return domain.NewDomainError(err, "failed to delete memory")
	}
	metrics.MemoryOperationsTotal.WithLabelValues("delete").Inc()
	return nil
}

// ResetMemory backs everything up, then deletes every conversation's
// memory. A failed backup aborts the reset.
func (s *MemoryService) ResetMemory(ctx context.Context) error {
	backupPath, err := s.repo.Backup(ctx)
	if err != nil {
		return domain.NewDomainError(err, "backup failed, memory reset aborted")
	}

	ids, err := s.repo.List(ctx)
	if err != nil {
		return domain.NewDomainError(err, "failed to list memories")
	}
	for _, id := range ids {
		if err := s.repo.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("conversation_id", id).Msg("deleting memory during reset failed")
		}
	}
	log.Info().Str("backup", backupPath).Int("conversations", len(ids)).Msg("memory reset complete")
	metrics.MemoryOperationsTotal.WithLabelValues("reset").Inc()
	return nil
}

// PromoteToLongTermMemory moves the given short-term items to long-term
// with a relevance bonus. Returns how many items were promoted.
func (s *MemoryService) PromoteToLongTermMemory(ctx context.Context, conversationID string, itemIDs []string) (int, error) {
	if conversationID == "" {
		return 0, domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}
	if len(itemIDs) == 0 {
		return 0, nil
	}

	memory, err := s.repo.Load(ctx, conversationID)
	if err != nil {
		return 0, domain.NewDomainError(err, "failed to load memory")
	}

	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}

	now := time.Now()
	promoted := 0
	remaining := memory.ShortTerm[:0]
	for _, item := range memory.ShortTerm {
		if !wanted[item.ID] {
			remaining = append(remaining, item)
			continue
		}
		item.SetRelevance(item.Relevance + promotionBonus)
		item.PromotedAt = &now
		memory.LongTerm = append(memory.LongTerm, item)
		promoted++
	}
	memory.ShortTerm = remaining

	sortLongTerm(memory.LongTerm)
	if len(memory.LongTerm) > s.maxLongTerm {
		memory.LongTerm = memory.LongTerm[:s.maxLongTerm]
	}
	memory.RecountItems()

	if err := s.repo.Save(ctx, memory); err != nil {
		return 0, domain.NewDomainError(err, "failed to save memory")
	}
	metrics.MemoryOperationsTotal.WithLabelValues("promote").Inc()
	return promoted, nil
}

// PerformMaintenance prunes stale short-term documents and compacts the
// long-term tier across all conversations.
func (s *MemoryService) PerformMaintenance(ctx context.Context) error {
	pruned, err := s.repo.PruneShortTerm(ctx, time.Now().Add(-shortTermPruneAge))
	if err != nil {
		return domain.NewDomainError(err, "short-term prune failed")
	}
	if err := s.repo.CompactLongTerm(ctx); err != nil {
		return domain.NewDomainError(err, "long-term compaction failed")
	}
	log.Info().Int("pruned", pruned).Msg("memory maintenance complete")
	return nil
}

func sortLongTerm(items []*models.MemoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Relevance != items[j].Relevance {
			return items[i].Relevance > items[j].Relevance
		}
		return items[i].Timestamp.After(items[j].Timestamp)
	})
}
