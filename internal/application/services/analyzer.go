package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/metrics"
	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/retry"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

const (
	maxReferences         = 3
	shortReplyConfidence  = 0.85
	pronounConfidenceNear = 0.75
	pronounConfidenceFar  = 0.65
	semanticRefFactor     = 0.7
)

// AnalyzerService turns raw messages into context maps: semantic extraction
// (cached), conversation-relative analysis, memory and document attachment,
// and persistence of the result.
type AnalyzerService struct {
	contexts      ports.ContextRepository
	conversations ports.ConversationStore
	documents     ports.DocumentProcessor
	semantic      ports.SemanticService
	extractor     ports.EntityExtractor
	memory        ports.MemoryStore
	cache         *AnalysisCache
	ids           ports.IDGenerator

	maxContextMessages  int
	maxTopics           int
	similarityThreshold float64
}

func NewAnalyzerService(
	contexts ports.ContextRepository,
	conversations ports.ConversationStore,
	documents ports.DocumentProcessor,
	semantic ports.SemanticService,
	extractor ports.EntityExtractor,
	memory ports.MemoryStore,
	cache *AnalysisCache,
	ids ports.IDGenerator,
	maxContextMessages int,
	maxTopics int,
	similarityThreshold float64,
) *AnalyzerService {
	return &AnalyzerService{
		contexts:            contexts,
		conversations:       conversations,
		documents:           documents,
		semantic:            semantic,
		extractor:           extractor,
		memory:              memory,
		cache:               cache,
		ids:                 ids,
		maxContextMessages:  maxContextMessages,
		maxTopics:           maxTopics,
		similarityThreshold: similarityThreshold,
	}
}

// AnalyzeMessage builds the full context map for one user message. Degenerate
// inputs return a minimal valid map; collaborator failures degrade the
// affected section and the rest of the pipeline proceeds.
func (s *AnalyzerService) AnalyzeMessage(ctx context.Context, conversationID, userID, message string) (*models.ContextMap, error) {
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(message) == "" {
		metrics.AnalysisTotal.WithLabelValues("invalid_input").Inc()
		return models.NewContextMap(conversationID, ""), nil
	}
	if conversationID == "" {
		metrics.AnalysisTotal.WithLabelValues("invalid_input").Inc()
		return models.NewContextMap("", message), nil
	}

	cm := models.NewContextMap(conversationID, message)
	prior := s.priorContext(ctx, conversationID)
	if prior != nil {
		// Ownership metadata and the last response survive re-analysis.
		cm.OwnerID = prior.OwnerID
		cm.AuthorizedUsers = prior.AuthorizedUsers
		cm.LastBotResponse = prior.LastBotResponse
	}
	cm.RecentMessages = s.loadRecentMessages(ctx, conversationID, prior)

	if cached := s.cache.Get(ctx, message); cached != nil {
		cached.ApplyTo(cm)
	} else {
		s.runSemanticExtraction(ctx, cm, message)
	}

	s.analyzeRelationship(ctx, cm)
	s.attachMemory(ctx, cm, userID)
	s.enrichWithDocuments(ctx, cm)

	if err := s.contexts.Save(ctx, cm); err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("persisting context map failed")
	}

	metrics.AnalysisTotal.WithLabelValues("ok").Inc()
	return cm, nil
}

// runSemanticExtraction computes the message-only analysis and caches it.
func (s *AnalyzerService) runSemanticExtraction(ctx context.Context, cm *models.ContextMap, message string) {
	lower := strings.ToLower(message)

	cm.Language = detectLanguage(message)
	cm.Intent = detectIntent(lower)
	cm.Topics = extractTopics(message, s.maxTopics)
	cm.Sentiment = analyzeSentiment(message)
	cm.MessageStructure = analyzeStructure(message)
	if cm.MessageStructure.IsQuestion {
		cm.QuestionType = classifyQuestion(lower)
	}
	cm.Entities = s.extractor.ExtractEntities(ctx, message)

	s.cache.Put(ctx, message, models.AnalysisFrom(cm))
}

// priorContext loads the previously stored map, if any. Errors are treated
// as no prior context; corrupted files surface when read through the manager.
func (s *AnalyzerService) priorContext(ctx context.Context, conversationID string) *models.ContextMap {
	prior, err := s.contexts.Load(ctx, conversationID)
	if err != nil {
		if !domain.IsNotFound(err) {
			log.Debug().Err(err).Str("conversation_id", conversationID).Msg("prior context unavailable")
		}
		return nil
	}
	return prior
}

// loadRecentMessages fetches the conversation tail from the external store,
// retrying transient failures. When the store is absent or empty the
// transcript carried on the prior context map is used instead.
func (s *AnalyzerService) loadRecentMessages(ctx context.Context, conversationID string, prior *models.ContextMap) []models.ConversationMessage {
	var messages []models.ConversationMessage
	if s.conversations != nil {
		var record *ports.ConversationRecord
		err := retry.WithBackoffAny(ctx, retry.AnalyzerConfig(), func() error {
			var rerr error
			record, rerr = s.conversations.GetConversation(ctx, conversationID)
			if domain.IsNotFound(rerr) {
				// A conversation the store has not seen yet is not a failure.
				record = nil
				return nil
			}
			return rerr
		})
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("conversation history unavailable")
		} else if record != nil {
			messages = record.Messages
		}
	}
	if len(messages) == 0 && prior != nil {
		messages = prior.RecentMessages
	}
	if len(messages) > s.maxContextMessages {
		messages = messages[len(messages)-s.maxContextMessages:]
	}
	return messages
}

// analyzeRelationship scores the message as a follow-up and resolves which
// earlier turns it references.
func (s *AnalyzerService) analyzeRelationship(ctx context.Context, cm *models.ContextMap) {
	wordCount := len(strings.Fields(cm.CurrentMessage))
	if cm.MessageStructure != nil {
		wordCount = cm.MessageStructure.WordCount
	}
	cm.FollowUpScore = followUpScore(cm.CurrentMessage, wordCount)
	cm.IsFollowUp = cm.FollowUpScore >= followUpThreshold

	if !cm.IsFollowUp || len(cm.RecentMessages) == 0 {
		return
	}
	cm.References = s.resolveReferences(ctx, cm, wordCount)
}

func (s *AnalyzerService) resolveReferences(ctx context.Context, cm *models.ContextMap, wordCount int) []*models.Reference {
	recent := cm.RecentMessages
	var refs []*models.Reference

	if wordCount <= shortMessageWords {
		if idx := lastBotIndex(recent); idx >= 0 {
			refs = append(refs, &models.Reference{
				MessageIndex: idx,
				Confidence:   shortReplyConfidence,
				Type:         models.ReferenceResponse,
			})
		}
	}

	if pronounBackRef.MatchString(strings.ToLower(cm.CurrentMessage)) {
		if len(recent) >= 1 {
			refs = append(refs, &models.Reference{
				MessageIndex: len(recent) - 1,
				Confidence:   pronounConfidenceNear,
				Type:         models.ReferenceContextual,
			})
		}
		if len(recent) >= 2 {
			refs = append(refs, &models.Reference{
				MessageIndex: len(recent) - 2,
				Confidence:   pronounConfidenceFar,
				Type:         models.ReferenceContextual,
			})
		}
	}

	refs = append(refs, s.semanticReferences(ctx, cm)...)

	byIndex := make(map[int]*models.Reference, len(refs))
	for _, ref := range refs {
		if existing, ok := byIndex[ref.MessageIndex]; !ok || ref.Confidence > existing.Confidence {
			byIndex[ref.MessageIndex] = ref
		}
	}
	deduped := make([]*models.Reference, 0, len(byIndex))
	for _, ref := range byIndex {
		deduped = append(deduped, ref)
	}
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].Confidence != deduped[j].Confidence {
			return deduped[i].Confidence > deduped[j].Confidence
		}
		return deduped[i].MessageIndex > deduped[j].MessageIndex
	})
	if len(deduped) > maxReferences {
		deduped = deduped[:maxReferences]
	}
	return deduped
}

// semanticReferences compares the message vector against earlier bot turns.
// Vectorization failures yield nil vectors and similarity 0, so this simply
// finds nothing when embeddings are down.
func (s *AnalyzerService) semanticReferences(ctx context.Context, cm *models.ContextMap) []*models.Reference {
	msgVec := s.semantic.Vectorize(ctx, cm.CurrentMessage)
	if msgVec == nil {
		return nil
	}
	cut := semanticRefFactor * s.similarityThreshold
	var refs []*models.Reference
	for idx, m := range cm.RecentMessages {
		if !isBotRole(m.Role) {
			continue
		}
		sim := s.semantic.Similarity(msgVec, s.semantic.Vectorize(ctx, m.Content))
		if sim <= cut {
			continue
		}
		confidence := sim + 0.1
		if confidence > 0.9 {
			confidence = 0.9
		}
		refs = append(refs, &models.Reference{
			MessageIndex: idx,
			Confidence:   confidence,
			Type:         models.ReferenceSemantic,
			Similarity:   sim,
		})
	}
	return refs
}

func lastBotIndex(messages []models.ConversationMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if isBotRole(messages[i].Role) {
			return i
		}
	}
	return -1
}

// UpdateAfterResponse folds the bot's reply back into the context: entities
// and topics from the response are merged, and the exchange becomes a new
// memory item.
func (s *AnalyzerService) UpdateAfterResponse(ctx context.Context, conversationID, userID string, contextMap *models.ContextMap, userMessage, botResponse string) (*models.ContextMap, error) {
	if conversationID == "" {
		return contextMap, domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}
	cm := contextMap
	if cm == nil {
		loaded, err := s.contexts.Load(ctx, conversationID)
		if err != nil {
			loaded = models.NewContextMap(conversationID, userMessage)
		}
		cm = loaded
	}

	for _, e := range s.extractor.ExtractEntities(ctx, botResponse) {
		mergeEntity(cm, e)
	}
	for _, t := range extractTopics(botResponse, s.maxTopics) {
		mergeTopic(cm, t)
	}

	item := models.NewMemoryItem(s.ids.GenerateMemoryItemID(), userMessage, botResponse)
	item.Entities = cm.Entities
	item.Topics = cm.Topics
	item.Sentiment = cm.Sentiment
	item.Intent = cm.Intent
	item.Language = cm.Language
	item.IsFollowUp = cm.IsFollowUp
	item.RelevantDocuments = cm.RelevantDocuments

	if s.memory != nil {
		err := retry.WithBackoffAny(ctx, retry.AnalyzerConfig(), func() error {
			return s.memory.UpdateMemory(ctx, conversationID, userID, item)
		})
		if err != nil {
			log.Error().Err(err).Str("conversation_id", conversationID).Msg("updating memory after response failed")
		}
	}

	cm.LastBotResponse = botResponse
	cm.Touch()

	if err := s.contexts.Save(ctx, cm); err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("persisting context after response failed")
	}
	return cm, nil
}

func mergeEntity(cm *models.ContextMap, e *models.Entity) {
	for _, existing := range cm.Entities {
		if existing.Key() == e.Key() {
			existing.Observe(e)
			return
		}
	}
	cm.Entities = append(cm.Entities, e)
}

func mergeTopic(cm *models.ContextMap, t *models.Topic) {
	lower := strings.ToLower(t.Name)
	for _, existing := range cm.Topics {
		if strings.ToLower(existing.Name) == lower {
			existing.Observe(t.Confidence)
			return
		}
	}
	cm.Topics = append(cm.Topics, t)
}

// GetStats reports cache counters and how many contexts are persisted.
func (s *AnalyzerService) GetStats(ctx context.Context) (*ports.AnalyzerStats, error) {
	stats := &ports.AnalyzerStats{Cache: s.cache.Stats()}
	ids, err := s.contexts.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("listing stored contexts failed")
		return stats, nil
	}
	stats.Contexts.Count = len(ids)
	return stats, nil
}
