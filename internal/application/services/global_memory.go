package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/metrics"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

const (
	globalMemoryKey = "global_memory"

	globalCacheCapacity = 10
	globalCacheBaseTTL  = 5 * time.Minute
	hotUpdatesPerDay    = 100
	coldUpdatesPerDay   = 10

	// Enrichment scoring: recency and semantic similarity, with the
	// semantic side dominating. Topics lean harder on similarity.
	entityTemporalWeight = 0.4
	entitySemanticWeight = 0.6
	topicTemporalWeight  = 0.3
	topicSemanticWeight  = 0.7
	freshDays            = 7.0

	enrichMaxEntities = 10
	enrichMaxTopics   = 5

	feedbackPenalty = 0.7
	feedbackReward  = 1.2

	maintenanceDecayIdleDays = 7.0
	entityConfidenceFloor    = 0.1
	topicConfidenceFloor     = 0.1
	maxTrackedConversations  = 1000
)

var sensitiveKeywords = []string{
	"password", "contraseña", "clave", "secret", "secreto", "private",
	"privado", "privada", "confidential", "confidencial", "personal", "token",
}

var restrictedKeywords = []string{
	"interno", "interna", "internal", "restringido", "restringida",
	"restricted", "borrador", "draft",
}

type globalCacheEntry struct {
	doc *models.GlobalMemoryDoc
	at  time.Time
}

// GlobalMemoryService maintains the single cross-conversation knowledge
// document in the key-value store. All mutations clone the document, write
// it, and only then swap the cached copy, so readers never see a partial
// update. The cache TTL adapts to update traffic.
type GlobalMemoryService struct {
	kv       ports.KVStore
	backups  ports.GlobalBackupStore
	semantic ports.SemanticService
	usage    ports.MetricsLog
	feedback ports.FeedbackLog
	ids      ports.IDGenerator

	maxEntities    int
	maxTopics      int
	minOccurrences int
	decayFactor    float64

	mu    sync.Mutex
	cache map[string]globalCacheEntry
}

func NewGlobalMemoryService(
	kv ports.KVStore,
	backups ports.GlobalBackupStore,
	semantic ports.SemanticService,
	usage ports.MetricsLog,
	feedback ports.FeedbackLog,
	ids ports.IDGenerator,
	maxEntities int,
	maxTopics int,
	minOccurrences int,
	decayFactor float64,
) *GlobalMemoryService {
	return &GlobalMemoryService{
		kv:             kv,
		backups:        backups,
		semantic:       semantic,
		usage:          usage,
		feedback:       feedback,
		ids:            ids,
		maxEntities:    maxEntities,
		maxTopics:      maxTopics,
		minOccurrences: minOccurrences,
		decayFactor:    decayFactor,
	}
}

// cacheTTL shortens under heavy update traffic and stretches when idle.
func cacheTTL(doc *models.GlobalMemoryDoc) time.Duration {
	switch {
	case doc.Stats.UpdatesLast24h > hotUpdatesPerDay:
		return globalCacheBaseTTL / 2
	case doc.Stats.UpdatesLast24h < coldUpdatesPerDay:
		return globalCacheBaseTTL * 2
	default:
		return globalCacheBaseTTL
	}
}

// loadDocLocked returns the current document, from cache when fresh. A
// missing document is created; a failing store falls back to the stale
// cached copy when one exists.
func (s *GlobalMemoryService) loadDocLocked(ctx context.Context) (*models.GlobalMemoryDoc, error) {
	if s.cache == nil {
		s.cache = make(map[string]globalCacheEntry)
	}
	if entry, ok := s.cache[globalMemoryKey]; ok {
		if time.Since(entry.at) <= cacheTTL(entry.doc) {
			return entry.doc, nil
		}
	}

	var doc models.GlobalMemoryDoc
	err := s.kv.Read(ctx, globalMemoryKey, &doc)
	switch {
	case err == nil:
		s.cacheDocLocked(&doc)
		return &doc, nil
	case domain.IsNotFound(err):
		fresh := models.NewGlobalMemoryDoc()
		if werr := s.kv.Write(ctx, globalMemoryKey, fresh); werr != nil {
			log.Warn().Err(werr).Msg("initializing global memory document failed")
		}
		s.cacheDocLocked(fresh)
		return fresh, nil
	default:
		if entry, ok := s.cache[globalMemoryKey]; ok {
			log.Warn().Err(err).Msg("global memory store unavailable, serving cached copy")
			return entry.doc, nil
		}
		return nil, domain.NewDomainError(domain.ErrGlobalMemoryUnavailable, err.Error())
	}
}

func (s *GlobalMemoryService) cacheDocLocked(doc *models.GlobalMemoryDoc) {
	if s.cache == nil {
		s.cache = make(map[string]globalCacheEntry)
	}
	if len(s.cache) >= globalCacheCapacity {
		oldestKey := ""
		var oldestAt time.Time
		for key, entry := range s.cache {
			if oldestKey == "" || entry.at.Before(oldestAt) {
				oldestKey, oldestAt = key, entry.at
			}
		}
		if oldestKey != "" && oldestKey != globalMemoryKey {
			delete(s.cache, oldestKey)
		}
	}
	s.cache[globalMemoryKey] = globalCacheEntry{doc: doc, at: time.Now()}
}

// GetGlobalMemoryContext returns the current shared document.
func (s *GlobalMemoryService) GetGlobalMemoryContext(ctx context.Context) (*models.GlobalMemoryDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadDocLocked(ctx)
}

// EnrichContextWithGlobalMemory attaches relevant global entities, topics
// and domain knowledge to the context, honoring the caller's access level.
func (s *GlobalMemoryService) EnrichContextWithGlobalMemory(ctx context.Context, contextMap *models.ContextMap, opts ports.GlobalEnrichOptions) (*models.ContextMap, error) {
	if contextMap == nil {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "context map is required")
	}

	s.mu.Lock()
	doc, err := s.loadDocLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return contextMap, err
	}

	currentTopics := topicNameSet(contextMap.TopicNames(), opts.CurrentTopics)
	allowedRank := models.SensitivityRank(opts.AuthorizedAccessLevel)

	contextVec := s.semantic.Vectorize(ctx, contextMap.CurrentMessage)
	if contextVec == nil && len(currentTopics) > 0 {
		contextVec = s.semantic.Vectorize(ctx, strings.Join(sortedKeys(currentTopics), " "))
	}

	entities := s.pickEntities(ctx, doc, contextMap, contextVec, allowedRank, opts.EntitySensitivity)
	topics := s.pickTopics(ctx, doc, currentTopics, contextVec)
	knowledge := pickDomainKnowledge(doc, currentTopics)

	if len(entities) > 0 || len(topics) > 0 || len(knowledge) > 0 {
		contextMap.GlobalMemory = &models.GlobalMemoryView{
			Entities:        entities,
			Topics:          topics,
			DomainKnowledge: knowledge,
		}
	}

	metrics.GlobalMemoryEnrichmentsTotal.Inc()
	s.recordUsage(ctx, models.OperationEnrichment, map[string]any{
		"entities": len(entities),
		"topics":   len(topics),
	}, nil)
	return contextMap, nil
}

type scoredEntity struct {
	entity *models.Entity
	score  float64
}

func (s *GlobalMemoryService) pickEntities(ctx context.Context, doc *models.GlobalMemoryDoc, cm *models.ContextMap, contextVec []float32, allowedRank int, overrides map[string]string) []*models.Entity {
	now := time.Now()
	var candidates []scoredEntity
	for _, e := range doc.Entities {
		level := e.SensitivityLevel
		if override, ok := overrides[strings.ToLower(e.Name)]; ok {
			level = override
		}
		if models.SensitivityRank(level) > allowedRank {
			continue
		}
		if cm.HasEntity(e.Key()) {
			continue
		}
		candidates = append(candidates, scoredEntity{entity: e})
	}
	if len(candidates) == 0 {
		return nil
	}

	s.scoreAgainstContext(ctx, candidates, contextVec, now, entityTemporalWeight, entitySemanticWeight)

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entity.Name < candidates[j].entity.Name
	})
	if len(candidates) > enrichMaxEntities {
		candidates = candidates[:enrichMaxEntities]
	}
	picked := make([]*models.Entity, 0, len(candidates))
	for _, c := range candidates {
		picked = append(picked, c.entity)
	}
	return picked
}

// scoreAgainstContext fills each candidate's score: a recency/similarity
// blend when vectors are available, occurrences x confidence otherwise.
func (s *GlobalMemoryService) scoreAgainstContext(ctx context.Context, candidates []scoredEntity, contextVec []float32, now time.Time, temporalWeight, semanticWeight float64) {
	var missing []string
	var missingIdx []int
	for i, c := range candidates {
		if len(c.entity.Embedding) == 0 {
			missing = append(missing, c.entity.Name)
			missingIdx = append(missingIdx, i)
		}
	}
	vectors := make(map[int][]float32, len(candidates))
	if contextVec != nil && len(missing) > 0 {
		batch := s.semantic.VectorizeBatch(ctx, missing)
		for n, idx := range missingIdx {
			if n < len(batch) {
				vectors[idx] = batch[n]
			}
		}
	}

	for i := range candidates {
		e := candidates[i].entity
		vec := e.Embedding
		if len(vec) == 0 {
			vec = vectors[i]
		}
		if contextVec == nil || vec == nil {
			candidates[i].score = float64(e.Occurrences) * e.Confidence
			continue
		}
		candidates[i].score = temporalWeight*temporalScore(e.LastSeen, now) +
			semanticWeight*s.semantic.Similarity(contextVec, vec)
	}
}

func (s *GlobalMemoryService) pickTopics(ctx context.Context, doc *models.GlobalMemoryDoc, currentTopics map[string]bool, contextVec []float32) []*models.Topic {
	now := time.Now()
	var candidates []scoredEntity
	var topicFor []*models.Topic
	for _, t := range doc.Topics {
		if currentTopics[strings.ToLower(t.Name)] {
			continue
		}
		// Reuse the entity scorer by projecting the topic's shared fields.
		candidates = append(candidates, scoredEntity{entity: &models.Entity{
			Name:        t.Name,
			Confidence:  t.Confidence,
			Embedding:   t.Embedding,
			Occurrences: t.Occurrences,
			LastSeen:    t.LastSeen,
		}})
		topicFor = append(topicFor, t)
	}
	if len(candidates) == 0 {
		return nil
	}

	s.scoreAgainstContext(ctx, candidates, contextVec, now, topicTemporalWeight, topicSemanticWeight)

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entity.Name < candidates[j].entity.Name
	})
	if len(order) > enrichMaxTopics {
		order = order[:enrichMaxTopics]
	}
	picked := make([]*models.Topic, 0, len(order))
	for _, idx := range order {
		picked = append(picked, topicFor[idx])
	}
	return picked
}

func pickDomainKnowledge(doc *models.GlobalMemoryDoc, currentTopics map[string]bool) map[string]map[string]any {
	if len(doc.DomainKnowledge) == 0 || len(currentTopics) == 0 {
		return nil
	}
	picked := make(map[string]map[string]any)
	for domainName, data := range doc.DomainKnowledge {
		lowerDomain := strings.ToLower(domainName)
		for topic := range currentTopics {
			if strings.Contains(lowerDomain, topic) || strings.Contains(topic, lowerDomain) {
				picked[domainName] = data
				break
			}
		}
	}
	if len(picked) == 0 {
		return nil
	}
	return picked
}

// temporalScore is 1 for the first week and decays 2% per further week.
func temporalScore(lastSeen time.Time, now time.Time) float64 {
	days := now.Sub(lastSeen).Hours() / 24
	if days <= freshDays {
		return 1
	}
	return math.Pow(0.98, (days-freshDays)/freshDays)
}

// UpdateGlobalMemory merges the context's entities and topics into the
// shared document. Returns whether an update was applied.
func (s *GlobalMemoryService) UpdateGlobalMemory(ctx context.Context, contextMap *models.ContextMap, userMessage, botResponse, conversationID string, opts ports.GlobalUpdateOptions) (bool, error) {
	if contextMap == nil {
		return false, domain.NewDomainError(domain.ErrInvalidInput, "context map is required")
	}
	if conversationID == "" {
		return false, domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}
	if len(contextMap.Entities) == 0 && len(contextMap.Topics) == 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadDocLocked(ctx)
	if err != nil {
		return false, err
	}
	doc := current.Clone()

	s.fillEmbeddings(ctx, contextMap)

	for _, e := range contextMap.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		incoming := *e
		incoming.Name = name
		incoming.SensitivityLevel = classifySensitivity(&incoming, opts.EntitySensitivity)
		if existing := doc.FindEntity(incoming.Key()); existing != nil {
			existing.Observe(&incoming)
		} else {
			added := incoming
			doc.Entities = append(doc.Entities, &added)
		}
	}
	for _, t := range contextMap.Topics {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		if existing := doc.FindTopic(strings.ToLower(name)); existing != nil {
			existing.Observe(t.Confidence)
			if len(existing.Embedding) == 0 && len(t.Embedding) > 0 {
				existing.Embedding = t.Embedding
			}
		} else {
			added := *t
			added.Name = name
			doc.Topics = append(doc.Topics, &added)
		}
	}

	truncateEntities(doc, s.maxEntities)
	truncateTopics(doc, s.maxTopics)
	doc.RecordConversation(conversationID)
	doc.LastUpdated = time.Now()

	if err := s.kv.Write(ctx, globalMemoryKey, doc); err != nil {
		return false, domain.NewDomainError(err, "failed to persist global memory")
	}
	s.cacheDocLocked(doc)

	metrics.GlobalMemoryUpdatesTotal.Inc()
	s.recordUsage(ctx, models.OperationGlobalUpdate, map[string]any{
		"conversationId": conversationID,
		"entities":       len(contextMap.Entities),
		"topics":         len(contextMap.Topics),
	}, nil)
	return true, nil
}

// fillEmbeddings batch-vectorizes entities and topics that arrived without
// one. Failures leave embeddings empty; scoring falls back gracefully.
func (s *GlobalMemoryService) fillEmbeddings(ctx context.Context, cm *models.ContextMap) {
	var names []string
	var setters []func([]float32)
	for _, e := range cm.Entities {
		if len(e.Embedding) == 0 && e.Name != "" {
			entity := e
			names = append(names, entity.Name)
			setters = append(setters, func(v []float32) { entity.Embedding = v })
		}
	}
	for _, t := range cm.Topics {
		if len(t.Embedding) == 0 && t.Name != "" {
			topic := t
			names = append(names, topic.Name)
			setters = append(setters, func(v []float32) { topic.Embedding = v })
		}
	}
	if len(names) == 0 {
		return
	}
	for i, vec := range s.semantic.VectorizeBatch(ctx, names) {
		if vec != nil && i < len(setters) {
			setters[i](vec)
		}
	}
}

// classifySensitivity decides the storage sensitivity of a new observation.
// An explicit override wins; otherwise inherently personal types and
// secret-bearing keywords raise the level.
func classifySensitivity(e *models.Entity, overrides map[string]string) string {
	if override, ok := overrides[strings.ToLower(e.Name)]; ok {
		if _, known := map[string]bool{
			models.SensitivityPublic:     true,
			models.SensitivityRestricted: true,
			models.SensitivitySensitive:  true,
		}[override]; known {
			return override
		}
	}
	if e.Type == models.EntityTypePerson || e.Type == models.EntityTypeEmail {
		return models.SensitivitySensitive
	}
	haystack := strings.ToLower(e.Name + " " + e.Description)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(haystack, kw) {
			return models.SensitivitySensitive
		}
	}
	for _, kw := range restrictedKeywords {
		if strings.Contains(haystack, kw) {
			return models.SensitivityRestricted
		}
	}
	if e.SensitivityLevel != "" {
		return e.SensitivityLevel
	}
	return models.SensitivityPublic
}

func truncateEntities(doc *models.GlobalMemoryDoc, limit int) {
	if limit <= 0 || len(doc.Entities) <= limit {
		return
	}
	sort.Slice(doc.Entities, func(i, j int) bool {
		a, b := doc.Entities[i], doc.Entities[j]
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Name < b.Name
	})
	doc.Entities = doc.Entities[:limit]
}

func truncateTopics(doc *models.GlobalMemoryDoc, limit int) {
	if limit <= 0 || len(doc.Topics) <= limit {
		return
	}
	sort.Slice(doc.Topics, func(i, j int) bool {
		a, b := doc.Topics[i], doc.Topics[j]
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Name < b.Name
	})
	doc.Topics = doc.Topics[:limit]
}

// ResetGlobalMemory backs the document up and replaces it with a fresh one.
// A failed backup aborts the reset.
func (s *GlobalMemoryService) ResetGlobalMemory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadDocLocked(ctx)
	if err != nil {
		return err
	}
	backupPath, err := s.backups.WriteBackup(ctx, doc)
	if err != nil {
		return domain.NewDomainError(err, "backup failed, global memory reset aborted")
	}

	fresh := models.NewGlobalMemoryDoc()
	if err := s.kv.Write(ctx, globalMemoryKey, fresh); err != nil {
		return domain.NewDomainError(err, "failed to reset global memory")
	}
	s.cacheDocLocked(fresh)
	log.Info().Str("backup", backupPath).Msg("global memory reset complete")
	return nil
}

// ProvideFeedback applies a user verdict to a stored entity: corrections
// replace or penalize, confirmations reward. The before/after snapshots go
// to the feedback log.
func (s *GlobalMemoryService) ProvideFeedback(ctx context.Context, entityName, entityType string, feedback *models.EntityFeedback) error {
	if strings.TrimSpace(entityName) == "" {
		return domain.NewDomainError(domain.ErrInvalidInput, "entity name is required")
	}
	if feedback == nil {
		return domain.NewDomainError(domain.ErrInvalidInput, "feedback is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadDocLocked(ctx)
	if err != nil {
		return err
	}
	doc := current.Clone()

	key := strings.ToLower(entityName) + "|" + entityType
	entity := doc.FindEntity(key)
	if entity == nil {
		return domain.NewDomainError(domain.ErrEntityNotFound, entityName)
	}
	before := *entity

	if feedback.IsCorrect {
		entity.SetConfidence(entity.Confidence * feedbackReward)
	} else {
		if feedback.CorrectedDescription != "" {
			entity.Description = feedback.CorrectedDescription
		}
		if feedback.CorrectedConfidence != nil {
			entity.SetConfidence(*feedback.CorrectedConfidence)
		} else {
			entity.SetConfidence(entity.Confidence * feedbackPenalty)
		}
	}

	if err := s.kv.Write(ctx, globalMemoryKey, doc); err != nil {
		return domain.NewDomainError(err, "failed to persist feedback")
	}
	s.cacheDocLocked(doc)

	after := *entity
	record := models.NewFeedbackRecord(s.ids.GenerateFeedbackID(), entityName, entityType, feedback, &before, &after)
	if err := s.feedback.Append(ctx, record); err != nil {
		log.Warn().Err(err).Str("entity", entityName).Msg("appending feedback record failed")
	}

	helpful := feedback.IsCorrect
	s.recordUsage(ctx, models.OperationFeedback, map[string]any{
		"entityName": entityName,
		"entityType": entityType,
	}, &helpful)
	return nil
}

// PerformMaintenance decays idle entities and topics, prunes the weak and
// rarely-seen, bounds conversation tracking and resets the daily counter.
func (s *GlobalMemoryService) PerformMaintenance(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadDocLocked(ctx)
	if err != nil {
		return err
	}
	doc := current.Clone()
	now := time.Now()

	keptEntities := doc.Entities[:0]
	for _, e := range doc.Entities {
		idleDays := now.Sub(e.LastSeen).Hours() / 24
		if idleDays > maintenanceDecayIdleDays {
			e.SetConfidence(e.Confidence * math.Pow(s.decayFactor, idleDays/maintenanceDecayIdleDays))
		}
		if e.Confidence < entityConfidenceFloor || e.Occurrences < s.minOccurrences {
			continue
		}
		keptEntities = append(keptEntities, e)
	}
	doc.Entities = keptEntities

	keptTopics := doc.Topics[:0]
	for _, t := range doc.Topics {
		idleDays := now.Sub(t.LastSeen).Hours() / 24
		if idleDays > maintenanceDecayIdleDays {
			t.Confidence = t.Confidence * math.Pow(s.decayFactor, idleDays/maintenanceDecayIdleDays)
		}
		if t.Confidence < topicConfidenceFloor {
			continue
		}
		keptTopics = append(keptTopics, t)
	}
	doc.Topics = keptTopics

	if len(doc.Stats.ConversationIDs) > maxTrackedConversations {
		doc.Stats.ConversationIDs = doc.Stats.ConversationIDs[len(doc.Stats.ConversationIDs)-maxTrackedConversations:]
	}
	doc.Stats.UpdatesLast24h = 0
	doc.LastMaintenance = &now

	if err := s.kv.Write(ctx, globalMemoryKey, doc); err != nil {
		return domain.NewDomainError(err, "failed to persist maintenance result")
	}
	s.cacheDocLocked(doc)
	log.Info().
		Int("entities", len(doc.Entities)).
		Int("topics", len(doc.Topics)).
		Msg("global memory maintenance complete")
	return nil
}

// GetGlobalMemoryStats summarizes the shared document for operators.
func (s *GlobalMemoryService) GetGlobalMemoryStats(ctx context.Context) (*ports.GlobalMemoryStatsView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadDocLocked(ctx)
	if err != nil {
		return nil, err
	}
	return &ports.GlobalMemoryStatsView{
		EntityCount:        len(doc.Entities),
		TopicCount:         len(doc.Topics),
		TotalUpdates:       doc.Stats.TotalUpdates,
		TotalConversations: doc.Stats.TotalConversations,
		UpdatesLast24h:     doc.Stats.UpdatesLast24h,
		LastUpdated:        doc.LastUpdated,
		LastMaintenance:    doc.LastMaintenance,
	}, nil
}

func (s *GlobalMemoryService) recordUsage(ctx context.Context, operation string, details map[string]any, wasHelpful *bool) {
	if s.usage == nil {
		return
	}
	record := &models.UsageRecord{
		Timestamp:     time.Now(),
		OperationType: operation,
		Details:       details,
		WasHelpful:    wasHelpful,
	}
	if err := s.usage.Append(ctx, record); err != nil {
		log.Warn().Err(err).Str("operation", operation).Msg("appending usage record failed")
	}
}

func topicNameSet(names []string, extra []string) map[string]bool {
	set := make(map[string]bool, len(names)+len(extra))
	for _, n := range names {
		if n != "" {
			set[strings.ToLower(n)] = true
		}
	}
	for _, n := range extra {
		if n != "" {
			set[strings.ToLower(n)] = true
		}
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
