package services

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/metrics"
	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/retry"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

const lockPollInterval = 100 * time.Millisecond

var managerTracer = otel.Tracer("cag/context-manager")

// UpdateContextOptions tunes how an update is persisted.
type UpdateContextOptions struct {
	// NoHistory skips the versioned snapshot for this write.
	NoHistory bool
}

// ContextSearchResults groups the three parallel search slots. A failed
// slot is empty, never an error.
type ContextSearchResults struct {
	Entities  []*models.Entity             `json:"entities"`
	Memories  []*models.MemorySearchResult `json:"memories"`
	Documents []*ports.Document            `json:"documents"`
}

// ContextStats is the operator-facing view of the manager.
type ContextStats struct {
	CachedContexts int `json:"cachedContexts"`
	StoredContexts int `json:"storedContexts"`
	ActiveLocks    int `json:"activeLocks"`
}

type managedContext struct {
	key        string
	contextMap *models.ContextMap
	storedAt   time.Time
}

type conversationLock struct {
	lockID     string
	acquiredAt time.Time
}

// ContextService coordinates the full message/response pipeline: it fronts
// the context repository with an LRU cache, serializes writers through
// per-conversation locks, enforces ownership, and keeps versioned history.
type ContextService struct {
	contexts  ports.ContextRepository
	history   ports.ContextHistoryRepository
	analyzer  ports.ContextAnalyzer
	memory    ports.MemoryStore
	global    ports.GlobalMemory
	extractor ports.EntityExtractor
	documents ports.DocumentProcessor
	ids       ports.IDGenerator

	cacheSize   int
	cacheTTL    time.Duration
	lockTimeout time.Duration
	maxRecent   int
	strict      bool

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used

	lockMu sync.Mutex
	locks  map[string]conversationLock
}

func NewContextService(
	contexts ports.ContextRepository,
	history ports.ContextHistoryRepository,
	analyzer ports.ContextAnalyzer,
	memory ports.MemoryStore,
	global ports.GlobalMemory,
	extractor ports.EntityExtractor,
	documents ports.DocumentProcessor,
	ids ports.IDGenerator,
	cacheSize int,
	cacheTTL time.Duration,
	lockTimeout time.Duration,
	maxRecentMessages int,
	strictValidation bool,
) *ContextService {
	return &ContextService{
		contexts:    contexts,
		history:     history,
		analyzer:    analyzer,
		memory:      memory,
		global:      global,
		extractor:   extractor,
		documents:   documents,
		ids:         ids,
		cacheSize:   cacheSize,
		cacheTTL:    cacheTTL,
		lockTimeout: lockTimeout,
		maxRecent:   maxRecentMessages,
		strict:      strictValidation,
		entries:     make(map[string]*list.Element),
		order:       list.New(),
		locks:       make(map[string]conversationLock),
	}
}

func contextCacheKey(conversationID, userID string) string {
	return conversationID + ":" + userID
}

func recordContextOp(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ContextOperationsTotal.WithLabelValues(operation, status).Inc()
}

// --- LRU cache -------------------------------------------------------------

func (s *ContextService) cacheGet(key string) *models.ContextMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.entries[key]
	if !ok {
		return nil
	}
	entry := el.Value.(*managedContext)
	if time.Since(entry.storedAt) > s.cacheTTL {
		s.order.Remove(el)
		delete(s.entries, key)
		return nil
	}
	s.order.MoveToFront(el)
	return entry.contextMap
}

func (s *ContextService) cachePut(key string, contextMap *models.ContextMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[key]; ok {
		entry := el.Value.(*managedContext)
		entry.contextMap = contextMap
		entry.storedAt = time.Now()
		s.order.MoveToFront(el)
		return
	}
	el := s.order.PushFront(&managedContext{key: key, contextMap: contextMap, storedAt: time.Now()})
	s.entries[key] = el
	for s.order.Len() > s.cacheSize {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*managedContext).key)
	}
}

// cacheEvictConversation drops every cached view of one conversation.
func (s *ContextService) cacheEvictConversation(conversationID string) {
	prefix := conversationID + ":"
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, el := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.order.Remove(el)
			delete(s.entries, key)
		}
	}
}

// CleanupCache drops cache entries past the TTL. Returns how many were
// removed; wired as a scheduler job.
func (s *ContextService) CleanupCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		entry := el.Value.(*managedContext)
		if time.Since(entry.storedAt) > s.cacheTTL {
			s.order.Remove(el)
			delete(s.entries, entry.key)
			removed++
		}
		el = prev
	}
	return removed
}

// --- per-conversation locks ------------------------------------------------

// acquireLock spins until the conversation slot is free or the wait budget
// runs out. Locks older than the cache TTL are treated as orphaned and
// taken over.
func (s *ContextService) acquireLock(ctx context.Context, conversationID string) (string, error) {
	lockID := uuid.NewString()
	start := time.Now()
	deadline := start.Add(s.lockTimeout)
	for {
		s.lockMu.Lock()
		current, held := s.locks[conversationID]
		if !held || time.Since(current.acquiredAt) > s.cacheTTL {
			s.locks[conversationID] = conversationLock{lockID: lockID, acquiredAt: time.Now()}
			s.lockMu.Unlock()
			metrics.LockWaitDuration.Observe(time.Since(start).Seconds())
			return lockID, nil
		}
		s.lockMu.Unlock()

		if time.Now().After(deadline) {
			metrics.LockTimeoutsTotal.Inc()
			return "", domain.NewDomainError(domain.ErrLockTimeout, conversationID)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// releaseLock frees the slot only when the caller still owns it.
func (s *ContextService) releaseLock(conversationID, lockID string) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	current, held := s.locks[conversationID]
	if !held {
		return
	}
	if current.lockID != lockID {
		log.Warn().Str("conversation_id", conversationID).Msg("lock owned by someone else, not releasing")
		return
	}
	delete(s.locks, conversationID)
}

// SweepExpiredLocks drops locks older than the cache TTL so a crashed
// writer cannot block its conversation forever. Wired as a scheduler job.
func (s *ContextService) SweepExpiredLocks() int {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	removed := 0
	for id, lk := range s.locks {
		if time.Since(lk.acquiredAt) > s.cacheTTL {
			delete(s.locks, id)
			removed++
		}
	}
	if removed > 0 {
		log.Warn().Int("count", removed).Msg("dropped orphaned conversation locks")
	}
	return removed
}

// --- reads -----------------------------------------------------------------

// GetContextMap returns the cached or stored context. A missing context
// surfaces as ErrContextNotFound; an unreadable one degrades to an empty
// valid map so the pipeline can proceed.
func (s *ContextService) GetContextMap(ctx context.Context, conversationID, userID string) (contextMap *models.ContextMap, err error) {
	defer func() { recordContextOp("get", err) }()
	if conversationID == "" {
		err = domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
		return nil, err
	}

	key := contextCacheKey(conversationID, userID)
	if cached := s.cacheGet(key); cached != nil {
		return cached, nil
	}

	contextMap, loadErr := s.contexts.Load(ctx, conversationID)
	if loadErr != nil {
		if domain.IsNotFound(loadErr) {
			err = loadErr
			return nil, err
		}
		log.Error().Err(loadErr).Str("conversation_id", conversationID).Msg("context unreadable, serving empty map")
		return models.NewContextMap(conversationID, ""), nil
	}
	s.cachePut(key, contextMap)
	return contextMap, nil
}

// GetContextStats reports cache, store and lock occupancy.
func (s *ContextService) GetContextStats(ctx context.Context) (*ContextStats, error) {
	stats := &ContextStats{}

	s.mu.Lock()
	stats.CachedContexts = s.order.Len()
	s.mu.Unlock()

	s.lockMu.Lock()
	stats.ActiveLocks = len(s.locks)
	s.lockMu.Unlock()

	ids, err := s.contexts.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("listing stored contexts failed")
		return stats, nil
	}
	stats.StoredContexts = len(ids)
	return stats, nil
}

// GetContextVersion reads one historical snapshot.
func (s *ContextService) GetContextVersion(ctx context.Context, conversationID, versionID string) (*models.ContextMap, error) {
	if conversationID == "" || versionID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "conversation and version ids are required")
	}
	return s.history.GetVersion(ctx, conversationID, versionID)
}

// GetContextVersions lists snapshots newest first.
func (s *ContextService) GetContextVersions(ctx context.Context, conversationID string) ([]ports.ContextVersionInfo, error) {
	if conversationID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}
	return s.history.ListVersions(ctx, conversationID)
}

// --- writes ----------------------------------------------------------------

// UpdateContextMap persists a context under the conversation lock: ownership
// is enforced against the stored document, the schema is validated (strict
// mode rejects), and a versioned snapshot is written unless opted out.
func (s *ContextService) UpdateContextMap(ctx context.Context, conversationID, userID string, contextMap *models.ContextMap, opts UpdateContextOptions) (updated *models.ContextMap, err error) {
	defer func() { recordContextOp("update", err) }()
	if conversationID == "" {
		err = domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
		return nil, err
	}
	if contextMap == nil {
		err = domain.NewDomainError(domain.ErrInvalidInput, "context map is required")
		return nil, err
	}

	lockID, lockErr := s.acquireLock(ctx, conversationID)
	if lockErr != nil {
		err = lockErr
		return nil, err
	}
	defer s.releaseLock(conversationID, lockID)

	updated, err = s.updateLocked(ctx, conversationID, userID, contextMap, opts)
	return updated, err
}

// updateLocked is the write path; the caller holds the conversation lock.
func (s *ContextService) updateLocked(ctx context.Context, conversationID, userID string, contextMap *models.ContextMap, opts UpdateContextOptions) (*models.ContextMap, error) {
	stored := s.storedContext(ctx, conversationID)
	if stored != nil && !stored.IsAuthorized(userID) {
		return nil, domain.NewDomainError(domain.ErrPermissionDenied,
			fmt.Sprintf("user %q cannot modify conversation %s", userID, conversationID))
	}
	if stored != nil && contextMap.OwnerID == "" {
		// Updates never strip ownership metadata.
		contextMap.OwnerID = stored.OwnerID
		if len(contextMap.AuthorizedUsers) == 0 {
			contextMap.AuthorizedUsers = stored.AuthorizedUsers
		}
	}

	contextMap.ConversationID = conversationID
	contextMap.Touch()

	if problems := ValidateContextMap(contextMap); len(problems) > 0 {
		if s.strict {
			return nil, domain.NewDomainError(domain.ErrValidationFailed, strings.Join(problems, "; "))
		}
		log.Warn().Str("conversation_id", conversationID).Strs("problems", problems).Msg("context has schema problems")
	}

	if err := s.contexts.Save(ctx, contextMap); err != nil {
		return nil, fmt.Errorf("saving context %s: %w", conversationID, err)
	}

	if !opts.NoHistory {
		snapshot := contextMap.Clone()
		snapshot.VersionID = s.ids.GenerateVersionID()
		now := time.Now()
		snapshot.VersionTimestamp = &now
		if err := s.history.SaveVersion(ctx, snapshot); err != nil {
			log.Error().Err(err).Str("conversation_id", conversationID).Msg("saving context version failed")
		}
	}

	s.cachePut(contextCacheKey(conversationID, userID), contextMap)
	return contextMap, nil
}

// DeleteContext removes the stored context, its history and cached views.
func (s *ContextService) DeleteContext(ctx context.Context, conversationID, userID string) (err error) {
	defer func() { recordContextOp("delete", err) }()
	if conversationID == "" {
		err = domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
		return err
	}

	lockID, lockErr := s.acquireLock(ctx, conversationID)
	if lockErr != nil {
		err = lockErr
		return err
	}
	defer s.releaseLock(conversationID, lockID)

	stored := s.storedContext(ctx, conversationID)
	if stored != nil && !stored.IsAuthorized(userID) {
		err = domain.NewDomainError(domain.ErrPermissionDenied,
			fmt.Sprintf("user %q cannot delete conversation %s", userID, conversationID))
		return err
	}

	if err = s.contexts.Delete(ctx, conversationID); err != nil {
		return err
	}
	if histErr := s.history.DeleteVersions(ctx, conversationID); histErr != nil {
		log.Error().Err(histErr).Str("conversation_id", conversationID).Msg("deleting context history failed")
	}
	s.cacheEvictConversation(conversationID)
	return nil
}

// --- pipeline --------------------------------------------------------------

// EnrichContext adds cross-conversation knowledge and available document
// metadata. Every failure is isolated: the enrichment that failed is simply
// absent from the result.
func (s *ContextService) EnrichContext(ctx context.Context, contextMap *models.ContextMap) *models.ContextMap {
	if contextMap == nil {
		return nil
	}
	ctx, span := managerTracer.Start(ctx, "context.enrich",
		trace.WithAttributes(attribute.String("conversation.id", contextMap.ConversationID)))
	defer span.End()

	if s.global != nil {
		enriched, err := s.global.EnrichContextWithGlobalMemory(ctx, contextMap, ports.GlobalEnrichOptions{
			CurrentTopics: contextMap.TopicNames(),
		})
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", contextMap.ConversationID).Msg("global enrichment failed")
		} else {
			contextMap = enriched
		}
	}

	if s.documents != nil && len(contextMap.AvailableDocuments) == 0 && contextMap.ConversationID != "" {
		docs, err := s.documents.GetConversationDocuments(ctx, contextMap.ConversationID)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", contextMap.ConversationID).Msg("document listing failed")
		} else {
			for _, doc := range docs {
				contextMap.AvailableDocuments = append(contextMap.AvailableDocuments, &models.DocumentInfo{
					ID:      doc.ID,
					Name:    doc.Name,
					Type:    doc.Type,
					Summary: doc.Summary,
				})
			}
		}
	}

	recordContextOp("enrich", nil)
	return contextMap
}

// ProcessMessage runs the inbound half of a turn: analysis (retried),
// enrichment (isolated) and the serialized write. Analysis failures degrade
// to a minimal context; permission and lock failures surface.
func (s *ContextService) ProcessMessage(ctx context.Context, conversationID, userID, message string) (contextMap *models.ContextMap, err error) {
	ctx, span := managerTracer.Start(ctx, "context.process_message",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()
	defer func() { recordContextOp("process_message", err) }()

	if conversationID == "" || strings.TrimSpace(message) == "" {
		// The analyzer answers degenerate input with a minimal map and no
		// persistence.
		contextMap, err = s.analyzer.AnalyzeMessage(ctx, conversationID, userID, message)
		return contextMap, err
	}

	if stored := s.storedContext(ctx, conversationID); stored != nil && !stored.IsAuthorized(userID) {
		err = domain.NewDomainError(domain.ErrPermissionDenied,
			fmt.Sprintf("user %q cannot modify conversation %s", userID, conversationID))
		return nil, err
	}

	analysisErr := retry.WithBackoffAny(ctx, retry.AnalyzerConfig(), func() error {
		var aerr error
		contextMap, aerr = s.analyzer.AnalyzeMessage(ctx, conversationID, userID, message)
		return aerr
	})
	if analysisErr != nil {
		log.Error().Err(analysisErr).Str("conversation_id", conversationID).Msg("analysis failed, continuing with minimal context")
		contextMap = models.NewContextMap(conversationID, message)
	}

	contextMap = s.EnrichContext(ctx, contextMap)

	lockID, lockErr := s.acquireLock(ctx, conversationID)
	if lockErr != nil {
		err = lockErr
		return nil, err
	}
	defer s.releaseLock(conversationID, lockID)

	s.foldRecentMessage(ctx, conversationID, contextMap, "user", message)
	contextMap, err = s.updateLocked(ctx, conversationID, userID, contextMap, UpdateContextOptions{NoHistory: true})
	return contextMap, err
}

// ProcessResponse runs the outbound half of a turn: post-response analysis
// (retried), the global memory update (isolated) and the serialized write
// with a history snapshot.
func (s *ContextService) ProcessResponse(ctx context.Context, conversationID, userID, userMessage, botResponse string) (contextMap *models.ContextMap, err error) {
	ctx, span := managerTracer.Start(ctx, "context.process_response",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()
	defer func() { recordContextOp("process_response", err) }()

	if conversationID == "" {
		err = domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
		return nil, err
	}

	if stored := s.storedContext(ctx, conversationID); stored != nil && !stored.IsAuthorized(userID) {
		err = domain.NewDomainError(domain.ErrPermissionDenied,
			fmt.Sprintf("user %q cannot modify conversation %s", userID, conversationID))
		return nil, err
	}

	base := s.cacheGet(contextCacheKey(conversationID, userID))

	analysisErr := retry.WithBackoffAny(ctx, retry.AnalyzerConfig(), func() error {
		var aerr error
		contextMap, aerr = s.analyzer.UpdateAfterResponse(ctx, conversationID, userID, base, userMessage, botResponse)
		return aerr
	})
	if analysisErr != nil {
		log.Error().Err(analysisErr).Str("conversation_id", conversationID).Msg("response analysis failed, continuing with last known context")
		contextMap = base
		if contextMap == nil {
			contextMap = models.NewContextMap(conversationID, userMessage)
		}
		contextMap.LastBotResponse = botResponse
	}

	if s.global != nil {
		if _, gerr := s.global.UpdateGlobalMemory(ctx, contextMap, userMessage, botResponse, conversationID, ports.GlobalUpdateOptions{}); gerr != nil {
			log.Warn().Err(gerr).Str("conversation_id", conversationID).Msg("global memory update failed")
		}
	}

	lockID, lockErr := s.acquireLock(ctx, conversationID)
	if lockErr != nil {
		err = lockErr
		return nil, err
	}
	defer s.releaseLock(conversationID, lockID)

	s.foldRecentMessage(ctx, conversationID, contextMap, "assistant", botResponse)
	contextMap, err = s.updateLocked(ctx, conversationID, userID, contextMap, UpdateContextOptions{})
	return contextMap, err
}

// foldRecentMessage extends the rolling transcript with one turn. When the
// analyzer came back without history, the stored transcript is carried
// forward first so concurrent turns accumulate instead of overwriting.
// The caller holds the conversation lock.
func (s *ContextService) foldRecentMessage(ctx context.Context, conversationID string, contextMap *models.ContextMap, role, content string) {
	if contextMap == nil || content == "" {
		return
	}
	if len(contextMap.RecentMessages) == 0 {
		if stored := s.storedContext(ctx, conversationID); stored != nil {
			contextMap.RecentMessages = stored.RecentMessages
		}
	}
	last := len(contextMap.RecentMessages) - 1
	if last < 0 || contextMap.RecentMessages[last].Role != role || contextMap.RecentMessages[last].Content != content {
		contextMap.RecentMessages = append(contextMap.RecentMessages, models.ConversationMessage{
			Role:      role,
			Content:   content,
			Timestamp: time.Now(),
		})
	}
	if n := len(contextMap.RecentMessages); n > s.maxRecent {
		contextMap.RecentMessages = contextMap.RecentMessages[n-s.maxRecent:]
	}
}

// SearchContext queries entities, memory and documents in parallel. Each
// slot degrades to empty on failure; the call itself only fails on bad input.
func (s *ContextService) SearchContext(ctx context.Context, conversationID, query string) (*ContextSearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "search query is required")
	}
	ctx, span := managerTracer.Start(ctx, "context.search",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	results := &ContextSearchResults{
		Entities:  []*models.Entity{},
		Memories:  []*models.MemorySearchResult{},
		Documents: []*ports.Document{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.extractor == nil {
			return nil
		}
		entities, err := s.extractor.SearchEntities(gctx, query, ports.EntitySearchOptions{})
		if err != nil {
			log.Warn().Err(err).Msg("entity search failed")
			return nil
		}
		results.Entities = entities
		return nil
	})
	g.Go(func() error {
		if s.memory == nil || conversationID == "" {
			return nil
		}
		memories, err := s.memory.SearchMemory(gctx, conversationID, query)
		if err != nil {
			log.Warn().Err(err).Msg("memory search failed")
			return nil
		}
		results.Memories = memories
		return nil
	})
	g.Go(func() error {
		if s.documents == nil || conversationID == "" {
			return nil
		}
		documents, err := s.documents.SearchDocuments(gctx, conversationID, query)
		if err != nil {
			log.Warn().Err(err).Msg("document search failed")
			return nil
		}
		results.Documents = documents
		return nil
	})

	// Workers recover locally; Wait only orders the writes above.
	_ = g.Wait()
	recordContextOp("search", nil)
	return results, nil
}

// storedContext loads the authoritative stored map, or nil when there is
// none worth consulting.
func (s *ContextService) storedContext(ctx context.Context, conversationID string) *models.ContextMap {
	stored, err := s.contexts.Load(ctx, conversationID)
	if err != nil {
		if !domain.IsNotFound(err) {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("stored context unavailable")
		}
		return nil
	}
	return stored
}
