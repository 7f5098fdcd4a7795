package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

var (
	errNotFound = errors.New("not found")
)

// Shared mock implementations for testing

type mockIDGenerator struct {
	versionCounter  int
	itemCounter     int
	feedbackCounter int
	backupCounter   int
}

func (m *mockIDGenerator) GenerateVersionID() string {
	m.versionCounter++
	return fmt.Sprintf("ver_test%d", m.versionCounter)
}

func (m *mockIDGenerator) GenerateMemoryItemID() string {
	m.itemCounter++
	return fmt.Sprintf("mi_test%d", m.itemCounter)
}

func (m *mockIDGenerator) GenerateFeedbackID() string {
	m.feedbackCounter++
	return fmt.Sprintf("fb_test%d", m.feedbackCounter)
}

func (m *mockIDGenerator) GenerateBackupID() string {
	m.backupCounter++
	return fmt.Sprintf("bk_test%d", m.backupCounter)
}

// mockEmbeddingService buckets words by rune sum so that texts sharing
// words get similar vectors, deterministically.
type mockEmbeddingService struct{}

const mockEmbeddingDims = 8

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) (*ports.EmbeddingResult, error) {
	vec := make([]float32, mockEmbeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		sum := 0
		for _, r := range word {
			sum += int(r)
		}
		vec[sum%mockEmbeddingDims]++
	}
	return &ports.EmbeddingResult{Embedding: vec, Model: "mock", Dimensions: mockEmbeddingDims}, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([]*ports.EmbeddingResult, error) {
	results := make([]*ports.EmbeddingResult, len(texts))
	for i, text := range texts {
		result, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

func (m *mockEmbeddingService) GetDimensions() int { return mockEmbeddingDims }

// mockContextRepo is safe for concurrent use; the manager tests exercise
// parallel writers against it.
type mockContextRepo struct {
	mu      sync.Mutex
	store   map[string]*models.ContextMap
	loadErr error
	saveErr error
	saves   int
}

func newMockContextRepo() *mockContextRepo {
	return &mockContextRepo{store: make(map[string]*models.ContextMap)}
}

func (m *mockContextRepo) Load(ctx context.Context, conversationID string) (*models.ContextMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if cm, ok := m.store[conversationID]; ok {
		return cm, nil
	}
	return nil, domain.ErrContextNotFound
}

func (m *mockContextRepo) Save(ctx context.Context, contextMap *models.ContextMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.store[contextMap.ConversationID] = contextMap
	m.saves++
	return nil
}

func (m *mockContextRepo) Delete(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[conversationID]; !ok {
		return domain.ErrContextNotFound
	}
	delete(m.store, conversationID)
	return nil
}

func (m *mockContextRepo) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.store))
	for id := range m.store {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockContextRepo) Exists(ctx context.Context, conversationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store[conversationID]
	return ok, nil
}

func (m *mockContextRepo) get(conversationID string) *models.ContextMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[conversationID]
}

func (m *mockContextRepo) put(cm *models.ContextMap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[cm.ConversationID] = cm
}

func (m *mockContextRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type mockHistoryRepo struct {
	store   map[string]map[string]*models.ContextMap
	saveErr error
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{store: make(map[string]map[string]*models.ContextMap)}
}

func (m *mockHistoryRepo) SaveVersion(ctx context.Context, contextMap *models.ContextMap) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	versions, ok := m.store[contextMap.ConversationID]
	if !ok {
		versions = make(map[string]*models.ContextMap)
		m.store[contextMap.ConversationID] = versions
	}
	versions[contextMap.VersionID] = contextMap
	return nil
}

func (m *mockHistoryRepo) GetVersion(ctx context.Context, conversationID, versionID string) (*models.ContextMap, error) {
	if cm, ok := m.store[conversationID][versionID]; ok {
		return cm, nil
	}
	return nil, domain.ErrVersionNotFound
}

func (m *mockHistoryRepo) ListVersions(ctx context.Context, conversationID string) ([]ports.ContextVersionInfo, error) {
	infos := make([]ports.ContextVersionInfo, 0, len(m.store[conversationID]))
	for id, cm := range m.store[conversationID] {
		info := ports.ContextVersionInfo{VersionID: id}
		if cm.VersionTimestamp != nil {
			info.Timestamp = *cm.VersionTimestamp
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Timestamp.After(infos[j].Timestamp) })
	return infos, nil
}

func (m *mockHistoryRepo) DeleteVersions(ctx context.Context, conversationID string) error {
	delete(m.store, conversationID)
	return nil
}

func (m *mockHistoryRepo) count(conversationID string) int {
	return len(m.store[conversationID])
}

type mockMemoryRepo struct {
	store     map[string]*models.Memory
	backups   int
	backupErr error
	saveErr   error
}

func newMockMemoryRepo() *mockMemoryRepo {
	return &mockMemoryRepo{store: make(map[string]*models.Memory)}
}

func (m *mockMemoryRepo) Load(ctx context.Context, conversationID string) (*models.Memory, error) {
	if mem, ok := m.store[conversationID]; ok {
		return mem, nil
	}
	return nil, domain.ErrMemoryNotFound
}

func (m *mockMemoryRepo) Save(ctx context.Context, memory *models.Memory) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.store[memory.ConversationID] = memory
	return nil
}

func (m *mockMemoryRepo) Delete(ctx context.Context, conversationID string) error {
	delete(m.store, conversationID)
	return nil
}

func (m *mockMemoryRepo) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.store))
	for id := range m.store {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockMemoryRepo) Backup(ctx context.Context) (string, error) {
	if m.backupErr != nil {
		return "", m.backupErr
	}
	m.backups++
	return fmt.Sprintf("memory/backups/test%d", m.backups), nil
}

func (m *mockMemoryRepo) PruneShortTerm(ctx context.Context, olderThan time.Time) (int, error) {
	return 0, nil
}

func (m *mockMemoryRepo) CompactLongTerm(ctx context.Context) error {
	return nil
}

type mockCatalogRepo struct {
	catalogs map[string][]*models.CatalogEntry
	saves    int
	loadErr  error
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{catalogs: make(map[string][]*models.CatalogEntry)}
}

func (m *mockCatalogRepo) LoadCatalog(ctx context.Context, catalog string) ([]*models.CatalogEntry, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.catalogs[catalog], nil
}

func (m *mockCatalogRepo) SaveCatalog(ctx context.Context, catalog string, entries []*models.CatalogEntry) error {
	m.catalogs[catalog] = entries
	m.saves++
	return nil
}

type cachedAnalysis struct {
	analysis *models.SemanticAnalysis
	storedAt time.Time
}

type mockCacheStore struct {
	entries map[string]cachedAnalysis
	deletes int
}

func newMockCacheStore() *mockCacheStore {
	return &mockCacheStore{entries: make(map[string]cachedAnalysis)}
}

func (m *mockCacheStore) Get(ctx context.Context, hash string) (*models.SemanticAnalysis, time.Time, error) {
	if entry, ok := m.entries[hash]; ok {
		return entry.analysis, entry.storedAt, nil
	}
	return nil, time.Time{}, domain.ErrCacheMiss
}

func (m *mockCacheStore) Put(ctx context.Context, hash string, analysis *models.SemanticAnalysis) error {
	m.entries[hash] = cachedAnalysis{analysis: analysis, storedAt: time.Now()}
	return nil
}

func (m *mockCacheStore) Delete(ctx context.Context, hash string) error {
	delete(m.entries, hash)
	m.deletes++
	return nil
}

func (m *mockCacheStore) Entries(ctx context.Context) ([]ports.CacheEntryInfo, error) {
	infos := make([]ports.CacheEntryInfo, 0, len(m.entries))
	for hash, entry := range m.entries {
		infos = append(infos, ports.CacheEntryInfo{Hash: hash, StoredAt: entry.storedAt})
	}
	return infos, nil
}

type mockKVStore struct {
	data     map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) Read(ctx context.Context, key string, out any) error {
	if m.readErr != nil {
		return m.readErr
	}
	raw, ok := m.data[key]
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (m *mockKVStore) Write(ctx context.Context, key string, value any) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.writes++
	return nil
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockKVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *mockKVStore) Close() error { return nil }

type mockMetricsLog struct {
	records   []*models.UsageRecord
	appendErr error
}

func (m *mockMetricsLog) Append(ctx context.Context, record *models.UsageRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockMetricsLog) Summary(ctx context.Context) (*models.UsageSummary, error) {
	summary := &models.UsageSummary{
		TotalRecords: len(m.records),
		ByOperation:  make(map[string]int),
		ByEntityType: make(map[string]*models.EntityTypeStats),
	}
	for _, record := range m.records {
		summary.ByOperation[record.OperationType]++
	}
	return summary, nil
}

func (m *mockMetricsLog) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	kept := m.records[:0]
	removed := 0
	for _, record := range m.records {
		if record.Timestamp.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	m.records = kept
	return removed, nil
}

type mockFeedbackLog struct {
	records []*models.FeedbackRecord
}

func (m *mockFeedbackLog) Append(ctx context.Context, record *models.FeedbackRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *mockFeedbackLog) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	kept := m.records[:0]
	removed := 0
	for _, record := range m.records {
		if record.Timestamp.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	m.records = kept
	return removed, nil
}

type mockBackupStore struct {
	backups   int
	backupErr error
}

func (m *mockBackupStore) WriteBackup(ctx context.Context, doc *models.GlobalMemoryDoc) (string, error) {
	if m.backupErr != nil {
		return "", m.backupErr
	}
	m.backups++
	return fmt.Sprintf("global_memory/backups/memory_backup_test%d.json", m.backups), nil
}

type mockConversationStore struct {
	records  map[string]*ports.ConversationRecord
	failures int // errors returned before succeeding
	calls    int
}

func newMockConversationStore() *mockConversationStore {
	return &mockConversationStore{records: make(map[string]*ports.ConversationRecord)}
}

func (m *mockConversationStore) GetConversation(ctx context.Context, conversationID string) (*ports.ConversationRecord, error) {
	m.calls++
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("conversation store unavailable")
	}
	if record, ok := m.records[conversationID]; ok {
		return record, nil
	}
	return nil, domain.ErrConversationMissing
}

type mockDocumentProcessor struct {
	docs      map[string][]*ports.Document
	listErr   error
	searchErr error
}

func newMockDocumentProcessor() *mockDocumentProcessor {
	return &mockDocumentProcessor{docs: make(map[string][]*ports.Document)}
}

func (m *mockDocumentProcessor) GetConversationDocuments(ctx context.Context, conversationID string) ([]*ports.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.docs[conversationID], nil
}

func (m *mockDocumentProcessor) SearchDocuments(ctx context.Context, conversationID, query string) ([]*ports.Document, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	lower := strings.ToLower(query)
	var matches []*ports.Document
	for _, doc := range m.docs[conversationID] {
		if strings.Contains(strings.ToLower(doc.Name), lower) || strings.Contains(strings.ToLower(doc.Content), lower) {
			matches = append(matches, doc)
		}
	}
	return matches, nil
}

type mockEntityExtractor struct {
	entities  []*models.Entity
	searchErr error
}

func (m *mockEntityExtractor) ExtractEntities(ctx context.Context, text string) []*models.Entity {
	return m.entities
}

func (m *mockEntityExtractor) SaveEntity(ctx context.Context, entity *models.Entity) error {
	return nil
}

func (m *mockEntityExtractor) SearchEntities(ctx context.Context, query string, opts ports.EntitySearchOptions) ([]*models.Entity, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.entities, nil
}

func (m *mockEntityExtractor) ExtractEntityRelations(entities []*models.Entity, text string) []*models.Relation {
	return nil
}

type mockAnalyzer struct {
	mu       sync.Mutex
	failures int // analysis errors returned before succeeding
	calls    int
}

func (m *mockAnalyzer) takeTurn() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("analyzer unavailable")
	}
	return nil
}

func (m *mockAnalyzer) AnalyzeMessage(ctx context.Context, conversationID, userID, message string) (*models.ContextMap, error) {
	if err := m.takeTurn(); err != nil {
		return nil, err
	}
	return models.NewContextMap(conversationID, message), nil
}

func (m *mockAnalyzer) UpdateAfterResponse(ctx context.Context, conversationID, userID string, contextMap *models.ContextMap, userMessage, botResponse string) (*models.ContextMap, error) {
	if err := m.takeTurn(); err != nil {
		return nil, err
	}
	if contextMap == nil {
		contextMap = models.NewContextMap(conversationID, userMessage)
	}
	contextMap.LastBotResponse = botResponse
	return contextMap, nil
}

func (m *mockAnalyzer) GetStats(ctx context.Context) (*ports.AnalyzerStats, error) {
	return &ports.AnalyzerStats{}, nil
}

type mockMemoryStore struct {
	results   []*models.MemorySearchResult
	items     []*models.MemoryItem
	searchErr error
	updateErr error
}

func (m *mockMemoryStore) GetMemory(ctx context.Context, conversationID, userID string) (*models.Memory, error) {
	return models.NewMemory(conversationID, userID), nil
}

func (m *mockMemoryStore) UpdateMemory(ctx context.Context, conversationID, userID string, item *models.MemoryItem) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.items = append(m.items, item)
	return nil
}

func (m *mockMemoryStore) SearchMemory(ctx context.Context, conversationID, query string) ([]*models.MemorySearchResult, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockMemoryStore) DeleteMemory(ctx context.Context, conversationID string) error { return nil }

func (m *mockMemoryStore) ResetMemory(ctx context.Context) error { return nil }

func (m *mockMemoryStore) PromoteToLongTermMemory(ctx context.Context, conversationID string, itemIDs []string) (int, error) {
	return 0, nil
}

func (m *mockMemoryStore) PerformMaintenance(ctx context.Context) error { return nil }

type mockGlobalMemory struct {
	enrichErr error
	updateErr error
	updates   int
}

func (m *mockGlobalMemory) GetGlobalMemoryContext(ctx context.Context) (*models.GlobalMemoryDoc, error) {
	return models.NewGlobalMemoryDoc(), nil
}

func (m *mockGlobalMemory) EnrichContextWithGlobalMemory(ctx context.Context, contextMap *models.ContextMap, opts ports.GlobalEnrichOptions) (*models.ContextMap, error) {
	if m.enrichErr != nil {
		return nil, m.enrichErr
	}
	if contextMap.GlobalMemory == nil {
		contextMap.GlobalMemory = &models.GlobalMemoryView{}
	}
	return contextMap, nil
}

func (m *mockGlobalMemory) UpdateGlobalMemory(ctx context.Context, contextMap *models.ContextMap, userMessage, botResponse, conversationID string, opts ports.GlobalUpdateOptions) (bool, error) {
	if m.updateErr != nil {
		return false, m.updateErr
	}
	m.updates++
	return true, nil
}

func (m *mockGlobalMemory) ResetGlobalMemory(ctx context.Context) error { return nil }

func (m *mockGlobalMemory) ProvideFeedback(ctx context.Context, entityName, entityType string, feedback *models.EntityFeedback) error {
	return nil
}

func (m *mockGlobalMemory) PerformMaintenance(ctx context.Context) error { return nil }

func (m *mockGlobalMemory) GetGlobalMemoryStats(ctx context.Context) (*ports.GlobalMemoryStatsView, error) {
	return &ports.GlobalMemoryStatsView{}, nil
}
