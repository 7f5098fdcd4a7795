package ports

import (
	"context"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// EmbeddingResult represents the result of embedding generation
type EmbeddingResult struct {
	Embedding  []float32 `json:"embedding"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
}

// EmbeddingService defines the interface for generating embeddings
type EmbeddingService interface {
	Embed(ctx context.Context, text string) (*EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string) ([]*EmbeddingResult, error)
	GetDimensions() int
}

// ConversationRecord is the slice of a conversation the pipeline consumes.
type ConversationRecord struct {
	ID       string                       `json:"id"`
	Messages []models.ConversationMessage `json:"messages"`
}

// ConversationStore is the external owner of conversation transcripts.
type ConversationStore interface {
	GetConversation(ctx context.Context, conversationID string) (*ConversationRecord, error)
}

// Document is an uploaded document as exposed by the document processor.
// Content is pre-extracted text; parsing happens upstream.
type Document struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
}

// DocumentProcessor is the external file upload/parsing service.
type DocumentProcessor interface {
	GetConversationDocuments(ctx context.Context, conversationID string) ([]*Document, error)
	SearchDocuments(ctx context.Context, conversationID, query string) ([]*Document, error)
}

// SemanticService produces text vectors and similarity scores for the
// pipeline. Vectorization failures surface as nil vectors and similarity
// over nil or zero-norm vectors is 0, so callers can always proceed.
type SemanticService interface {
	Vectorize(ctx context.Context, text string) []float32
	VectorizeBatch(ctx context.Context, texts []string) [][]float32
	Similarity(v1, v2 []float32) float64
}

// EntitySearchOptions filters a catalog entity search.
type EntitySearchOptions struct {
	Type string
}

// EntityExtractor finds named entities and their relations in text.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) []*models.Entity
	SaveEntity(ctx context.Context, entity *models.Entity) error
	SearchEntities(ctx context.Context, query string, opts EntitySearchOptions) ([]*models.Entity, error)
	ExtractEntityRelations(entities []*models.Entity, text string) []*models.Relation
}

// CacheStats is the hit/miss/entries view of the analysis cache.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// AnalyzerStats aggregates the analyzer's cache and context counters.
type AnalyzerStats struct {
	Cache    CacheStats `json:"cache"`
	Contexts struct {
		Count int `json:"count"`
	} `json:"contexts"`
}

// ContextAnalyzer turns raw messages into structured context maps.
type ContextAnalyzer interface {
	AnalyzeMessage(ctx context.Context, conversationID, userID, message string) (*models.ContextMap, error)
	UpdateAfterResponse(ctx context.Context, conversationID, userID string, contextMap *models.ContextMap, userMessage, botResponse string) (*models.ContextMap, error)
	GetStats(ctx context.Context) (*AnalyzerStats, error)
}

// MemoryStore manages the short/long-term memory tiers of a conversation.
type MemoryStore interface {
	GetMemory(ctx context.Context, conversationID, userID string) (*models.Memory, error)
	UpdateMemory(ctx context.Context, conversationID, userID string, item *models.MemoryItem) error
	SearchMemory(ctx context.Context, conversationID, query string) ([]*models.MemorySearchResult, error)
	DeleteMemory(ctx context.Context, conversationID string) error
	ResetMemory(ctx context.Context) error
	PromoteToLongTermMemory(ctx context.Context, conversationID string, itemIDs []string) (int, error)
	PerformMaintenance(ctx context.Context) error
}

// GlobalEnrichOptions tunes what global memory enrichment may disclose.
type GlobalEnrichOptions struct {
	CurrentTopics         []string
	AuthorizedAccessLevel string
	EntitySensitivity     map[string]string
}

// GlobalUpdateOptions tunes a global memory update.
type GlobalUpdateOptions struct {
	EntitySensitivity map[string]string
}

// GlobalMemoryStatsView is the operator-facing view of the shared document.
type GlobalMemoryStatsView struct {
	EntityCount        int        `json:"entityCount"`
	TopicCount         int        `json:"topicCount"`
	TotalUpdates       int        `json:"totalUpdates"`
	TotalConversations int        `json:"totalConversations"`
	UpdatesLast24h     int        `json:"updatesLast24h"`
	LastUpdated        time.Time  `json:"lastUpdated"`
	LastMaintenance    *time.Time `json:"lastMaintenance,omitempty"`
}

// GlobalMemory is the shared cross-conversation entity/topic store.
type GlobalMemory interface {
	GetGlobalMemoryContext(ctx context.Context) (*models.GlobalMemoryDoc, error)
	EnrichContextWithGlobalMemory(ctx context.Context, contextMap *models.ContextMap, opts GlobalEnrichOptions) (*models.ContextMap, error)
	UpdateGlobalMemory(ctx context.Context, contextMap *models.ContextMap, userMessage, botResponse, conversationID string, opts GlobalUpdateOptions) (bool, error)
	ResetGlobalMemory(ctx context.Context) error
	ProvideFeedback(ctx context.Context, entityName, entityType string, feedback *models.EntityFeedback) error
	PerformMaintenance(ctx context.Context) error
	GetGlobalMemoryStats(ctx context.Context) (*GlobalMemoryStatsView, error)
}
