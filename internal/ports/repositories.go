package ports

import (
	"context"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// ContextRepository defines persistence for ContextMap base documents.
// Save transparently fragments documents above the size limit and Load
// reassembles them, so callers always see whole maps.
type ContextRepository interface {
	Load(ctx context.Context, conversationID string) (*models.ContextMap, error)
	Save(ctx context.Context, contextMap *models.ContextMap) error
	Delete(ctx context.Context, conversationID string) error
	List(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, conversationID string) (bool, error)
}

// ContextVersionInfo describes one historical snapshot of a context.
type ContextVersionInfo struct {
	VersionID string    `json:"versionId"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextHistoryRepository defines persistence for versioned context
// snapshots under context-history/.
type ContextHistoryRepository interface {
	SaveVersion(ctx context.Context, contextMap *models.ContextMap) error
	GetVersion(ctx context.Context, conversationID, versionID string) (*models.ContextMap, error)
	ListVersions(ctx context.Context, conversationID string) ([]ContextVersionInfo, error)
	DeleteVersions(ctx context.Context, conversationID string) error
}

// MemoryRepository defines persistence for the two per-conversation memory
// tiers, stored as separate short_term/ and long_term/ documents.
type MemoryRepository interface {
	Load(ctx context.Context, conversationID string) (*models.Memory, error)
	Save(ctx context.Context, memory *models.Memory) error
	Delete(ctx context.Context, conversationID string) error
	List(ctx context.Context) ([]string, error)

	// Backup copies every memory file into a timestamped backup directory
	// and returns its path. Used before destructive resets.
	Backup(ctx context.Context) (string, error)

	// PruneShortTerm removes short-term documents not touched since the
	// cutoff. Returns the number of documents removed.
	PruneShortTerm(ctx context.Context, olderThan time.Time) (int, error)

	// CompactLongTerm re-sorts each long-term document by relevance and
	// truncates it to the configured cap.
	CompactLongTerm(ctx context.Context) error
}

// EntityCatalogRepository defines access to the four known-entity catalogs.
// Catalogs are read into memory at startup; additions rewrite the file.
type EntityCatalogRepository interface {
	LoadCatalog(ctx context.Context, catalog string) ([]*models.CatalogEntry, error)
	SaveCatalog(ctx context.Context, catalog string, entries []*models.CatalogEntry) error
}

// CacheEntryInfo describes one disk-tier analysis cache entry.
type CacheEntryInfo struct {
	Hash      string
	StoredAt  time.Time
	SizeBytes int64
}

// AnalysisCacheStore is the disk tier behind the analysis cache.
type AnalysisCacheStore interface {
	Get(ctx context.Context, hash string) (*models.SemanticAnalysis, time.Time, error)
	Put(ctx context.Context, hash string, analysis *models.SemanticAnalysis) error
	Delete(ctx context.Context, hash string) error
	Entries(ctx context.Context) ([]CacheEntryInfo, error)
}

// KVStore abstracts the external store holding the global memory document.
// Implementations must make writes atomic: readers see either the previous
// or the new value, never a partial document.
type KVStore interface {
	Read(ctx context.Context, key string, out any) error
	Write(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// GlobalBackupStore persists snapshots of the global memory document
// before destructive operations.
type GlobalBackupStore interface {
	WriteBackup(ctx context.Context, doc *models.GlobalMemoryDoc) (string, error)
}

// MetricsLog is the append-only usage metrics store.
type MetricsLog interface {
	Append(ctx context.Context, record *models.UsageRecord) error
	Summary(ctx context.Context) (*models.UsageSummary, error)
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// FeedbackLog records before/after snapshots of entity feedback.
type FeedbackLog interface {
	Append(ctx context.Context, record *models.FeedbackRecord) error
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// IDGenerator creates prefixed unique identifiers
type IDGenerator interface {
	GenerateVersionID() string
	GenerateMemoryItemID() string
	GenerateFeedbackID() string
	GenerateBackupID() string
}
