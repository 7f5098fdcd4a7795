package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

const (
	shortTermDir = "short_term"
	longTermDir  = "long_term"
	backupsDir   = "backups"
)

// memoryTierDoc is the on-disk shape of one memory tier file.
type memoryTierDoc struct {
	ConversationID string               `json:"conversationId"`
	UserID         string               `json:"userId,omitempty"`
	Items          []*models.MemoryItem `json:"items"`
	LastAccessed   time.Time            `json:"lastAccessed"`
}

// MemoryRepo stores per-conversation memory as two tier documents,
// memory/short_term/{id}.json and memory/long_term/{id}.json, plus
// timestamped backup snapshots under memory/backups/.
type MemoryRepo struct {
	dir         string
	maxLongTerm int
}

func NewMemoryRepo(dir string, maxLongTerm int) *MemoryRepo {
	return &MemoryRepo{dir: dir, maxLongTerm: maxLongTerm}
}

func (r *MemoryRepo) tierPath(tier, conversationID string) string {
	return filepath.Join(r.dir, tier, conversationID+".json")
}

func (r *MemoryRepo) Load(ctx context.Context, conversationID string) (*models.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var short, long memoryTierDoc
	shortErr := readJSON(r.tierPath(shortTermDir, conversationID), &short)
	longErr := readJSON(r.tierPath(longTermDir, conversationID), &long)

	if errors.Is(shortErr, fs.ErrNotExist) && errors.Is(longErr, fs.ErrNotExist) {
		return nil, domain.NewDomainError(domain.ErrMemoryNotFound,
			fmt.Sprintf("memory for conversation %s not found", conversationID))
	}
	if shortErr != nil && !errors.Is(shortErr, fs.ErrNotExist) {
		return nil, shortErr
	}
	if longErr != nil && !errors.Is(longErr, fs.ErrNotExist) {
		return nil, longErr
	}

	memory := models.NewMemory(conversationID, firstNonEmpty(short.UserID, long.UserID))
	memory.ShortTerm = short.Items
	memory.LongTerm = long.Items
	memory.LastAccessed = short.LastAccessed
	if long.LastAccessed.After(memory.LastAccessed) {
		memory.LastAccessed = long.LastAccessed
	}
	memory.RecountItems()
	return memory, nil
}

func (r *MemoryRepo) Save(ctx context.Context, memory *models.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if memory == nil || memory.ConversationID == "" {
		return domain.NewDomainError(domain.ErrInvalidID, "memory requires a conversation id")
	}

	short := memoryTierDoc{
		ConversationID: memory.ConversationID,
		UserID:         memory.UserID,
		Items:          memory.ShortTerm,
		LastAccessed:   memory.LastAccessed,
	}
	if err := writeJSONAtomic(r.tierPath(shortTermDir, memory.ConversationID), short); err != nil {
		return err
	}

	long := memoryTierDoc{
		ConversationID: memory.ConversationID,
		UserID:         memory.UserID,
		Items:          memory.LongTerm,
		LastAccessed:   memory.LastAccessed,
	}
	return writeJSONAtomic(r.tierPath(longTermDir, memory.ConversationID), long)
}

func (r *MemoryRepo) Delete(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, tier := range []string{shortTermDir, longTermDir} {
		if err := os.Remove(r.tierPath(tier, conversationID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, tier := range []string{shortTermDir, longTermDir} {
		entries, err := os.ReadDir(filepath.Join(r.dir, tier))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			seen[strings.TrimSuffix(name, ".json")] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Backup copies every tier file into a timestamped directory and returns
// its path.
func (r *MemoryRepo) Backup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	backupPath := filepath.Join(r.dir, backupsDir, time.Now().UTC().Format("20060102-150405"))

	for _, tier := range []string{shortTermDir, longTermDir} {
		entries, err := os.ReadDir(filepath.Join(r.dir, tier))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", err
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			src := filepath.Join(r.dir, tier, entry.Name())
			data, err := os.ReadFile(src)
			if err != nil {
				return "", err
			}
			if err := writeFileAtomic(filepath.Join(backupPath, tier, entry.Name()), data); err != nil {
				return "", err
			}
		}
	}
	return backupPath, nil
}

func (r *MemoryRepo) PruneShortTerm(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(filepath.Join(r.dir, shortTermDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, shortTermDir, entry.Name())
		var doc memoryTierDoc
		if err := readJSON(path, &doc); err != nil {
			continue
		}
		if doc.LastAccessed.Before(olderThan) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (r *MemoryRepo) CompactLongTerm(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(filepath.Join(r.dir, longTermDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, longTermDir, entry.Name())
		var doc memoryTierDoc
		if err := readJSON(path, &doc); err != nil {
			continue
		}
		sort.SliceStable(doc.Items, func(i, j int) bool {
			return doc.Items[i].Relevance > doc.Items[j].Relevance
		})
		if r.maxLongTerm > 0 && len(doc.Items) > r.maxLongTerm {
			doc.Items = doc.Items[:r.maxLongTerm]
		}
		if err := writeJSONAtomic(path, doc); err != nil {
			return err
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
