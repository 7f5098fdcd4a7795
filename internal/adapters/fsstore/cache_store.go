package fsstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// cacheDoc is the on-disk shape of one analysis cache entry.
type cacheDoc struct {
	StoredAt time.Time                `json:"storedAt"`
	Analysis *models.SemanticAnalysis `json:"analysis"`
}

// CacheStore is the disk tier of the analysis cache, one JSON file per
// content hash under contexts/cache/.
type CacheStore struct {
	dir string
}

func NewCacheStore(dir string) *CacheStore {
	return &CacheStore{dir: dir}
}

func (s *CacheStore) entryPath(hash string) string {
	return filepath.Join(s.dir, hash+".json")
}

func (s *CacheStore) Get(ctx context.Context, hash string) (*models.SemanticAnalysis, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}
	var doc cacheDoc
	if err := readJSON(s.entryPath(hash), &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, domain.ErrCacheMiss
		}
		// A corrupt entry behaves as a miss; it gets rewritten on Put.
		return nil, time.Time{}, domain.ErrCacheMiss
	}
	if doc.Analysis == nil {
		return nil, time.Time{}, domain.ErrCacheMiss
	}
	return doc.Analysis, doc.StoredAt, nil
}

func (s *CacheStore) Put(ctx context.Context, hash string, analysis *models.SemanticAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeJSONAtomic(s.entryPath(hash), cacheDoc{
		StoredAt: time.Now(),
		Analysis: analysis,
	})
}

func (s *CacheStore) Delete(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.entryPath(hash)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *CacheStore) Entries(ctx context.Context) ([]ports.CacheEntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ports.CacheEntryInfo{}, nil
		}
		return nil, err
	}

	infos := make([]ports.CacheEntryInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, ports.CacheEntryInfo{
			Hash:      strings.TrimSuffix(name, ".json"),
			StoredAt:  fi.ModTime(),
			SizeBytes: fi.Size(),
		})
	}
	return infos, nil
}
