package fsstore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// GlobalBackupStore snapshots the global memory document to
// global_memory/backups/memory_backup_{ts}.json before destructive
// operations.
type GlobalBackupStore struct {
	dir string
}

func NewGlobalBackupStore(dir string) *GlobalBackupStore {
	return &GlobalBackupStore{dir: dir}
}

func (s *GlobalBackupStore) WriteBackup(ctx context.Context, doc *models.GlobalMemoryDoc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("memory_backup_%s.json", time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(s.dir, "backups", name)
	if err := writeJSONAtomic(path, doc); err != nil {
		return "", err
	}
	return path, nil
}
