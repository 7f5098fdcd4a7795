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
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// HistoryRepo stores versioned context snapshots under
// context-history/{id}_{versionId}.json.
type HistoryRepo struct {
	dir string
}

func NewHistoryRepo(dir string) *HistoryRepo {
	return &HistoryRepo{dir: dir}
}

func (r *HistoryRepo) versionPath(conversationID, versionID string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s.json", conversationID, versionID))
}

func (r *HistoryRepo) SaveVersion(ctx context.Context, contextMap *models.ContextMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if contextMap == nil || contextMap.ConversationID == "" {
		return domain.NewDomainError(domain.ErrInvalidID, "history snapshot requires a conversation id")
	}
	if contextMap.VersionID == "" {
		return domain.NewDomainError(domain.ErrInvalidID, "history snapshot requires a version id")
	}
	return writeJSONAtomic(r.versionPath(contextMap.ConversationID, contextMap.VersionID), contextMap)
}

func (r *HistoryRepo) GetVersion(ctx context.Context, conversationID, versionID string) (*models.ContextMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var contextMap models.ContextMap
	if err := readJSON(r.versionPath(conversationID, versionID), &contextMap); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewDomainError(domain.ErrVersionNotFound,
				fmt.Sprintf("version %s of context %s not found", versionID, conversationID))
		}
		return nil, domain.NewDomainError(domain.ErrContextCorrupted, err.Error())
	}
	return &contextMap, nil
}

func (r *HistoryRepo) ListVersions(ctx context.Context, conversationID string) ([]ports.ContextVersionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ports.ContextVersionInfo{}, nil
		}
		return nil, err
	}

	prefix := conversationID + "_"
	infos := make([]ports.ContextVersionInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		versionID := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")

		// Only the version stamp is needed, not the whole snapshot.
		var stamp struct {
			VersionTimestamp *time.Time `json:"_versionTimestamp"`
		}
		if err := readJSON(filepath.Join(r.dir, name), &stamp); err != nil || stamp.VersionTimestamp == nil {
			info, statErr := entry.Info()
			if statErr != nil {
				continue
			}
			mod := info.ModTime()
			stamp.VersionTimestamp = &mod
		}
		infos = append(infos, ports.ContextVersionInfo{
			VersionID: versionID,
			Timestamp: *stamp.VersionTimestamp,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Timestamp.After(infos[j].Timestamp) })
	return infos, nil
}

func (r *HistoryRepo) DeleteVersions(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	prefix := conversationID + "_"
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
