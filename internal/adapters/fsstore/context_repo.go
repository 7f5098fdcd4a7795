package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

const (
	// Arrays longer than this are stripped from an oversized base document.
	fragmentArrayThreshold = 10
	// Stripped arrays are written out in chunks of this many elements.
	fragmentChunkSize = 10

	fragmentMarker = "_isFragmented"
)

// fragmentDoc is the on-disk shape of one fragment file.
type fragmentDoc struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Index int    `json:"index"`
	Data  []any  `json:"data"`
	Total int    `json:"total"`
}

// ContextRepo stores ContextMaps under contexts/{id}.json. Documents whose
// serialized size exceeds fragmentSize are split: long top-level arrays
// move into {id}_fragment_{n}.json files and the base is marked
// fragmented. Load reassembles, so callers always see whole maps.
type ContextRepo struct {
	dir          string
	fragmentSize int
}

func NewContextRepo(dir string, fragmentSize int) *ContextRepo {
	return &ContextRepo{dir: dir, fragmentSize: fragmentSize}
}

func (r *ContextRepo) basePath(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *ContextRepo) fragmentPath(id string, n int) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_fragment_%d.json", id, n))
}

func (r *ContextRepo) Load(ctx context.Context, conversationID string) (*models.ContextMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := readJSON(r.basePath(conversationID), &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewDomainError(domain.ErrContextNotFound, fmt.Sprintf("context %s not found", conversationID))
		}
		return nil, domain.NewDomainError(domain.ErrContextCorrupted, err.Error())
	}

	if fragmented, _ := doc[fragmentMarker].(bool); fragmented {
		if err := r.reassemble(conversationID, doc); err != nil {
			return nil, err
		}
		delete(doc, fragmentMarker)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrContextCorrupted, err.Error())
	}
	var contextMap models.ContextMap
	if err := json.Unmarshal(raw, &contextMap); err != nil {
		return nil, domain.NewDomainError(domain.ErrContextCorrupted, err.Error())
	}
	return &contextMap, nil
}

// reassemble merges fragment files back into the base document in place.
func (r *ContextRepo) reassemble(conversationID string, doc map[string]any) error {
	// A directory scan on the literal prefix avoids filepath.Glob, which
	// misreads ids containing pattern meta characters.
	prefix := conversationID + "_fragment_"
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".json") {
			paths = append(paths, filepath.Join(r.dir, entry.Name()))
		}
	}

	byKey := make(map[string][]fragmentDoc)
	for _, path := range paths {
		var frag fragmentDoc
		if err := readJSON(path, &frag); err != nil {
			return domain.NewDomainError(domain.ErrContextCorrupted, fmt.Sprintf("fragment %s: %v", filepath.Base(path), err))
		}
		byKey[frag.Key] = append(byKey[frag.Key], frag)
	}

	for key, frags := range byKey {
		sort.Slice(frags, func(i, j int) bool { return frags[i].Index < frags[j].Index })
		if len(frags) != frags[0].Total {
			return domain.NewDomainError(domain.ErrFragmentMissing,
				fmt.Sprintf("context %s key %s: have %d of %d fragments", conversationID, key, len(frags), frags[0].Total))
		}
		merged := make([]any, 0, len(frags)*fragmentChunkSize)
		for _, frag := range frags {
			merged = append(merged, frag.Data...)
		}
		doc[key] = merged
	}
	return nil
}

func (r *ContextRepo) Save(ctx context.Context, contextMap *models.ContextMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if contextMap == nil || contextMap.ConversationID == "" {
		return domain.NewDomainError(domain.ErrInvalidID, "context requires a conversation id")
	}
	id := contextMap.ConversationID

	data, err := json.Marshal(contextMap)
	if err != nil {
		return fmt.Errorf("marshal context %s: %w", id, err)
	}

	if len(data) <= r.fragmentSize {
		if err := writeJSONAtomic(r.basePath(id), contextMap); err != nil {
			return err
		}
		return r.removeFragmentsFrom(id, 0)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("reshape context %s: %w", id, err)
	}

	fragments := splitArrays(doc)
	if len(fragments) == 0 {
		// Oversized but nothing fragmentable; store whole.
		if err := writeJSONAtomic(r.basePath(id), contextMap); err != nil {
			return err
		}
		return r.removeFragmentsFrom(id, 0)
	}

	doc[fragmentMarker] = true

	// Fragments land before the base so a reader that sees the marker
	// always finds its fragments.
	for n, frag := range fragments {
		if err := writeJSONAtomic(r.fragmentPath(id, n), frag); err != nil {
			return err
		}
	}
	if err := writeJSONAtomic(r.basePath(id), doc); err != nil {
		return err
	}
	return r.removeFragmentsFrom(id, len(fragments))
}

// splitArrays strips long top-level arrays out of doc and returns them as
// fragment documents in deterministic key order.
func splitArrays(doc map[string]any) []fragmentDoc {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var fragments []fragmentDoc
	for _, key := range keys {
		arr, ok := doc[key].([]any)
		if !ok || len(arr) <= fragmentArrayThreshold {
			continue
		}
		total := (len(arr) + fragmentChunkSize - 1) / fragmentChunkSize
		for i := 0; i < total; i++ {
			end := (i + 1) * fragmentChunkSize
			if end > len(arr) {
				end = len(arr)
			}
			fragments = append(fragments, fragmentDoc{
				Type:  "fragment",
				Key:   key,
				Index: i,
				Data:  arr[i*fragmentChunkSize : end],
				Total: total,
			})
		}
		delete(doc, key)
	}
	return fragments
}

// removeFragmentsFrom deletes fragment files numbered from onwards, which
// clears leftovers when a context shrinks or defragments.
func (r *ContextRepo) removeFragmentsFrom(id string, from int) error {
	for n := from; ; n++ {
		path := r.fragmentPath(id, n)
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
	}
}

func (r *ContextRepo) Delete(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(r.basePath(conversationID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewDomainError(domain.ErrContextNotFound, fmt.Sprintf("context %s not found", conversationID))
		}
		return err
	}
	return r.removeFragmentsFrom(conversationID, 0)
}

func (r *ContextRepo) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.Contains(name, "_fragment_") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *ContextRepo) Exists(ctx context.Context, conversationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(r.basePath(conversationID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
