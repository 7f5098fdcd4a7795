package fsstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// DocumentStore serves pre-extracted documents the upload service leaves
// under documents/{conversationID}/{docID}.json. Parsing and text
// extraction happen upstream; this adapter only lists and matches.
type DocumentStore struct {
	dir string
}

func NewDocumentStore(dir string) *DocumentStore {
	return &DocumentStore{dir: dir}
}

func (s *DocumentStore) GetConversationDocuments(ctx context.Context, conversationID string) ([]*ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if conversationID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}

	dir := filepath.Join(s.dir, conversationID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*ports.Document{}, nil
	}
	if err != nil {
		return nil, err
	}

	docs := make([]*ports.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var doc ports.Document
		if err := readJSON(filepath.Join(dir, entry.Name()), &doc); err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).
				Str("file", entry.Name()).Msg("skipping unreadable document")
			continue
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(entry.Name(), ".json")
		}
		docs = append(docs, &doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Name != docs[j].Name {
			return docs[i].Name < docs[j].Name
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// SearchDocuments matches the query as a case-insensitive substring of a
// document's name, summary, or extracted content.
func (s *DocumentStore) SearchDocuments(ctx context.Context, conversationID, query string) ([]*ports.Document, error) {
	docs, err := s.GetConversationDocuments(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []*ports.Document{}, nil
	}

	var matches []*ports.Document
	for _, doc := range docs {
		haystack := strings.ToLower(doc.Name + " " + doc.Summary + " " + doc.Content)
		if strings.Contains(haystack, q) {
			matches = append(matches, doc)
		}
	}
	return matches, nil
}
