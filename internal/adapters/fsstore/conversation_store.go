package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// ConversationStore reads transcripts the chat application leaves under
// conversations/{id}.json. The pipeline only consumes them; writing is
// the chat application's job.
type ConversationStore struct {
	dir string
}

func NewConversationStore(dir string) *ConversationStore {
	return &ConversationStore{dir: dir}
}

func (s *ConversationStore) GetConversation(ctx context.Context, conversationID string) (*ports.ConversationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if conversationID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "conversation id is required")
	}

	var record ports.ConversationRecord
	if err := readJSON(filepath.Join(s.dir, conversationID+".json"), &record); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewDomainError(domain.ErrConversationMissing,
				fmt.Sprintf("conversation %s not found", conversationID))
		}
		return nil, err
	}
	if record.ID == "" {
		record.ID = conversationID
	}
	return &record, nil
}
