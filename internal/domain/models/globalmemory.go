package models

import (
	"encoding/json"
	"strings"
	"time"
)

// GlobalMemoryStats tracks update activity on the shared document.
// UpdatesLast24h is advisory: the maintenance pass resets it, which only
// approximates a true sliding window.
type GlobalMemoryStats struct {
	TotalUpdates       int       `json:"totalUpdates"`
	TotalConversations int       `json:"totalConversations"`
	ConversationIDs    []string  `json:"conversationIds,omitempty"`
	UpdatesLast24h     int       `json:"updatesLast24h"`
	LastUpdate         time.Time `json:"lastUpdate,omitempty"`
}

// GlobalMemoryDoc is the single shared document of cross-conversation
// knowledge. It lives in the key-value store under "global_memory" and is
// mutated only inside the GlobalMemory service's critical section.
type GlobalMemoryDoc struct {
	Entities        []*Entity                 `json:"entities"`
	Topics          []*Topic                  `json:"topics"`
	DomainKnowledge map[string]map[string]any `json:"domainKnowledge,omitempty"`
	LastUpdated     time.Time                 `json:"lastUpdated"`
	LastMaintenance *time.Time                `json:"lastMaintenance,omitempty"`
	Stats           GlobalMemoryStats         `json:"stats"`
}

func NewGlobalMemoryDoc() *GlobalMemoryDoc {
	return &GlobalMemoryDoc{
		Entities:        []*Entity{},
		Topics:          []*Topic{},
		DomainKnowledge: map[string]map[string]any{},
		LastUpdated:     time.Now(),
	}
}

// Clone returns a deep copy of the document. Updates mutate a clone and
// swap it in only after the store write succeeds, so concurrent readers
// never observe a partially applied update.
func (d *GlobalMemoryDoc) Clone() *GlobalMemoryDoc {
	raw, err := json.Marshal(d)
	if err != nil {
		fallback := *d
		return &fallback
	}
	var out GlobalMemoryDoc
	if err := json.Unmarshal(raw, &out); err != nil {
		fallback := *d
		return &fallback
	}
	return &out
}

// FindEntity returns the entity matching (lowercased name, type), or nil.
func (d *GlobalMemoryDoc) FindEntity(key string) *Entity {
	for _, e := range d.Entities {
		if e.Key() == key {
			return e
		}
	}
	return nil
}

// FindTopic returns the topic with the given lowercased name, or nil.
func (d *GlobalMemoryDoc) FindTopic(lowerName string) *Topic {
	for _, t := range d.Topics {
		if strings.ToLower(t.Name) == lowerName {
			return t
		}
	}
	return nil
}

// RecordConversation notes that a conversation contributed an update.
func (d *GlobalMemoryDoc) RecordConversation(conversationID string) {
	d.Stats.TotalUpdates++
	d.Stats.UpdatesLast24h++
	d.Stats.LastUpdate = time.Now()
	for _, id := range d.Stats.ConversationIDs {
		if id == conversationID {
			return
		}
	}
	d.Stats.ConversationIDs = append(d.Stats.ConversationIDs, conversationID)
	d.Stats.TotalConversations++
}
