package models

import (
	"time"
)

// MemoryItem is one (user turn, bot turn) pair plus the metadata extracted
// from it. Relevance drives retention in the long-term tier.
type MemoryItem struct {
	ID                string          `json:"id"`
	UserMessage       string          `json:"userMessage"`
	BotResponse       string          `json:"botResponse"`
	Entities          []*Entity       `json:"entities,omitempty"`
	Topics            []*Topic        `json:"topics,omitempty"`
	Sentiment         *Sentiment      `json:"sentiment,omitempty"`
	Intent            *Intent         `json:"intent,omitempty"`
	Language          *Language       `json:"language,omitempty"`
	IsFollowUp        bool            `json:"isFollowUp,omitempty"`
	RelevantDocuments []*DocumentInfo `json:"relevantDocuments,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
	Relevance         float64         `json:"relevance"`
	AccessCount       int             `json:"accessCount"`
	LastAccessed      time.Time       `json:"lastAccessed"`
	PromotedAt        *time.Time      `json:"promotedAt,omitempty"`
}

func NewMemoryItem(id, userMessage, botResponse string) *MemoryItem {
	now := time.Now()
	return &MemoryItem{
		ID:           id,
		UserMessage:  userMessage,
		BotResponse:  botResponse,
		Timestamp:    now,
		Relevance:    0.5,
		LastAccessed: now,
	}
}

// SetRelevance sets the relevance score (0-1)
func (m *MemoryItem) SetRelevance(relevance float64) {
	m.Relevance = clampScore(relevance)
}

// MarkAccessed bumps the access counter and refreshes lastAccessed.
func (m *MemoryItem) MarkAccessed() {
	m.AccessCount++
	m.LastAccessed = time.Now()
}

// Memory holds the two per-conversation memory tiers. Short-term keeps the
// latest turns; long-term survives overflow when relevance allows.
type Memory struct {
	ConversationID string        `json:"conversationId"`
	UserID         string        `json:"userId,omitempty"`
	ShortTerm      []*MemoryItem `json:"shortTerm"`
	LongTerm       []*MemoryItem `json:"longTerm"`
	LastAccessed   time.Time     `json:"lastAccessed"`
	ItemCount      int           `json:"itemCount"`
}

func NewMemory(conversationID, userID string) *Memory {
	return &Memory{
		ConversationID: conversationID,
		UserID:         userID,
		ShortTerm:      []*MemoryItem{},
		LongTerm:       []*MemoryItem{},
		LastAccessed:   time.Now(),
	}
}

// RecountItems refreshes ItemCount from the two tiers.
func (m *Memory) RecountItems() {
	m.ItemCount = len(m.ShortTerm) + len(m.LongTerm)
}

// View returns the shape attached to a ContextMap under "memory".
func (m *Memory) View() *MemoryView {
	return &MemoryView{
		ShortTerm: m.ShortTerm,
		LongTerm:  m.LongTerm,
		ItemCount: m.ItemCount,
	}
}

// FindShortTerm returns the short-term item with the given id, or nil.
func (m *Memory) FindShortTerm(id string) *MemoryItem {
	for _, item := range m.ShortTerm {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// MemorySearchResult pairs a memory item with its query match score.
type MemorySearchResult struct {
	Item  *MemoryItem `json:"item"`
	Score float64     `json:"score"`
}
