package models

import (
	"time"
)

// EntityFeedback is a user's verdict on a stored global-memory entity.
type EntityFeedback struct {
	IsCorrect            bool     `json:"isCorrect"`
	CorrectedDescription string   `json:"correctedDescription,omitempty"`
	CorrectedConfidence  *float64 `json:"correctedConfidence,omitempty"`
	UserComment          string   `json:"userComment,omitempty"`
}

// FeedbackRecord is one before/after snapshot written to the append-only
// feedback log when feedback is applied to an entity.
type FeedbackRecord struct {
	ID         string          `json:"id"`
	EntityName string          `json:"entityName"`
	EntityType string          `json:"entityType"`
	Feedback   *EntityFeedback `json:"feedback"`
	Before     *Entity         `json:"before"`
	After      *Entity         `json:"after"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewFeedbackRecord(id, entityName, entityType string, feedback *EntityFeedback, before, after *Entity) *FeedbackRecord {
	return &FeedbackRecord{
		ID:         id,
		EntityName: entityName,
		EntityType: entityType,
		Feedback:   feedback,
		Before:     before,
		After:      after,
		Timestamp:  time.Now(),
	}
}
