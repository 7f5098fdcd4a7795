package models

import (
	"time"
)

// SemanticAnalysis is the cacheable output of semantic extraction for one
// message: everything that depends only on the message text, not on the
// conversation it arrived in.
type SemanticAnalysis struct {
	Entities         []*Entity         `json:"entities,omitempty"`
	Topics           []*Topic          `json:"topics,omitempty"`
	Intent           *Intent           `json:"intent,omitempty"`
	Sentiment        *Sentiment        `json:"sentiment,omitempty"`
	Language         *Language         `json:"language,omitempty"`
	MessageStructure *MessageStructure `json:"messageStructure,omitempty"`
	QuestionType     *QuestionType     `json:"questionType,omitempty"`
	AnalyzedAt       time.Time         `json:"analyzedAt"`
}

// ApplyTo copies the analysis results into a context map.
func (a *SemanticAnalysis) ApplyTo(ctx *ContextMap) {
	ctx.Entities = a.Entities
	ctx.Topics = a.Topics
	ctx.Intent = a.Intent
	ctx.Sentiment = a.Sentiment
	ctx.Language = a.Language
	ctx.MessageStructure = a.MessageStructure
	ctx.QuestionType = a.QuestionType
}

// AnalysisFrom collects the cacheable fields of a context map.
func AnalysisFrom(ctx *ContextMap) *SemanticAnalysis {
	return &SemanticAnalysis{
		Entities:         ctx.Entities,
		Topics:           ctx.Topics,
		Intent:           ctx.Intent,
		Sentiment:        ctx.Sentiment,
		Language:         ctx.Language,
		MessageStructure: ctx.MessageStructure,
		QuestionType:     ctx.QuestionType,
		AnalyzedAt:       time.Now(),
	}
}
