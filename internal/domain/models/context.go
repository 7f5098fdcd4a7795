package models

import (
	"encoding/json"
	"time"
)

// Intent names (Spanish-first taxonomy, matching the deployed user base)
const (
	IntentSearchInfo = "buscar_información"
	IntentGenerate   = "generar_contenido"
	IntentAskOpinion = "solicitar_opinión"
	IntentCommand    = "acción_comando"
	IntentGreet      = "saludar"
	IntentThank      = "agradecer"
	IntentFarewell   = "despedirse"
	IntentConfirm    = "confirmar"
	IntentDeny       = "negar"
	IntentClarify    = "aclarar"
	IntentConverse   = "conversar"
)

// Sentiment labels
const (
	SentimentPositive  = "positive"
	SentimentNegative  = "negative"
	SentimentNeutral   = "neutral"
	SentimentConfused  = "confused"
	SentimentUrgent    = "urgent"
	SentimentAnxious   = "anxious"
	SentimentGratitude = "gratitude"
)

// Message structure types
const (
	StructureQuestion  = "question"
	StructureCommand   = "command"
	StructureRequest   = "request"
	StructureCasual    = "casual"
	StructureStatement = "statement"
)

// Complexity levels
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// Reference types
const (
	ReferenceResponse   = "response"
	ReferenceContextual = "contextual"
	ReferenceSemantic   = "semantic"
)

// Intent is the detected purpose of a message.
type Intent struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Language is the detected language of a message.
type Language struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// SentimentStats carries the raw counts behind a sentiment decision.
type SentimentStats struct {
	PositiveMatches  int `json:"positiveMatches"`
	NegativeMatches  int `json:"negativeMatches"`
	ConfusionMatches int `json:"confusionMatches"`
	UrgencyMatches   int `json:"urgencyMatches"`
	TotalTokens      int `json:"totalTokens"`
}

// Sentiment is the emotional reading of a message.
type Sentiment struct {
	Label     string         `json:"label"`
	Score     float64        `json:"score"`
	Intensity float64        `json:"intensity"`
	Stats     SentimentStats `json:"stats"`
}

// MessageStructure describes the grammatical shape of a message.
type MessageStructure struct {
	Type          string `json:"type"`
	IsQuestion    bool   `json:"isQuestion"`
	IsCommand     bool   `json:"isCommand"`
	IsRequest     bool   `json:"isRequest"`
	IsCasual      bool   `json:"isCasual"`
	Complexity    string `json:"complexity"`
	WordCount     int    `json:"wordCount"`
	SentenceCount int    `json:"sentenceCount"`
	ContainsCode  bool   `json:"containsCode"`
}

// QuestionType categorizes a question message.
type QuestionType struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Reference points at an earlier message the current one depends on.
type Reference struct {
	MessageIndex int     `json:"messageIndex"`
	Confidence   float64 `json:"confidence"`
	Type         string  `json:"type"`
	Similarity   float64 `json:"similarity,omitempty"`
}

// ConversationMessage is one turn of the stored conversation history.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DocumentInfo is summary metadata for a document attached to a conversation.
type DocumentInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type,omitempty"`
	Summary   string  `json:"summary,omitempty"`
	Relevance float64 `json:"relevance,omitempty"`
}

// MemoryView is the slice of per-conversation memory attached to a context.
type MemoryView struct {
	ShortTerm []*MemoryItem `json:"shortTerm,omitempty"`
	LongTerm  []*MemoryItem `json:"longTerm,omitempty"`
	ItemCount int           `json:"itemCount"`
}

// GlobalMemoryView is the cross-conversation knowledge injected at
// enrichment time. It is never persisted with the context.
type GlobalMemoryView struct {
	Entities        []*Entity                 `json:"entities,omitempty"`
	Topics          []*Topic                  `json:"topics,omitempty"`
	DomainKnowledge map[string]map[string]any `json:"domainKnowledge,omitempty"`
}

// ContextMap is the per-conversation structured snapshot produced and
// consumed by the context pipeline. Fields prefixed with an underscore in
// JSON are bookkeeping metadata and are never surfaced to the model.
type ContextMap struct {
	CurrentMessage string    `json:"currentMessage"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversationId,omitempty"`
	LastUpdated    time.Time `json:"lastUpdated"`

	RecentMessages []ConversationMessage `json:"recentMessages,omitempty"`

	Entities         []*Entity         `json:"entities,omitempty"`
	Topics           []*Topic          `json:"topics,omitempty"`
	Intent           *Intent           `json:"intent,omitempty"`
	Sentiment        *Sentiment        `json:"sentiment,omitempty"`
	Language         *Language         `json:"language,omitempty"`
	MessageStructure *MessageStructure `json:"messageStructure,omitempty"`
	QuestionType     *QuestionType     `json:"questionType,omitempty"`

	IsFollowUp    bool         `json:"isFollowUp"`
	FollowUpScore float64      `json:"followUpScore"`
	References    []*Reference `json:"references,omitempty"`

	Memory             *MemoryView       `json:"memory,omitempty"`
	AvailableDocuments []*DocumentInfo   `json:"availableDocuments,omitempty"`
	RelevantDocuments  []*DocumentInfo   `json:"relevantDocuments,omitempty"`
	LastBotResponse    string            `json:"lastBotResponse,omitempty"`
	GlobalMemory       *GlobalMemoryView `json:"globalMemory,omitempty"`

	OwnerID          string     `json:"_ownerId,omitempty"`
	AuthorizedUsers  []string   `json:"_authorizedUsers,omitempty"`
	IsFragmented     bool       `json:"_isFragmented,omitempty"`
	VersionID        string     `json:"_versionId,omitempty"`
	VersionTimestamp *time.Time `json:"_versionTimestamp,omitempty"`
}

// NewContextMap creates a minimal context for a message. The current
// message and timestamp are always present, whatever else fails later.
func NewContextMap(conversationID, message string) *ContextMap {
	now := time.Now()
	return &ContextMap{
		CurrentMessage: message,
		Timestamp:      now,
		ConversationID: conversationID,
		LastUpdated:    now,
	}
}

// Touch advances lastUpdated, keeping it monotonic.
func (c *ContextMap) Touch() {
	now := time.Now()
	if now.After(c.LastUpdated) {
		c.LastUpdated = now
	}
}

// TopicNames returns the names of the context's topics in order.
func (c *ContextMap) TopicNames() []string {
	names := make([]string, 0, len(c.Topics))
	for _, t := range c.Topics {
		names = append(names, t.Name)
	}
	return names
}

// HasEntity reports whether the context already carries the entity key.
func (c *ContextMap) HasEntity(key string) bool {
	for _, e := range c.Entities {
		if e.Key() == key {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the context map. Used for version snapshots
// and anywhere a caller must not see in-place mutations.
func (c *ContextMap) Clone() *ContextMap {
	raw, err := json.Marshal(c)
	if err != nil {
		fallback := *c
		return &fallback
	}
	var out ContextMap
	if err := json.Unmarshal(raw, &out); err != nil {
		fallback := *c
		return &fallback
	}
	return &out
}

// IsAuthorized reports whether userID may mutate this context. Contexts
// without an owner are open; owners and listed users are allowed.
func (c *ContextMap) IsAuthorized(userID string) bool {
	if c.OwnerID == "" || userID == "" {
		return true
	}
	if c.OwnerID == userID {
		return true
	}
	for _, u := range c.AuthorizedUsers {
		if u == userID {
			return true
		}
	}
	return false
}
