package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// ValidateID checks that an ID is not empty
func ValidateID(id string, entityType string) error {
	if id == "" {
		return domain.NewDomainError(domain.ErrInvalidID, entityType+" ID cannot be empty")
	}
	return nil
}

// ValidateRequired checks that a required string field is not empty
func ValidateRequired(value string, fieldName string) error {
	if value == "" {
		return domain.NewDomainError(domain.ErrInvalidInput, fieldName+" is required")
	}
	return nil
}

// ValidateScore checks that a confidence-like value is within [0, 1]
func ValidateScore(value float64, fieldName string) error {
	if value < 0 || value > 1 {
		return domain.NewDomainError(domain.ErrInvalidInput,
			fmt.Sprintf("%s must be between 0 and 1 (got %g)", fieldName, value))
	}
	return nil
}

var knownSentimentLabels = map[string]bool{
	models.SentimentPositive:  true,
	models.SentimentNegative:  true,
	models.SentimentNeutral:   true,
	models.SentimentConfused:  true,
	models.SentimentUrgent:    true,
	models.SentimentAnxious:   true,
	models.SentimentGratitude: true,
}

var knownStructureTypes = map[string]bool{
	models.StructureQuestion:  true,
	models.StructureCommand:   true,
	models.StructureRequest:   true,
	models.StructureCasual:    true,
	models.StructureStatement: true,
}

// ValidateContextMap checks a context map against the persisted schema and
// returns every problem found. An empty slice means the map is valid.
func ValidateContextMap(cm *models.ContextMap) []string {
	if cm == nil {
		return []string{"context map is nil"}
	}
	var problems []string

	if cm.Timestamp.IsZero() {
		problems = append(problems, "timestamp is missing")
	}
	if cm.LastUpdated.IsZero() {
		problems = append(problems, "lastUpdated is missing")
	} else if !cm.Timestamp.IsZero() && cm.LastUpdated.Before(cm.Timestamp.Add(-time.Second)) {
		problems = append(problems, "lastUpdated precedes timestamp")
	}

	for i, e := range cm.Entities {
		switch {
		case e == nil:
			problems = append(problems, fmt.Sprintf("entities[%d] is nil", i))
		case strings.TrimSpace(e.Name) == "":
			problems = append(problems, fmt.Sprintf("entities[%d] has no name", i))
		case e.Confidence < 0 || e.Confidence > 1:
			problems = append(problems, fmt.Sprintf("entities[%d] confidence %g out of range", i, e.Confidence))
		}
	}
	for i, t := range cm.Topics {
		switch {
		case t == nil:
			problems = append(problems, fmt.Sprintf("topics[%d] is nil", i))
		case strings.TrimSpace(t.Name) == "":
			problems = append(problems, fmt.Sprintf("topics[%d] has no name", i))
		case t.Confidence < 0 || t.Confidence > 1:
			problems = append(problems, fmt.Sprintf("topics[%d] confidence %g out of range", i, t.Confidence))
		}
	}
	for i, r := range cm.References {
		switch {
		case r == nil:
			problems = append(problems, fmt.Sprintf("references[%d] is nil", i))
		case r.MessageIndex < 0:
			problems = append(problems, fmt.Sprintf("references[%d] has negative message index", i))
		case r.Confidence < 0 || r.Confidence > 1:
			problems = append(problems, fmt.Sprintf("references[%d] confidence %g out of range", i, r.Confidence))
		}
	}

	if cm.Intent != nil && (cm.Intent.Confidence < 0 || cm.Intent.Confidence > 1) {
		problems = append(problems, "intent confidence out of range")
	}
	if cm.Sentiment != nil && !knownSentimentLabels[cm.Sentiment.Label] {
		problems = append(problems, fmt.Sprintf("unknown sentiment label %q", cm.Sentiment.Label))
	}
	if cm.MessageStructure != nil && !knownStructureTypes[cm.MessageStructure.Type] {
		problems = append(problems, fmt.Sprintf("unknown structure type %q", cm.MessageStructure.Type))
	}
	if cm.FollowUpScore < 0 || cm.FollowUpScore > 1 {
		problems = append(problems, "followUpScore out of range")
	}

	return problems
}
