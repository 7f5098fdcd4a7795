package models

import (
	"strings"
	"time"
)

// Entity types recognized by the extractor
const (
	EntityTypePerson       = "person"
	EntityTypeOrganization = "organization"
	EntityTypeLocation     = "location"
	EntityTypeDate         = "date"
	EntityTypeTechnology   = "technology"
	EntityTypeMoney        = "money"
	EntityTypeEmail        = "email"
	EntityTypeURL          = "url"
	EntityTypeConcept      = "concept"
)

// Sensitivity levels, ordered from least to most restrictive
const (
	SensitivityPublic     = "public"
	SensitivityRestricted = "restricted"
	SensitivitySensitive  = "sensitive"
)

// sensitivityRank maps levels to their restrictiveness order
var sensitivityRank = map[string]int{
	SensitivityPublic:     0,
	SensitivityRestricted: 1,
	SensitivitySensitive:  2,
}

// SensitivityRank returns the restrictiveness order of a level.
// Unknown levels rank as public.
func SensitivityRank(level string) int {
	return sensitivityRank[level]
}

// MoreRestrictive returns whichever of the two levels is more restrictive.
func MoreRestrictive(a, b string) string {
	if sensitivityRank[b] > sensitivityRank[a] {
		return b
	}
	return a
}

// Entity is a named entity observed in conversation text.
// (lowercased name, type) is unique within any store holding entities.
type Entity struct {
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Confidence       float64   `json:"confidence"`
	Description      string    `json:"description,omitempty"`
	Aliases          []string  `json:"aliases,omitempty"`
	Embedding        []float32 `json:"embedding,omitempty"`
	Occurrences      int       `json:"occurrences"`
	FirstSeen        time.Time `json:"firstSeen"`
	LastSeen         time.Time `json:"lastSeen"`
	SensitivityLevel string    `json:"sensitivityLevel,omitempty"`
}

func NewEntity(name, entityType string, confidence float64) *Entity {
	now := time.Now()
	return &Entity{
		Name:             name,
		Type:             entityType,
		Confidence:       clampScore(confidence),
		Occurrences:      1,
		FirstSeen:        now,
		LastSeen:         now,
		SensitivityLevel: SensitivityPublic,
	}
}

// Key returns the identity of the entity within a store.
func (e *Entity) Key() string {
	return strings.ToLower(e.Name) + "|" + e.Type
}

// SetConfidence sets the confidence score (0-1)
func (e *Entity) SetConfidence(confidence float64) {
	e.Confidence = clampScore(confidence)
}

// Observe merges a new observation of the same entity: occurrences grow,
// confidence keeps the max, sensitivity is only ever raised.
func (e *Entity) Observe(other *Entity) {
	e.Occurrences++
	if other.Confidence > e.Confidence {
		e.Confidence = other.Confidence
	}
	if other.Description != "" && e.Description == "" {
		e.Description = other.Description
	}
	if len(other.Embedding) > 0 && len(e.Embedding) == 0 {
		e.Embedding = other.Embedding
	}
	for _, alias := range other.Aliases {
		e.addAlias(alias)
	}
	e.SensitivityLevel = MoreRestrictive(e.SensitivityLevel, other.SensitivityLevel)
	e.LastSeen = time.Now()
}

func (e *Entity) addAlias(alias string) {
	for _, a := range e.Aliases {
		if strings.EqualFold(a, alias) {
			return
		}
	}
	e.Aliases = append(e.Aliases, alias)
}

// Topic is a conversation subject with an aggregated confidence.
// Unique by lowercased name within a store.
type Topic struct {
	Name        string    `json:"name"`
	Confidence  float64   `json:"confidence"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Occurrences int       `json:"occurrences"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
}

func NewTopic(name string, confidence float64) *Topic {
	now := time.Now()
	return &Topic{
		Name:        name,
		Confidence:  clampScore(confidence),
		Occurrences: 1,
		FirstSeen:   now,
		LastSeen:    now,
	}
}

// Observe merges a new observation of the same topic. Confidence moves
// toward the new value as a rolling average weighted 1/(occurrences+1).
func (t *Topic) Observe(confidence float64) {
	weight := 1.0 / float64(t.Occurrences+1)
	t.Confidence = clampScore(t.Confidence*(1-weight) + confidence*weight)
	t.Occurrences++
	t.LastSeen = time.Now()
}

// Relation links two entities found in the same text.
type Relation struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Key returns the identity of the relation for deduplication.
func (r *Relation) Key() string {
	return strings.ToLower(r.Source) + "|" + strings.ToLower(r.Target) + "|" + r.Type
}

// CatalogEntry is one known entity loaded from an on-disk catalog.
type CatalogEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Catalog types map to the four on-disk catalogs.
const (
	CatalogPersons       = "persons"
	CatalogOrganizations = "organizations"
	CatalogLocations     = "locations"
	CatalogConcepts      = "concepts"
)

// CatalogEntityType maps a catalog name to the entity type its matches carry.
func CatalogEntityType(catalog string) string {
	switch catalog {
	case CatalogPersons:
		return EntityTypePerson
	case CatalogOrganizations:
		return EntityTypeOrganization
	case CatalogLocations:
		return EntityTypeLocation
	default:
		return EntityTypeConcept
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
