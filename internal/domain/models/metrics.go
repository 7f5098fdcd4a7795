package models

import (
	"time"
)

// Usage operation types recorded by the metrics log.
const (
	OperationEnrichment      = "enrichment"
	OperationGlobalUpdate    = "global_update"
	OperationFeedback        = "feedback"
	OperationMemoryUpdate    = "memory_update"
	OperationContextAnalysis = "context_analysis"
)

// UsageRecord is one append-only entry in the usage metrics log.
type UsageRecord struct {
	Timestamp     time.Time      `json:"timestamp"`
	OperationType string         `json:"operationType"`
	Details       map[string]any `json:"details,omitempty"`
	WasHelpful    *bool          `json:"wasHelpful,omitempty"`
}

// EntityTypeStats aggregates helpfulness per entity type.
type EntityTypeStats struct {
	TotalUses   int `json:"totalUses"`
	HelpfulUses int `json:"helpfulUses"`
}

// UsageSummary is the aggregated view of the metrics log.
type UsageSummary struct {
	TotalRecords int                         `json:"totalRecords"`
	ByOperation  map[string]int              `json:"byOperation"`
	ByEntityType map[string]*EntityTypeStats `json:"byEntityType"`
	OldestRecord *time.Time                  `json:"oldestRecord,omitempty"`
}
