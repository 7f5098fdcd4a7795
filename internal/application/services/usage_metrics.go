package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// MetricsService fronts the append-only usage log consumed by feedback and
// enrichment observability.
type MetricsService struct {
	records ports.MetricsLog
}

func NewMetricsService(records ports.MetricsLog) *MetricsService {
	return &MetricsService{records: records}
}

// Record appends one usage record. Append failures are logged, never fatal.
func (s *MetricsService) Record(ctx context.Context, operationType string, details map[string]any, wasHelpful *bool) {
	record := &models.UsageRecord{
		Timestamp:     time.Now(),
		OperationType: operationType,
		Details:       details,
		WasHelpful:    wasHelpful,
	}
	if err := s.records.Append(ctx, record); err != nil {
		log.Warn().Err(err).Str("operation", operationType).Msg("recording usage failed")
	}
}

// Summary aggregates the log into per-operation and per-entity-type counts.
func (s *MetricsService) Summary(ctx context.Context) (*models.UsageSummary, error) {
	return s.records.Summary(ctx)
}

// Prune drops records older than the cutoff and reports how many went.
func (s *MetricsService) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	removed, err := s.records.Prune(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Time("older_than", olderThan).Msg("pruned usage records")
	}
	return removed, nil
}
