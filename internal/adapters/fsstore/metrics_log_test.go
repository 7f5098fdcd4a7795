package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

func boolPtr(v bool) *bool { return &v }

func TestMetricsLog_AppendAndSummary(t *testing.T) {
	log := NewMetricsLog(filepath.Join(t.TempDir(), "usage.jsonl"))
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, &models.UsageRecord{
		OperationType: models.OperationEnrichment,
		Details:       map[string]any{"entityType": "person"},
		WasHelpful:    boolPtr(true),
	}))
	require.NoError(t, log.Append(ctx, &models.UsageRecord{
		OperationType: models.OperationEnrichment,
		Details:       map[string]any{"entityType": "person"},
		WasHelpful:    boolPtr(false),
	}))
	require.NoError(t, log.Append(ctx, &models.UsageRecord{
		OperationType: models.OperationGlobalUpdate,
	}))

	summary, err := log.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRecords)
	assert.Equal(t, 2, summary.ByOperation[models.OperationEnrichment])
	assert.Equal(t, 1, summary.ByOperation[models.OperationGlobalUpdate])
	require.Contains(t, summary.ByEntityType, "person")
	assert.Equal(t, 2, summary.ByEntityType["person"].TotalUses)
	assert.Equal(t, 1, summary.ByEntityType["person"].HelpfulUses)
	require.NotNil(t, summary.OldestRecord)
}

func TestMetricsLog_SummaryEmpty(t *testing.T) {
	log := NewMetricsLog(filepath.Join(t.TempDir(), "usage.jsonl"))

	summary, err := log.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalRecords)
	assert.Nil(t, summary.OldestRecord)
}

func TestMetricsLog_Prune(t *testing.T) {
	log := NewMetricsLog(filepath.Join(t.TempDir(), "usage.jsonl"))
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, &models.UsageRecord{
		Timestamp:     time.Now().AddDate(0, 0, -45),
		OperationType: models.OperationContextAnalysis,
	}))
	require.NoError(t, log.Append(ctx, &models.UsageRecord{
		OperationType: models.OperationContextAnalysis,
	}))

	removed, err := log.Prune(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	summary, err := log.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRecords)
}

func TestMetricsLog_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	log := NewMetricsLog(path)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, &models.UsageRecord{OperationType: models.OperationFeedback}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{broken\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.Append(ctx, &models.UsageRecord{OperationType: models.OperationFeedback}))

	summary, err := log.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRecords)
}

func TestFeedbackLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	log := NewFeedbackLog(path)
	ctx := context.Background()

	before := models.NewEntity("Ana", models.EntityTypePerson, 0.9)
	after := models.NewEntity("Ana", models.EntityTypePerson, 0.63)
	record := models.NewFeedbackRecord("cfb_1", "Ana", models.EntityTypePerson,
		&models.EntityFeedback{IsCorrect: false}, before, after)

	require.NoError(t, log.Append(ctx, record))
	require.NoError(t, log.Append(ctx, record))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
}

func TestFeedbackLog_Prune(t *testing.T) {
	log := NewFeedbackLog(filepath.Join(t.TempDir(), "feedback.jsonl"))
	ctx := context.Background()

	entity := models.NewEntity("Ana", models.EntityTypePerson, 0.9)
	old := models.NewFeedbackRecord("cfb_old", "Ana", models.EntityTypePerson,
		&models.EntityFeedback{IsCorrect: true}, entity, entity)
	old.Timestamp = time.Now().AddDate(0, 0, -45)
	recent := models.NewFeedbackRecord("cfb_new", "Ana", models.EntityTypePerson,
		&models.EntityFeedback{IsCorrect: true}, entity, entity)

	require.NoError(t, log.Append(ctx, old))
	require.NoError(t, log.Append(ctx, recent))

	removed, err := log.Prune(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = log.Prune(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
