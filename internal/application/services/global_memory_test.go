package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

type globalFixture struct {
	kv       *mockKVStore
	backups  *mockBackupStore
	usage    *mockMetricsLog
	feedback *mockFeedbackLog
	svc      *GlobalMemoryService
}

func newGlobalFixture() *globalFixture {
	f := &globalFixture{
		kv:       newMockKVStore(),
		backups:  &mockBackupStore{},
		usage:    &mockMetricsLog{},
		feedback: &mockFeedbackLog{},
	}
	f.svc = NewGlobalMemoryService(
		f.kv,
		f.backups,
		NewSemanticService(&mockEmbeddingService{}),
		f.usage,
		f.feedback,
		&mockIDGenerator{},
		100, // maxEntities
		50,  // maxTopics
		1,   // minOccurrences
		0.9, // decayFactor
	)
	return f
}

func storedGlobalDoc(t *testing.T, kv *mockKVStore) *models.GlobalMemoryDoc {
	t.Helper()
	var doc models.GlobalMemoryDoc
	if err := kv.Read(context.Background(), "global_memory", &doc); err != nil {
		t.Fatalf("reading global memory: %v", err)
	}
	return &doc
}

func contextWithEntity(conversationID string, e *models.Entity) *models.ContextMap {
	cm := models.NewContextMap(conversationID, "mensaje")
	cm.Entities = []*models.Entity{e}
	return cm
}

func TestGlobalMemoryService_UpdateGlobalMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("first update seeds the document", func(t *testing.T) {
		f := newGlobalFixture()
		cm := models.NewContextMap("conv1", "háblame de telmex")
		cm.Entities = []*models.Entity{models.NewEntity("Telmex", models.EntityTypeOrganization, 0.8)}
		cm.Topics = []*models.Topic{models.NewTopic("negocios", 0.6)}

		updated, err := f.svc.UpdateGlobalMemory(ctx, cm, "háblame de telmex", "claro", "conv1", ports.GlobalUpdateOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !updated {
			t.Fatal("expected an update")
		}
		doc := storedGlobalDoc(t, f.kv)
		if len(doc.Entities) != 1 || doc.Entities[0].Name != "Telmex" {
			t.Fatalf("expected Telmex stored, got %v", doc.Entities)
		}
		if len(doc.Entities[0].Embedding) != mockEmbeddingDims {
			t.Errorf("expected embedding filled, got %d dims", len(doc.Entities[0].Embedding))
		}
		if len(doc.Topics) != 1 || doc.Topics[0].Name != "negocios" {
			t.Fatalf("expected topic stored, got %v", doc.Topics)
		}
		if doc.Stats.TotalUpdates != 1 || doc.Stats.TotalConversations != 1 {
			t.Errorf("expected stats recorded, got %+v", doc.Stats)
		}
	})

	t.Run("repeated observations accumulate", func(t *testing.T) {
		f := newGlobalFixture()

		for i, conf := range []float64{0.5, 0.9, 0.3} {
			conv := fmt.Sprintf("conv%d", i%2) // conv0, conv1, conv0
			cm := contextWithEntity(conv, models.NewEntity("docker", models.EntityTypeTechnology, conf))
			if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", conv, ports.GlobalUpdateOptions{}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		doc := storedGlobalDoc(t, f.kv)
		e := doc.FindEntity("docker|technology")
		if e == nil {
			t.Fatal("expected docker entity")
		}
		if e.Occurrences != 3 {
			t.Errorf("expected 3 occurrences, got %d", e.Occurrences)
		}
		if e.Confidence != 0.9 {
			t.Errorf("expected confidence to keep its peak, got %f", e.Confidence)
		}
		if doc.Stats.TotalUpdates != 3 || doc.Stats.TotalConversations != 2 {
			t.Errorf("expected 3 updates from 2 conversations, got %+v", doc.Stats)
		}
	})

	t.Run("no entities or topics is a no-op", func(t *testing.T) {
		f := newGlobalFixture()

		updated, err := f.svc.UpdateGlobalMemory(ctx, models.NewContextMap("conv1", "hola"), "hola", "buenas", "conv1", ports.GlobalUpdateOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated {
			t.Error("expected no update")
		}
		if f.kv.writes != 0 {
			t.Errorf("expected no writes, got %d", f.kv.writes)
		}
	})

	t.Run("classifies sensitivity on ingest", func(t *testing.T) {
		f := newGlobalFixture()
		cm := models.NewContextMap("conv1", "varios")
		cm.Entities = []*models.Entity{
			models.NewEntity("Juan Pérez", models.EntityTypePerson, 0.8),
			models.NewEntity("api_password", models.EntityTypeTechnology, 0.8),
			models.NewEntity("borrador informe", models.EntityTypeConcept, 0.8),
			models.NewEntity("docker", models.EntityTypeTechnology, 0.8),
		}

		if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", "conv1", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		doc := storedGlobalDoc(t, f.kv)
		for _, tc := range []struct {
			key   string
			level string
		}{
			{"juan pérez|person", models.SensitivitySensitive},
			{"api_password|technology", models.SensitivitySensitive},
			{"borrador informe|concept", models.SensitivityRestricted},
			{"docker|technology", models.SensitivityPublic},
		} {
			e := doc.FindEntity(tc.key)
			if e == nil {
				t.Fatalf("expected entity %s", tc.key)
			}
			if e.SensitivityLevel != tc.level {
				t.Errorf("expected %s to be %s, got %s", tc.key, tc.level, e.SensitivityLevel)
			}
		}
	})

	t.Run("explicit sensitivity override wins", func(t *testing.T) {
		f := newGlobalFixture()
		cm := contextWithEntity("conv1", models.NewEntity("docker", models.EntityTypeTechnology, 0.8))
		opts := ports.GlobalUpdateOptions{EntitySensitivity: map[string]string{"docker": models.SensitivityRestricted}}

		if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", "conv1", opts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		e := storedGlobalDoc(t, f.kv).FindEntity("docker|technology")
		if e == nil || e.SensitivityLevel != models.SensitivityRestricted {
			t.Errorf("expected override to restricted, got %+v", e)
		}
	})

	t.Run("capacity keeps the most observed", func(t *testing.T) {
		kv := newMockKVStore()
		svc := NewGlobalMemoryService(
			kv, &mockBackupStore{}, NewSemanticService(&mockEmbeddingService{}),
			nil, &mockFeedbackLog{}, &mockIDGenerator{},
			2, 50, 1, 0.9,
		)
		cm := models.NewContextMap("conv1", "varios")
		cm.Entities = []*models.Entity{
			models.NewEntity("alfa", models.EntityTypeConcept, 0.9),
			models.NewEntity("beta", models.EntityTypeConcept, 0.8),
			models.NewEntity("gamma", models.EntityTypeConcept, 0.7),
		}

		if _, err := svc.UpdateGlobalMemory(ctx, cm, "u", "b", "conv1", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		doc := storedGlobalDoc(t, kv)
		if len(doc.Entities) != 2 {
			t.Fatalf("expected 2 entities kept, got %d", len(doc.Entities))
		}
		if doc.FindEntity("gamma|concept") != nil {
			t.Error("expected the weakest entity evicted")
		}
	})

	t.Run("failed write leaves the served copy untouched", func(t *testing.T) {
		f := newGlobalFixture()
		cm := contextWithEntity("conv1", models.NewEntity("docker", models.EntityTypeTechnology, 0.8))
		if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", "conv1", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		f.kv.writeErr = errors.New("disk full")
		cm2 := contextWithEntity("conv1", models.NewEntity("kubernetes", models.EntityTypeTechnology, 0.8))
		if _, err := f.svc.UpdateGlobalMemory(ctx, cm2, "u", "b", "conv1", ports.GlobalUpdateOptions{}); err == nil {
			t.Fatal("expected write failure to surface")
		}

		doc, err := f.svc.GetGlobalMemoryContext(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.FindEntity("kubernetes|technology") != nil {
			t.Error("expected failed update to stay invisible")
		}
		if doc.FindEntity("docker|technology") == nil {
			t.Error("expected earlier state preserved")
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newGlobalFixture()

		if _, err := f.svc.UpdateGlobalMemory(ctx, nil, "u", "b", "conv1", ports.GlobalUpdateOptions{}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		cm := contextWithEntity("conv1", models.NewEntity("docker", models.EntityTypeTechnology, 0.8))
		if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", "", ports.GlobalUpdateOptions{}); !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestGlobalMemoryService_EnrichContextWithGlobalMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches known entities and topics", func(t *testing.T) {
		f := newGlobalFixture()
		seed := contextWithEntity("conv0", models.NewEntity("Telmex", models.EntityTypeOrganization, 0.9))
		seed.Topics = []*models.Topic{models.NewTopic("negocios", 0.7)}
		if _, err := f.svc.UpdateGlobalMemory(ctx, seed, "u", "b", "conv0", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cm := models.NewContextMap("conv1", "cuéntame de empresas mexicanas")
		got, err := f.svc.EnrichContextWithGlobalMemory(ctx, cm, ports.GlobalEnrichOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.GlobalMemory == nil {
			t.Fatal("expected global memory attached")
		}
		if len(got.GlobalMemory.Entities) != 1 || got.GlobalMemory.Entities[0].Name != "Telmex" {
			t.Errorf("expected Telmex attached, got %v", got.GlobalMemory.Entities)
		}
		if len(got.GlobalMemory.Topics) != 1 || got.GlobalMemory.Topics[0].Name != "negocios" {
			t.Errorf("expected negocios attached, got %v", got.GlobalMemory.Topics)
		}
	})

	t.Run("sensitive entities require clearance", func(t *testing.T) {
		f := newGlobalFixture()
		seed := models.NewContextMap("conv0", "varios")
		seed.Entities = []*models.Entity{
			models.NewEntity("docker", models.EntityTypeTechnology, 0.8),
			models.NewEntity("Juan Pérez", models.EntityTypePerson, 0.8),
		}
		if _, err := f.svc.UpdateGlobalMemory(ctx, seed, "u", "b", "conv0", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cm := models.NewContextMap("conv1", "quién trabaja aquí")
		got, err := f.svc.EnrichContextWithGlobalMemory(ctx, cm, ports.GlobalEnrichOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.GlobalMemory == nil || len(got.GlobalMemory.Entities) != 1 {
			t.Fatalf("expected only the public entity, got %+v", got.GlobalMemory)
		}
		if got.GlobalMemory.Entities[0].Name != "docker" {
			t.Errorf("expected docker only, got %s", got.GlobalMemory.Entities[0].Name)
		}

		cm2 := models.NewContextMap("conv2", "quién trabaja aquí")
		got2, err := f.svc.EnrichContextWithGlobalMemory(ctx, cm2, ports.GlobalEnrichOptions{
			AuthorizedAccessLevel: models.SensitivitySensitive,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got2.GlobalMemory == nil || len(got2.GlobalMemory.Entities) != 2 {
			t.Fatalf("expected both entities with clearance, got %+v", got2.GlobalMemory)
		}
	})

	t.Run("entities already in context are skipped", func(t *testing.T) {
		f := newGlobalFixture()
		seed := contextWithEntity("conv0", models.NewEntity("Telmex", models.EntityTypeOrganization, 0.9))
		if _, err := f.svc.UpdateGlobalMemory(ctx, seed, "u", "b", "conv0", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cm := contextWithEntity("conv1", models.NewEntity("Telmex", models.EntityTypeOrganization, 0.5))
		got, err := f.svc.EnrichContextWithGlobalMemory(ctx, cm, ports.GlobalEnrichOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.GlobalMemory != nil {
			t.Errorf("expected nothing new to attach, got %+v", got.GlobalMemory)
		}
	})

	t.Run("domain knowledge follows current topics", func(t *testing.T) {
		f := newGlobalFixture()
		doc := models.NewGlobalMemoryDoc()
		doc.DomainKnowledge = map[string]map[string]any{
			"finanzas": {"nota": "usar cifras oficiales"},
			"deportes": {"nota": "resultados de liga"},
		}
		if err := f.kv.Write(ctx, "global_memory", doc); err != nil {
			t.Fatalf("seeding store: %v", err)
		}

		cm := models.NewContextMap("conv1", "hablemos de dinero")
		got, err := f.svc.EnrichContextWithGlobalMemory(ctx, cm, ports.GlobalEnrichOptions{CurrentTopics: []string{"finanzas"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.GlobalMemory == nil {
			t.Fatal("expected domain knowledge attached")
		}
		if _, ok := got.GlobalMemory.DomainKnowledge["finanzas"]; !ok {
			t.Error("expected finanzas knowledge")
		}
		if _, ok := got.GlobalMemory.DomainKnowledge["deportes"]; ok {
			t.Error("expected deportes excluded")
		}
	})

	t.Run("attachment is capped", func(t *testing.T) {
		f := newGlobalFixture()
		seed := models.NewContextMap("conv0", "varios")
		for i := 0; i < 14; i++ {
			seed.Entities = append(seed.Entities, models.NewEntity(fmt.Sprintf("concepto%02d", i), models.EntityTypeConcept, 0.8))
		}
		if _, err := f.svc.UpdateGlobalMemory(ctx, seed, "u", "b", "conv0", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cm := models.NewContextMap("conv1", "conceptos varios")
		got, err := f.svc.EnrichContextWithGlobalMemory(ctx, cm, ports.GlobalEnrichOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.GlobalMemory == nil || len(got.GlobalMemory.Entities) != 10 {
			t.Fatalf("expected 10 entities at most, got %+v", got.GlobalMemory)
		}
	})

	t.Run("empty document attaches nothing", func(t *testing.T) {
		f := newGlobalFixture()

		cm := models.NewContextMap("conv1", "hola")
		got, err := f.svc.EnrichContextWithGlobalMemory(ctx, cm, ports.GlobalEnrichOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.GlobalMemory != nil {
			t.Errorf("expected no attachment, got %+v", got.GlobalMemory)
		}
	})

	t.Run("nil context rejected", func(t *testing.T) {
		f := newGlobalFixture()

		if _, err := f.svc.EnrichContextWithGlobalMemory(ctx, nil, ports.GlobalEnrichOptions{}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestGlobalMemoryService_ProvideFeedback(t *testing.T) {
	ctx := context.Background()
	const tolerance = 1e-9

	seedDocker := func(t *testing.T, f *globalFixture) {
		t.Helper()
		cm := contextWithEntity("conv0", models.NewEntity("docker", models.EntityTypeTechnology, 0.5))
		if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", "conv0", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	t.Run("confirmation rewards confidence", func(t *testing.T) {
		f := newGlobalFixture()
		seedDocker(t, f)

		err := f.svc.ProvideFeedback(ctx, "docker", models.EntityTypeTechnology, &models.EntityFeedback{IsCorrect: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		e := storedGlobalDoc(t, f.kv).FindEntity("docker|technology")
		if math.Abs(e.Confidence-0.6) > tolerance {
			t.Errorf("expected confidence 0.6, got %f", e.Confidence)
		}
		if len(f.feedback.records) != 1 {
			t.Fatalf("expected 1 feedback record, got %d", len(f.feedback.records))
		}
		rec := f.feedback.records[0]
		if rec.ID != "fb_test1" || rec.Before.Confidence != 0.5 {
			t.Errorf("expected before snapshot at 0.5, got %+v", rec)
		}
	})

	t.Run("correction penalizes confidence", func(t *testing.T) {
		f := newGlobalFixture()
		seedDocker(t, f)

		err := f.svc.ProvideFeedback(ctx, "docker", models.EntityTypeTechnology, &models.EntityFeedback{IsCorrect: false})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		e := storedGlobalDoc(t, f.kv).FindEntity("docker|technology")
		if math.Abs(e.Confidence-0.35) > tolerance {
			t.Errorf("expected confidence 0.35, got %f", e.Confidence)
		}
	})

	t.Run("correction may supply replacement values", func(t *testing.T) {
		f := newGlobalFixture()
		seedDocker(t, f)

		corrected := 0.9
		err := f.svc.ProvideFeedback(ctx, "docker", models.EntityTypeTechnology, &models.EntityFeedback{
			IsCorrect:            false,
			CorrectedDescription: "plataforma de contenedores",
			CorrectedConfidence:  &corrected,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		e := storedGlobalDoc(t, f.kv).FindEntity("docker|technology")
		if e.Description != "plataforma de contenedores" || e.Confidence != 0.9 {
			t.Errorf("expected corrected values, got %+v", e)
		}
	})

	t.Run("unknown entity", func(t *testing.T) {
		f := newGlobalFixture()
		seedDocker(t, f)

		err := f.svc.ProvideFeedback(ctx, "nadie", models.EntityTypePerson, &models.EntityFeedback{IsCorrect: true})
		if !errors.Is(err, domain.ErrEntityNotFound) {
			t.Errorf("expected ErrEntityNotFound, got %v", err)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newGlobalFixture()

		if err := f.svc.ProvideFeedback(ctx, "  ", models.EntityTypePerson, &models.EntityFeedback{}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty name, got %v", err)
		}
		if err := f.svc.ProvideFeedback(ctx, "docker", models.EntityTypeTechnology, nil); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for nil feedback, got %v", err)
		}
	})
}

func TestGlobalMemoryService_PerformMaintenance(t *testing.T) {
	ctx := context.Background()

	t.Run("idle entries decay and weak ones are pruned", func(t *testing.T) {
		f := newGlobalFixture()
		now := time.Now()
		doc := models.NewGlobalMemoryDoc()
		doc.Entities = []*models.Entity{
			{Name: "docker", Type: models.EntityTypeTechnology, Confidence: 0.9, Occurrences: 5, LastSeen: now},
			{Name: "cobol", Type: models.EntityTypeTechnology, Confidence: 0.3, Occurrences: 5, LastSeen: now.Add(-35 * 24 * time.Hour)},
			{Name: "fortran", Type: models.EntityTypeTechnology, Confidence: 0.2, Occurrences: 5, LastSeen: now.Add(-70 * 24 * time.Hour)},
			{Name: "fantasma", Type: models.EntityTypeConcept, Confidence: 0.8, Occurrences: 0, LastSeen: now},
		}
		doc.Topics = []*models.Topic{
			{Name: "tecnología", Confidence: 0.8, Occurrences: 5, LastSeen: now},
			{Name: "teletexto", Confidence: 0.15, Occurrences: 2, LastSeen: now.Add(-35 * 24 * time.Hour)},
		}
		doc.Stats.UpdatesLast24h = 7
		if err := f.kv.Write(ctx, "global_memory", doc); err != nil {
			t.Fatalf("seeding store: %v", err)
		}

		if err := f.svc.PerformMaintenance(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := storedGlobalDoc(t, f.kv)
		if got.FindEntity("docker|technology") == nil {
			t.Error("expected fresh entity kept")
		}
		cobol := got.FindEntity("cobol|technology")
		if cobol == nil {
			t.Fatal("expected decayed entity kept above the floor")
		}
		if cobol.Confidence >= 0.3 || cobol.Confidence < 0.1 {
			t.Errorf("expected decayed confidence in [0.1, 0.3), got %f", cobol.Confidence)
		}
		if got.FindEntity("fortran|technology") != nil {
			t.Error("expected decayed-to-nothing entity pruned")
		}
		if got.FindEntity("fantasma|concept") != nil {
			t.Error("expected unobserved entity pruned")
		}
		if got.FindTopic("teletexto") != nil {
			t.Error("expected stale topic pruned")
		}
		if got.FindTopic("tecnología") == nil {
			t.Error("expected fresh topic kept")
		}
		if got.Stats.UpdatesLast24h != 0 {
			t.Errorf("expected daily counter reset, got %d", got.Stats.UpdatesLast24h)
		}
		if got.LastMaintenance == nil {
			t.Error("expected maintenance timestamp")
		}
	})

	t.Run("conversation tracking is bounded", func(t *testing.T) {
		f := newGlobalFixture()
		doc := models.NewGlobalMemoryDoc()
		for i := 0; i < 1005; i++ {
			doc.Stats.ConversationIDs = append(doc.Stats.ConversationIDs, fmt.Sprintf("c%d", i))
		}
		if err := f.kv.Write(ctx, "global_memory", doc); err != nil {
			t.Fatalf("seeding store: %v", err)
		}

		if err := f.svc.PerformMaintenance(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := storedGlobalDoc(t, f.kv)
		if len(got.Stats.ConversationIDs) != 1000 {
			t.Fatalf("expected 1000 tracked conversations, got %d", len(got.Stats.ConversationIDs))
		}
		if got.Stats.ConversationIDs[0] != "c5" {
			t.Errorf("expected oldest kept to be c5, got %s", got.Stats.ConversationIDs[0])
		}
	})
}

func TestGlobalMemoryService_ResetGlobalMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("backs up before clearing", func(t *testing.T) {
		f := newGlobalFixture()
		cm := contextWithEntity("conv0", models.NewEntity("docker", models.EntityTypeTechnology, 0.8))
		if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", "conv0", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("seeding: %v", err)
		}

		if err := f.svc.ResetGlobalMemory(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.backups.backups != 1 {
			t.Errorf("expected 1 backup, got %d", f.backups.backups)
		}
		if doc := storedGlobalDoc(t, f.kv); len(doc.Entities) != 0 {
			t.Errorf("expected cleared document, got %d entities", len(doc.Entities))
		}
	})

	t.Run("failed backup aborts the reset", func(t *testing.T) {
		f := newGlobalFixture()
		cm := contextWithEntity("conv0", models.NewEntity("docker", models.EntityTypeTechnology, 0.8))
		if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", "conv0", ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("seeding: %v", err)
		}
		f.backups.backupErr = errors.New("backup volume gone")

		if err := f.svc.ResetGlobalMemory(ctx); err == nil {
			t.Fatal("expected reset to abort")
		}
		if doc := storedGlobalDoc(t, f.kv); doc.FindEntity("docker|technology") == nil {
			t.Error("expected document untouched after aborted reset")
		}
	})
}

func TestGlobalMemoryService_GetGlobalMemoryStats(t *testing.T) {
	ctx := context.Background()
	f := newGlobalFixture()

	for _, conv := range []string{"conv1", "conv2"} {
		cm := contextWithEntity(conv, models.NewEntity("docker", models.EntityTypeTechnology, 0.8))
		if _, err := f.svc.UpdateGlobalMemory(ctx, cm, "u", "b", conv, ports.GlobalUpdateOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats, err := f.svc.GetGlobalMemoryStats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.EntityCount != 1 || stats.TotalUpdates != 2 || stats.TotalConversations != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.UpdatesLast24h != 2 {
		t.Errorf("expected 2 updates today, got %d", stats.UpdatesLast24h)
	}
}

func TestGlobalMemoryService_StoreOutage(t *testing.T) {
	ctx := context.Background()
	f := newGlobalFixture()
	f.kv.readErr = errors.New("store down")

	_, err := f.svc.GetGlobalMemoryContext(ctx)
	if !errors.Is(err, domain.ErrGlobalMemoryUnavailable) {
		t.Errorf("expected ErrGlobalMemoryUnavailable, got %v", err)
	}
}
