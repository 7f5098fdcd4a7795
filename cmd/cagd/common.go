package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/embedding"
	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/fsstore"
	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/id"
	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/kvstore"
	"github.com/trigoo007/proyecto-cag-sub000/internal/application/services"
	"github.com/trigoo007/proyecto-cag-sub000/internal/config"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// Version information set via ldflags
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared configuration loaded by the root command
var cfg *config.Config

// engine bundles the wired pipeline so every command builds it the same
// way: serve keeps one for its lifetime, one-shot commands build and close
// one per invocation.
type engine struct {
	contexts    *services.ContextService
	analyzer    *services.AnalyzerService
	memory      *services.MemoryService
	global      *services.GlobalMemoryService
	cache       *services.AnalysisCache
	usage       *services.MetricsService
	maintenance *services.MaintenanceService

	feedback ports.FeedbackLog
	kv       ports.KVStore
}

// newEngine wires repositories, adapters and services against the
// configured data directory.
func newEngine(ctx context.Context) (*engine, error) {
	dataDir := cfg.Storage.DataDir

	contextRepo := fsstore.NewContextRepo(filepath.Join(dataDir, "contexts"), cfg.FragmentSize())
	historyRepo := fsstore.NewHistoryRepo(filepath.Join(dataDir, "context-history"))
	memoryRepo := fsstore.NewMemoryRepo(filepath.Join(dataDir, "memory"), cfg.Memory.MaxLongTerm)
	catalogRepo := fsstore.NewCatalogRepo(filepath.Join(dataDir, "entities"))
	cacheStore := fsstore.NewCacheStore(filepath.Join(dataDir, "contexts", "cache"))
	metricsLog := fsstore.NewMetricsLog(filepath.Join(dataDir, "metrics", "usage.jsonl"))
	feedbackLog := fsstore.NewFeedbackLog(filepath.Join(dataDir, "global_memory", "feedback.jsonl"))
	backupStore := fsstore.NewGlobalBackupStore(filepath.Join(dataDir, "global_memory"))
	conversations := fsstore.NewConversationStore(filepath.Join(dataDir, "conversations"))
	documents := fsstore.NewDocumentStore(filepath.Join(dataDir, "documents"))

	kv, err := openKV()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s key-value store: %w", cfg.Storage.KVBackend, err)
	}

	if err := catalogRepo.EnsureSeeded(ctx); err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to seed entity catalogs: %w", err)
	}

	var embedder ports.EmbeddingService
	if cfg.IsEmbeddingConfigured() {
		embedder = embedding.NewClient(
			cfg.Embedding.URL,
			cfg.Embedding.APIKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
		)
	} else {
		embedder = embedding.NewLocalEmbedder(cfg.Embedding.Dimensions)
	}

	ids := id.New()
	semantic := services.NewSemanticService(embedder)

	entities := services.NewEntityService(catalogRepo, cfg.Analysis.MaxEntities)
	if err := entities.LoadCatalogs(ctx); err != nil {
		log.Warn().Err(err).Msg("entity catalogs unavailable, extraction runs on patterns only")
	}

	cache := services.NewAnalysisCache(cacheStore, cfg.Analysis.CacheMaxEntries, cfg.CacheTTL())

	memory := services.NewMemoryService(
		memoryRepo,
		ids,
		cfg.Memory.MaxShortTerm,
		cfg.Memory.MaxLongTerm,
		cfg.Memory.DecayFactor,
		cfg.Memory.RelevanceThreshold,
	)

	analyzer := services.NewAnalyzerService(
		contextRepo,
		conversations,
		documents,
		semantic,
		entities,
		memory,
		cache,
		ids,
		cfg.Analysis.MaxContextMessages,
		cfg.Analysis.MaxTopics,
		cfg.Analysis.SimilarityThreshold,
	)

	global := services.NewGlobalMemoryService(
		kv,
		backupStore,
		semantic,
		metricsLog,
		feedbackLog,
		ids,
		cfg.Global.MaxEntities,
		cfg.Global.MaxTopics,
		cfg.Global.MinEntityOccurrences,
		cfg.Global.DecayFactor,
	)

	contexts := services.NewContextService(
		contextRepo,
		historyRepo,
		analyzer,
		memory,
		global,
		entities,
		documents,
		ids,
		cfg.Manager.CacheSize,
		cfg.ManagerCacheTTL(),
		cfg.LockTimeout(),
		cfg.Analysis.MaxContextMessages,
		cfg.Manager.StrictValidation,
	)

	return &engine{
		contexts:    contexts,
		analyzer:    analyzer,
		memory:      memory,
		global:      global,
		cache:       cache,
		usage:       services.NewMetricsService(metricsLog),
		maintenance: services.NewMaintenanceService(),
		feedback:    feedbackLog,
		kv:          kv,
	}, nil
}

// openKV selects the key-value backend configured for the global memory
// document.
func openKV() (ports.KVStore, error) {
	switch cfg.Storage.KVBackend {
	case "file":
		return kvstore.NewFile(filepath.Join(cfg.Storage.DataDir, "global_memory", "kv"))
	default:
		return kvstore.NewBadger(kvstore.BadgerOptions{Dir: cfg.Storage.BadgerDir})
	}
}

func (e *engine) Close() {
	if err := e.kv.Close(); err != nil {
		log.Warn().Err(err).Msg("closing key-value store failed")
	}
}

// registerMaintenanceJobs attaches the standard upkeep jobs. serve runs
// them on their intervals; maintenance run executes them once.
func registerMaintenanceJobs(e *engine) {
	e.maintenance.RegisterJob("analysis_cache_cleanup", cfg.CacheCleanupInterval(), func(ctx context.Context) error {
		_, err := e.cache.Cleanup(ctx)
		return err
	})
	e.maintenance.RegisterJob("context_cache_sweep", cfg.CacheCleanupInterval(), func(ctx context.Context) error {
		e.contexts.CleanupCache()
		e.contexts.SweepExpiredLocks()
		return nil
	})
	e.maintenance.RegisterJob("memory_maintenance", cfg.MemoryMaintenanceInterval(), func(ctx context.Context) error {
		return e.memory.PerformMaintenance(ctx)
	})
	e.maintenance.RegisterJob("global_maintenance", cfg.GlobalMaintenanceInterval(), func(ctx context.Context) error {
		return e.global.PerformMaintenance(ctx)
	})
	e.maintenance.RegisterJob("metrics_prune", 24*time.Hour, func(ctx context.Context) error {
		cutoff := time.Now().Add(-cfg.MetricsRetention())
		if _, err := e.usage.Prune(ctx, cutoff); err != nil {
			return err
		}
		_, err := e.feedback.Prune(ctx, cutoff)
		return err
	})
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// maskSecret hides all but the edges of a secret for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// boolStatus renders a configured/not-configured flag
func boolStatus(b bool) string {
	if b {
		return "configured"
	}
	return "not configured"
}
