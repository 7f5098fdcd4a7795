package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/trigoo007/proyecto-cag-sub000/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cagd",
		Short: "cagd - context-augmented generation engine",
		Long: `cagd maintains the conversational context layer between a chat
application and its language model: per-message analysis, two-tier
conversation memory, and a shared cross-conversation global memory.

All commands operate on the data directory configured via CAG_DATA_DIR
or the config file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
				zerolog.SetGlobalLevel(level)
			}

			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		analyzeCmd(),
		contextCmd(),
		memoryCmd(),
		globalCmd(),
		maintenanceCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("Storage:")
			fmt.Printf("  Data Dir:   %s\n", cfg.Storage.DataDir)
			fmt.Printf("  KV Backend: %s\n", cfg.Storage.KVBackend)
			fmt.Printf("  Badger Dir: %s\n", cfg.Storage.BadgerDir)
			fmt.Println()

			fmt.Println("Embedding:")
			fmt.Printf("  URL:        %s\n", cfg.Embedding.URL)
			fmt.Printf("  Model:      %s\n", cfg.Embedding.Model)
			fmt.Printf("  Dimensions: %d\n", cfg.Embedding.Dimensions)
			fmt.Printf("  API Key:    %s\n", maskSecret(cfg.Embedding.APIKey))
			fmt.Printf("  Status:     %s (local feature-hash embedder when not)\n", boolStatus(cfg.IsEmbeddingConfigured()))
			fmt.Println()

			fmt.Println("Analysis:")
			fmt.Printf("  Max Context Messages: %d\n", cfg.Analysis.MaxContextMessages)
			fmt.Printf("  Max Topics:           %d\n", cfg.Analysis.MaxTopics)
			fmt.Printf("  Max Entities:         %d\n", cfg.Analysis.MaxEntities)
			fmt.Printf("  Similarity Threshold: %.2f\n", cfg.Analysis.SimilarityThreshold)
			fmt.Printf("  Cache Entries:        %d\n", cfg.Analysis.CacheMaxEntries)
			fmt.Printf("  Cache TTL:            %s\n", cfg.CacheTTL())
			fmt.Println()

			fmt.Println("Memory:")
			fmt.Printf("  Max Short-Term:      %d\n", cfg.Memory.MaxShortTerm)
			fmt.Printf("  Max Long-Term:       %d\n", cfg.Memory.MaxLongTerm)
			fmt.Printf("  Decay Factor:        %.2f\n", cfg.Memory.DecayFactor)
			fmt.Printf("  Relevance Threshold: %.2f\n", cfg.Memory.RelevanceThreshold)
			fmt.Println()

			fmt.Println("Global Memory:")
			fmt.Printf("  Max Entities:    %d\n", cfg.Global.MaxEntities)
			fmt.Printf("  Max Topics:      %d\n", cfg.Global.MaxTopics)
			fmt.Printf("  Min Occurrences: %d\n", cfg.Global.MinEntityOccurrences)
			fmt.Printf("  Decay Factor:    %.2f\n", cfg.Global.DecayFactor)
			fmt.Println()

			fmt.Println("Manager:")
			fmt.Printf("  Cache Size:        %d\n", cfg.Manager.CacheSize)
			fmt.Printf("  Cache TTL:         %s\n", cfg.ManagerCacheTTL())
			fmt.Printf("  Fragment Size:     %d KB\n", cfg.Manager.FragmentSizeKB)
			fmt.Printf("  Lock Timeout:      %s\n", cfg.LockTimeout())
			fmt.Printf("  Strict Validation: %t\n", cfg.Manager.StrictValidation)
			fmt.Println()

			fmt.Println("Scheduler:")
			fmt.Printf("  Cache Cleanup:      %s\n", cfg.CacheCleanupInterval())
			fmt.Printf("  Memory Maintenance: %s\n", cfg.MemoryMaintenanceInterval())
			fmt.Printf("  Global Maintenance: %s\n", cfg.GlobalMaintenanceInterval())
			fmt.Printf("  Metrics Retention:  %s\n", cfg.MetricsRetention())
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Address: %s\n", cfg.Addr())
			fmt.Println()

			fmt.Println("Log / Tracing:")
			fmt.Printf("  Level:   %s\n", cfg.Log.Level)
			fmt.Printf("  Tracing: %t\n", cfg.Tracing.Enabled)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  CAG_CONFIG, CAG_DATA_DIR, CAG_KV_BACKEND, CAG_BADGER_DIR")
			fmt.Println("  CAG_EMBEDDING_URL, CAG_EMBEDDING_API_KEY, CAG_EMBEDDING_MODEL, CAG_EMBEDDING_DIMENSIONS")
			fmt.Println("  CAG_MAX_CONTEXT_MESSAGES, CAG_MAX_TOPICS, CAG_MAX_ENTITIES, CAG_SIMILARITY_THRESHOLD")
			fmt.Println("  CAG_CACHE_MAX_ENTRIES, CAG_CACHE_TTL_MINUTES")
			fmt.Println("  CAG_MAX_SHORT_TERM, CAG_MAX_LONG_TERM, CAG_MEMORY_DECAY, CAG_RELEVANCE_THRESHOLD")
			fmt.Println("  CAG_GLOBAL_MAX_ENTITIES, CAG_GLOBAL_MAX_TOPICS, CAG_GLOBAL_MIN_OCCURRENCES, CAG_GLOBAL_DECAY")
			fmt.Println("  CAG_MANAGER_CACHE_SIZE, CAG_MANAGER_CACHE_TTL_MINUTES, CAG_FRAGMENT_SIZE_KB")
			fmt.Println("  CAG_LOCK_TIMEOUT_SECONDS, CAG_STRICT_VALIDATION")
			fmt.Println("  CAG_CACHE_CLEANUP_MINUTES, CAG_MEMORY_MAINTENANCE_HOURS, CAG_GLOBAL_MAINTENANCE_HOURS")
			fmt.Println("  CAG_METRICS_RETENTION_DAYS, CAG_SERVER_HOST, CAG_SERVER_PORT, CAG_LOG_LEVEL, CAG_TRACING")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cagd %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
