package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/cache/redis"
	"github.com/bluebook-agent/backend/internal/ingestion"
	"github.com/bluebook-agent/backend/internal/llm"
	"github.com/bluebook-agent/backend/internal/metrics"
	"github.com/bluebook-agent/backend/internal/storage/sqlite"
	"github.com/bluebook-agent/backend/internal/vector/milvus"
	"github.com/bluebook-agent/backend/pkg/config"
	appLogger "github.com/bluebook-agent/backend/pkg/logger"
)

// Rebuilds the vector index and reference tables from the scraped Blue
// Book JSON files. Safe to re-run; the collection is dropped and
// recreated each time.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Blue Book index build",
		zap.String("listings", cfg.Data.ListingsJSON),
		zap.String("sections", cfg.Data.SectionsJSON),
	)

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	ctx := context.Background()

	vectorStore, err := milvus.NewStore(
		ctx,
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
		llmClient,
		nil,
	)
	if err != nil {
		appLogger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer vectorStore.Close()

	processor := ingestion.NewProcessor(vectorStore, sqliteClient)
	if err := processor.Rebuild(ctx, cfg.Data.ListingsJSON, cfg.Data.SectionsJSON); err != nil {
		appLogger.Fatal("Index build failed", zap.Error(err))
	}

	// Cached analyses reference the old index generation.
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, skipping cache invalidation", zap.Error(err))
		} else {
			defer redisClient.Close()
			if err := redisClient.InvalidateAnalysisCache(ctx); err != nil {
				appLogger.Warn("Failed to invalidate analysis cache", zap.Error(err))
			}
		}
	}

	appLogger.Info("Index build complete")
}
