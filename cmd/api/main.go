package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/api/handlers"
	"github.com/bluebook-agent/backend/internal/cache/redis"
	"github.com/bluebook-agent/backend/internal/listings"
	"github.com/bluebook-agent/backend/internal/llm"
	"github.com/bluebook-agent/backend/internal/metrics"
	"github.com/bluebook-agent/backend/internal/middleware/ratelimit"
	"github.com/bluebook-agent/backend/internal/middleware/security"
	"github.com/bluebook-agent/backend/internal/middleware/validation"
	"github.com/bluebook-agent/backend/internal/pipeline"
	"github.com/bluebook-agent/backend/internal/retrieval"
	"github.com/bluebook-agent/backend/internal/storage/sqlite"
	"github.com/bluebook-agent/backend/internal/vector/milvus"
	"github.com/bluebook-agent/backend/pkg/config"
	appLogger "github.com/bluebook-agent/backend/pkg/logger"
)

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

	appLogger.Info("Starting Blue Book Analysis API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	var embeddingCache milvus.EmbeddingCache
	if redisClient != nil {
		embeddingCache = redisClient
	}

	vectorStore, err := milvus.NewStore(
		context.Background(),
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
		llmClient,
		embeddingCache,
	)
	if err != nil {
		appLogger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer vectorStore.Close()

	retriever := retrieval.NewRetriever(
		vectorStore,
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithMaxDistance(cfg.Retrieval.MaxDistance),
		retrieval.WithGuaranteedPerQuery(cfg.Retrieval.GuaranteedPerQuery),
	)

	pipelineOpts := []pipeline.Option{pipeline.WithHistory(sqliteClient)}
	if redisClient != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithCache(redisClient, time.Hour))
	}
	analysisPipeline := pipeline.New(retriever, llmClient, pipelineOpts...)

	directory := listings.NewDirectory(sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	analyzeHandler := handlers.NewAnalyzeHandler(analysisPipeline)
	listingsHandler := handlers.NewListingsHandler(directory)
	wsHandler := handlers.NewWebSocketHandler(analysisPipeline)

	api := app.Group("/api/v1")

	api.Post("/analyze", limiter.Middleware(), analyzeHandler.HandleAnalyze)
	api.Get("/listings", listingsHandler.HandleList)
	api.Get("/listings/:number", listingsHandler.HandleGet)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		count, err := vectorStore.Count(c.Context())
		if err != nil || count == 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"reason": "vector index is empty or unreachable",
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ready",
			"documents": count,
		})
	})

	app.Get("/metrics", metrics.Handler())

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
