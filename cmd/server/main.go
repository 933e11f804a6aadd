package main

import (
	"context"
	"log"

	"gxpcheck-backend/chunker"
	"gxpcheck-backend/config"
	"gxpcheck-backend/embedding"
	"gxpcheck-backend/handlers"
	"gxpcheck-backend/parser"
	"gxpcheck-backend/repository"
	"gxpcheck-backend/rules"
	"gxpcheck-backend/scoring"
	"gxpcheck-backend/service"
	"gxpcheck-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("Warning: %v", err)
	}

	db, err := initPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize Postgres:", err)
	}
	defer db.Close()

	// Initialize raw-document archive
	archive, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Println("Document archive initialized")

	chunkRepo := repository.NewChunkRepository(db, cfg.EmbeddingDimension)

	// Embedding and chat capabilities are optional: without them the
	// service still runs structural rules and scoring.
	var embedder embedding.Embedder
	var chat embedding.Chat
	if cfg.GeminiAPIKey != "" {
		gemini, err := embedding.NewGeminiEmbedder(embedding.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.EmbeddingModel,
			Dimension:   cfg.EmbeddingDimension,
			Concurrency: cfg.EmbedConcurrency,
		})
		if err != nil {
			log.Fatal("Failed to initialize embedder:", err)
		}
		embedder = gemini

		chatClient, err := embedding.NewGeminiChat(context.Background(), cfg.GeminiAPIKey, cfg.ChatModel)
		if err != nil {
			log.Fatal("Failed to initialize chat client:", err)
		}
		defer chatClient.Close()
		chat = chatClient
		log.Println("Gemini capabilities initialized")
	} else {
		log.Println("Warning: GEMINI_API_KEY not set, running without embeddings")
	}

	opts := []service.AnalysisServiceOption{
		service.WithChunkStore(chunkRepo),
		service.WithEmbedder(embedder),
		service.WithChatClient(chat),
		service.WithArchiveStorage(archive),
		service.WithChunkerConfig(chunker.Config{
			ChunkSize: cfg.ChunkSize,
			Overlap:   cfg.ChunkOverlap,
		}),
		service.WithScoringConfig(scoring.Config{
			CriticalWeight: cfg.CriticalWeight,
			MajorWeight:    cfg.MajorWeight,
			MinorWeight:    cfg.MinorWeight,
		}),
	}
	if cfg.GoldenTemplateID != "" {
		catalogue := rules.DefaultCatalogue(parser.DefaultSectionCatalogue())
		for _, rule := range catalogue {
			if conformance, ok := rule.(*rules.SemanticConformance); ok {
				conformance.TemplateDocumentID = cfg.GoldenTemplateID
			}
		}
		opts = append(opts, service.WithRuleCatalogue(catalogue))
		log.Printf("Semantic conformance enabled against template document %s", cfg.GoldenTemplateID)
	}

	analysisService := service.NewAnalysisService(opts...)

	analysisHandler := handlers.NewAnalysisHandler(analysisService, cfg.MaxUploadBytes)
	documentHandler := handlers.NewDocumentHandler(analysisService)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		dbOK := db.Ping(c.Request.Context()) == nil
		c.JSON(200, gin.H{
			"status":              "ok",
			"database_connected":  dbOK,
			"embedder_configured": embedder != nil,
			"chat_configured":     chat != nil,
		})
	})

	r.POST("/analyze-sop/", analysisHandler.AnalyzeSOP)
	r.POST("/analyze-sop/batch", analysisHandler.AnalyzeBatch)

	api := r.Group("/api")
	{
		api.GET("/config", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"embedding_model_configured": cfg.GeminiAPIKey != "",
				"chat_model_configured":      cfg.GeminiAPIKey != "",
				"supported_formats":          []string{"pdf", "docx"},
				"max_upload_bytes":           cfg.MaxUploadBytes,
			})
		})

		api.GET("/documents/stats", documentHandler.GetStats)
		api.POST("/documents/search", documentHandler.SearchDocuments)
		api.GET("/documents/:id/chunks", documentHandler.GetDocumentChunks)
		api.DELETE("/documents/:id", documentHandler.DeleteDocument)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, err
	}

	// Enable pgvector extension
	ctx := context.Background()
	_, err = pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
		log.Println("This may be normal if extension is already installed or requires superuser privileges")
	} else {
		log.Println("pgvector extension enabled")
	}

	log.Println("Postgres connection established with pgvector support")
	return pool, nil
}
