package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/chunker"
	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/db"
	"github.com/xxxsen/docqa/internal/docsource"
	"github.com/xxxsen/docqa/internal/embedcache"
	"github.com/xxxsen/docqa/internal/loader"
	"github.com/xxxsen/docqa/internal/repo"
	"github.com/xxxsen/docqa/internal/service"
	"github.com/xxxsen/docqa/internal/vectorstore"
)

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	db        *sqlx.DB
	cacheRepo *repo.EmbeddingCacheRepo
	store     vectorstore.VectorStore
	embedder  ai.IEmbedder
	ingest    *service.IngestService
	answer    *service.AnswerService
}

func newApp(ctx context.Context, cfg *config.Config, withGenerator bool) (*app, error) {
	a := &app{cfg: cfg}
	logger := logutil.GetLogger(ctx)

	if cfg.Database.Configured() {
		sqlDB, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.ApplyMigrations(ctx, sqlDB.DB, cfg.VectorStore.Dimension); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		a.db = sqlDB
		a.cacheRepo = repo.NewEmbeddingCacheRepo(sqlDB.DB)
	}

	store, err := vectorstore.New(ctx, cfg.VectorStore, a.db)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	a.store = store

	base, err := ai.BuildEmbedder(cfg.AI.Embedder, cfg.VectorStore.Dimension)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	a.embedder = base
	ingestEmbedder := base
	if cfg.AI.EmbeddingCache && a.cacheRepo != nil {
		ingestEmbedder = embedcache.WrapDB(base, a.cacheRepo)
	}
	queryEmbedder := embedcache.WrapLRU(base, cfg.AI.QueryCacheSize, time.Duration(cfg.AI.QueryCacheTTL)*time.Second)

	source, err := docsource.New(cfg.Ingest.Source)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init document source: %w", err)
	}
	chk := chunker.New(chunker.WithChunkSize(cfg.Ingest.ChunkSize), chunker.WithOverlap(cfg.Ingest.Overlap()))
	a.ingest = service.NewIngestService(source, loader.Default(), chk, ingestEmbedder, store, service.IngestConfig{
		Workers:       cfg.Ingest.Workers,
		BatchSize:     cfg.Ingest.BatchSize,
		RatePerSecond: cfg.Ingest.RatePerSecond,
	})

	if withGenerator {
		gen, err := ai.BuildGenerator(cfg.AI.Generators)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init generator: %w", err)
		}
		manager := ai.NewManager(gen, queryEmbedder, ai.ManagerConfig{Timeout: cfg.AI.Timeout})
		logger.Info("answer pipeline ready",
			zap.String("query_embedder", manager.EmbeddingModelName()),
			zap.Int("top_k", cfg.RAG.TopK),
		)
		retriever := service.NewRetriever(manager.Embedder(), store, cfg.RAG.TopK)
		a.answer = service.NewAnswerService(retriever, manager, service.AnswerConfig{
			TopK:            cfg.RAG.TopK,
			NoAnswerMessage: cfg.RAG.NoAnswerMessage,
			Timeout:         time.Duration(cfg.RAG.AnswerTimeout) * time.Second,
		})
	}

	logger.Info("components ready",
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.Int("dimension", cfg.VectorStore.Dimension),
		zap.String("embedder", base.ModelName()),
		zap.String("source_type", source.Type()),
		zap.String("source", source.Location()),
		zap.Bool("embedding_cache", ingestEmbedder != base),
	)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
