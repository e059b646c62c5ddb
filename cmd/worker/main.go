package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/docuform/autofill-backend/internal/config"
	"github.com/docuform/autofill-backend/internal/database"
	"github.com/docuform/autofill-backend/internal/document"
	"github.com/docuform/autofill-backend/internal/embedding"
	"github.com/docuform/autofill-backend/internal/llm"
	"github.com/docuform/autofill-backend/internal/queue"
	"github.com/docuform/autofill-backend/internal/queue/workers"
	"github.com/docuform/autofill-backend/internal/rag"
	"github.com/docuform/autofill-backend/internal/vectorindex"
	"github.com/docuform/autofill-backend/pkg/chunker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	docSvc := document.NewService(db, cfg.Upload.Dir)

	gw := llm.NewGateway(cfg.LLM)
	embedSvc := embedding.NewService(gw, cfg.LLM.EmbeddingModel)
	index := vectorindex.NewPgVectorIndex(db, cfg.Index.Dimension)
	store := vectorindex.NewStore(index, cfg.Index)

	pipeline := rag.NewPipeline(embedSvc, store, chunker.ChunkOptions{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		Strategy:     "fixed",
	}, docSvc)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	ingestWorker := workers.NewIngestWorker(docSvc, pipeline)
	registry.Register(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
