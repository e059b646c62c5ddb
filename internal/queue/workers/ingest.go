package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/docuform/autofill-backend/internal/document"
	"github.com/docuform/autofill-backend/internal/models"
	"github.com/docuform/autofill-backend/internal/queue"
	"github.com/docuform/autofill-backend/internal/rag"
)

// IngestWorker runs the full single-flow ingestion for one document:
// extract, chunk, embed, index. Stages are sequentially dependent, so
// there is no parallelism within a task; concurrency comes from asynq
// running independent tasks side by side.
type IngestWorker struct {
	docSvc    *document.Service
	extractor *document.Extractor
	pipeline  *rag.Pipeline
}

func NewIngestWorker(docSvc *document.Service, pipeline *rag.Pipeline) *IngestWorker {
	return &IngestWorker{
		docSvc:    docSvc,
		extractor: document.NewExtractor(),
		pipeline:  pipeline,
	}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocID)
	if err != nil {
		return fmt.Errorf("parse doc id: %w", err)
	}

	slog.Info("ingesting document",
		"doc_id", docID, "user_id", payload.UserID, "filename", payload.Filename)

	if err := w.docSvc.UpdateStatus(ctx, docID, models.DocStatusProcessing); err != nil {
		return fmt.Errorf("update status to processing: %w", err)
	}

	extracted := w.extractor.Extract(ctx, payload.FilePath, payload.FileType)

	result, err := w.pipeline.Ingest(ctx, rag.IngestRequest{
		DocID:    docID,
		UserID:   payload.UserID,
		Filename: payload.Filename,
		FileType: payload.FileType,
		Content:  extracted.Content,
	})
	if err != nil {
		if serr := w.docSvc.UpdateStatus(ctx, docID, models.DocStatusFailed); serr != nil {
			slog.Error("failed to mark document failed", "doc_id", docID, "error", serr)
		}
		return fmt.Errorf("ingest document %s: %w", docID, err)
	}

	if err := w.docSvc.UpdateStatus(ctx, docID, models.DocStatusCompleted); err != nil {
		return fmt.Errorf("update status to completed: %w", err)
	}

	slog.Info("document ingested",
		"doc_id", docID,
		"chunks", result.Chunks,
		"fields", result.Fields,
		"transactions", result.Transactions,
		"vectors", result.Vectors,
	)
	return nil
}
