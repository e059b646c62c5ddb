package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docuform/autofill-backend/internal/embedding"
	"github.com/docuform/autofill-backend/internal/extract"
	"github.com/docuform/autofill-backend/internal/models"
	"github.com/docuform/autofill-backend/internal/vectorindex"
	"github.com/docuform/autofill-backend/pkg/chunker"
)

// ChunkAuditor persists audit copies of chunks in the relational store.
// Writes are best-effort; failures never block vector indexing.
type ChunkAuditor interface {
	RecordChunk(ctx context.Context, rec models.ChunkRecord) error
}

type IngestRequest struct {
	DocID    uuid.UUID
	UserID   string
	Filename string
	FileType string
	Content  string
}

type IngestResult struct {
	Chunks       int `json:"chunks"`
	Fields       int `json:"fields"`
	Transactions int `json:"transactions"`
	Vectors      int `json:"vectors"`
}

// Pipeline turns extracted document text into indexed vector records:
// overlapping text chunks, structured-text transaction rows, and one
// record per extracted field.
type Pipeline struct {
	chunker    chunker.Chunker
	chunkOpts  chunker.ChunkOptions
	fields     *extract.FieldExtractor
	txParser   *extract.TransactionParser
	embedSvc   *embedding.Service
	store      *vectorindex.Store
	auditor    ChunkAuditor
}

func NewPipeline(embedSvc *embedding.Service, store *vectorindex.Store, opts chunker.ChunkOptions, auditor ChunkAuditor) *Pipeline {
	if opts.ChunkSize == 0 {
		opts = chunker.DefaultOptions()
	}
	return &Pipeline{
		chunker:   chunker.New(),
		chunkOpts: opts,
		fields:    extract.NewFieldExtractor(),
		txParser:  extract.NewTransactionParser(),
		embedSvc:  embedSvc,
		store:     store,
		auditor:   auditor,
	}
}

// Ingest indexes one document. Stages run sequentially; an embedding
// failure aborts so the caller can mark the document failed. Empty text
// indexes nothing and succeeds.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.Content == "" {
		slog.Warn("no text extracted, indexing nothing",
			"doc_id", req.DocID, "filename", req.Filename)
		return &IngestResult{}, nil
	}
	if !p.embedSvc.Available() {
		return nil, fmt.Errorf("embedding backend unavailable")
	}

	chunks := p.chunker.Chunk(req.Content, p.chunkOpts)
	transactions := p.txParser.Parse(req.Content)
	fieldsByType := p.fields.Extract(req.Content)

	var texts []string
	var records []vectorindex.Record

	docID := req.DocID.String()
	base := map[string]interface{}{
		"user_id":   req.UserID,
		"doc_id":    docID,
		"filename":  req.Filename,
		"file_type": req.FileType,
	}

	for _, ch := range chunks {
		records = append(records, vectorindex.Record{
			ID: fmt.Sprintf("%s_chunk_%d", docID, ch.Index),
			Metadata: withBase(base, map[string]interface{}{
				"kind":        vectorindex.KindChunk,
				"text":        ch.Content,
				"chunk_index": ch.Index,
			}),
		})
		texts = append(texts, ch.Content)
	}

	// Each parsed statement row becomes its own chunk record so that
	// amount/date facts survive window boundaries.
	for i, tx := range transactions {
		structured := tx.StructuredText()
		records = append(records, vectorindex.Record{
			ID: fmt.Sprintf("%s_txn_%d", docID, i),
			Metadata: withBase(base, map[string]interface{}{
				"kind":        vectorindex.KindChunk,
				"text":        structured,
				"chunk_index": len(chunks) + i,
				"transaction": true,
				"confidence":  tx.Confidence,
			}),
		})
		texts = append(texts, structured)
	}

	fieldCount := 0
	for _, candidates := range fieldsByType {
		for i, f := range candidates {
			input := fmt.Sprintf("%s: %s | Context: %s", f.Type, f.Value, f.Context)
			records = append(records, vectorindex.Record{
				ID: fmt.Sprintf("%s_field_%s_%d", docID, f.Type, i),
				Metadata: withBase(base, map[string]interface{}{
					"kind":          vectorindex.KindField,
					"field_type":    string(f.Type),
					"field_value":   f.Value,
					"field_context": f.Context,
					"confidence":    f.Confidence,
					"text":          input,
				}),
			})
			texts = append(texts, input)
			fieldCount++
		}
	}

	embeddings, err := p.embedSvc.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", docID, err)
	}
	if len(embeddings) != len(records) {
		return nil, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(records), len(embeddings))
	}
	for i := range records {
		records[i].Embedding = embeddings[i]
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("index document %s: %w", docID, err)
	}

	p.auditChunks(ctx, req, chunks)

	return &IngestResult{
		Chunks:       len(chunks),
		Fields:       fieldCount,
		Transactions: len(transactions),
		Vectors:      len(records),
	}, nil
}

func (p *Pipeline) auditChunks(ctx context.Context, req IngestRequest, chunks []chunker.TextChunk) {
	if p.auditor == nil {
		return
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"filename":  req.Filename,
		"file_type": req.FileType,
	})
	for _, ch := range chunks {
		rec := models.ChunkRecord{
			ChunkID:    fmt.Sprintf("%s_chunk_%d", req.DocID, ch.Index),
			DocID:      req.DocID,
			UserID:     req.UserID,
			Text:       ch.Content,
			ChunkIndex: ch.Index,
			Metadata:   meta,
		}
		if err := p.auditor.RecordChunk(ctx, rec); err != nil {
			slog.Warn("chunk audit write failed",
				"chunk_id", rec.ChunkID, "error", err)
		}
	}
}

func withBase(base, extra map[string]interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		m[k] = v
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}
