package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docuform/autofill-backend/internal/config"
)

// listLimit bounds the id-collection queries used by the deletion
// strategies and the verification pass.
const listLimit = 1000

// Store wraps a VectorIndex with the operational policies the rest of
// the system relies on: batched upserts, score-thresholded search, and
// comprehensive document deletion with verification.
type Store struct {
	index       VectorIndex
	batchSize   int
	threshold   float64
	propagation time.Duration
}

func NewStore(index VectorIndex, cfg config.IndexConfig) *Store {
	batch := cfg.UpsertBatchSize
	if batch <= 0 {
		batch = 100
	}
	return &Store{
		index:       index,
		batchSize:   batch,
		threshold:   cfg.SimilarityThreshold,
		propagation: cfg.DeletePropagation,
	}
}

// Upsert writes records in batches.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	for i := 0; i < len(records); i += s.batchSize {
		end := i + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.index.Upsert(ctx, records[i:end]); err != nil {
			return fmt.Errorf("upsert batch %d: %w", i/s.batchSize, err)
		}
	}
	return nil
}

// Search runs a similarity query and drops matches below the
// configured threshold. Listing queries (zero vector) bypass it.
func (s *Store) Search(ctx context.Context, q Query) ([]Match, error) {
	if q.MinScore == 0 && len(q.Vector) > 0 && !isZeroVector(q.Vector) {
		q.MinScore = s.threshold
	}
	return s.index.Search(ctx, q)
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	return s.index.Stats(ctx)
}

// DeleteDocumentVectors removes every vector belonging to a document,
// trying three independent strategies so that records written under
// older id schemes are still found. It waits for deletes to propagate,
// then re-queries to verify. The returned bool reports whether the
// index is actually clean; strategy failures alone do not error.
func (s *Store) DeleteDocumentVectors(ctx context.Context, userID, docID, filename string) (bool, error) {
	// Strategy 1: direct filter on user + document id.
	if _, err := s.index.DeleteByFilter(ctx, Filter{UserID: userID, DocID: docID}); err != nil {
		slog.Warn("delete by doc_id failed", "doc_id", docID, "error", err)
	}

	// Strategy 2: collect ids for this user's copy of the file.
	s.deleteListed(ctx, Filter{UserID: userID, Filename: filename})

	// Strategy 3: sweep leftover records for the filename that lost
	// their user attribution.
	s.deleteListed(ctx, Filter{Filename: filename})

	if s.propagation > 0 {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(s.propagation):
		}
	}

	remaining, err := s.index.Search(ctx, Query{
		TopK:   listLimit,
		Filter: Filter{UserID: userID, DocID: docID},
	})
	if err != nil {
		return false, fmt.Errorf("verify deletion: %w", err)
	}
	if len(remaining) > 0 {
		slog.Warn("document vectors remain after deletion",
			"doc_id", docID, "remaining", len(remaining))
		return false, nil
	}
	return true, nil
}

func (s *Store) deleteListed(ctx context.Context, f Filter) {
	matches, err := s.index.Search(ctx, Query{TopK: listLimit, Filter: f})
	if err != nil {
		slog.Warn("listing for deletion failed", "filter", f, "error", err)
		return
	}
	if len(matches) == 0 {
		return
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	if err := s.index.DeleteIDs(ctx, ids); err != nil {
		slog.Warn("delete listed ids failed", "count", len(ids), "error", err)
	}
}
