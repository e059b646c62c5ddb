package vectorindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuform/autofill-backend/internal/config"
)

func testStore() (*Store, *Memory) {
	mem := NewMemory(3)
	store := NewStore(mem, config.IndexConfig{
		SimilarityThreshold: 0.5,
		UpsertBatchSize:     2,
		DeletePropagation:   0,
	})
	return store, mem
}

func chunkRecord(id, userID, docID, filename string, vec []float32) Record {
	return Record{
		ID:        id,
		Embedding: vec,
		Metadata: map[string]interface{}{
			"user_id":  userID,
			"doc_id":   docID,
			"filename": filename,
			"kind":     KindChunk,
			"text":     "content of " + id,
		},
	}
}

func TestUpsertBatchesAndSearch(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	var records []Record
	for i := 0; i < 5; i++ {
		records = append(records,
			chunkRecord(fmt.Sprintf("u1_d1_%d", i), "u1", "d1", "resume.pdf", []float32{1, 0, 0}))
	}
	require.NoError(t, store.Upsert(ctx, records))

	matches, err := store.Search(ctx, Query{
		Vector: []float32{1, 0, 0},
		TopK:   10,
		Filter: Filter{UserID: "u1"},
	})
	require.NoError(t, err)
	assert.Len(t, matches, 5)
	for _, m := range matches {
		assert.InDelta(t, 1.0, m.Score, 1e-6)
	}
}

func TestSearchAppliesThreshold(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	require.NoError(t, store.Upsert(ctx, []Record{
		chunkRecord("near", "u1", "d1", "a.pdf", []float32{1, 0, 0}),
		chunkRecord("far", "u1", "d1", "a.pdf", []float32{0, 1, 0}),
	}))

	matches, err := store.Search(ctx, Query{
		Vector: []float32{1, 0, 0},
		TopK:   10,
		Filter: Filter{UserID: "u1"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].ID)
}

func TestSearchIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	require.NoError(t, store.Upsert(ctx, []Record{
		chunkRecord("mine", "u1", "d1", "a.pdf", []float32{1, 0, 0}),
		chunkRecord("theirs", "u2", "d2", "b.pdf", []float32{1, 0, 0}),
	}))

	matches, err := store.Search(ctx, Query{
		Vector: []float32{1, 0, 0},
		TopK:   10,
		Filter: Filter{UserID: "u1"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "mine", matches[0].ID)
}

func TestListingQueryReturnsZeroScores(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	require.NoError(t, store.Upsert(ctx, []Record{
		chunkRecord("a", "u1", "d1", "a.pdf", []float32{1, 0, 0}),
	}))

	matches, err := store.Search(ctx, Query{TopK: 10, Filter: Filter{UserID: "u1"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Zero(t, matches[0].Score)
}

func TestDeleteDocumentVectors(t *testing.T) {
	ctx := context.Background()
	store, mem := testStore()

	require.NoError(t, store.Upsert(ctx, []Record{
		chunkRecord("a0", "u1", "d1", "resume.pdf", []float32{1, 0, 0}),
		chunkRecord("a1", "u1", "d1", "resume.pdf", []float32{0, 1, 0}),
		chunkRecord("keep", "u1", "d2", "other.pdf", []float32{0, 0, 1}),
	}))

	clean, err := store.DeleteDocumentVectors(ctx, "u1", "d1", "resume.pdf")
	require.NoError(t, err)
	assert.True(t, clean)

	stats, err := mem.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors)
}

func TestDeleteSweepsRecordsWithoutUserAttribution(t *testing.T) {
	ctx := context.Background()
	store, mem := testStore()

	// Legacy record written without user_id, findable only by filename.
	require.NoError(t, store.Upsert(ctx, []Record{
		{
			ID:        "legacy",
			Embedding: []float32{1, 0, 0},
			Metadata:  map[string]interface{}{"filename": "resume.pdf"},
		},
	}))

	clean, err := store.DeleteDocumentVectors(ctx, "u1", "d1", "resume.pdf")
	require.NoError(t, err)
	assert.True(t, clean)

	stats, err := mem.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVectors)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	clean, err := store.DeleteDocumentVectors(ctx, "u1", "missing", "ghost.pdf")
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestDeleteReportsRemainingVectors(t *testing.T) {
	ctx := context.Background()
	store, mem := testStore()

	require.NoError(t, store.Upsert(ctx, []Record{
		chunkRecord("a0", "u1", "d1", "resume.pdf", []float32{1, 0, 0}),
	}))

	// Simulate a write racing the delete.
	clean, err := store.DeleteDocumentVectors(ctx, "u1", "d1", "resume.pdf")
	require.NoError(t, err)
	assert.True(t, clean)

	require.NoError(t, mem.Upsert(ctx, []Record{
		chunkRecord("late", "u1", "d1", "resume.pdf", []float32{1, 0, 0}),
	}))
	remaining, err := mem.Search(ctx, Query{TopK: 10, Filter: Filter{UserID: "u1", DocID: "d1"}})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestStatsCountsByKind(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	require.NoError(t, store.Upsert(ctx, []Record{
		chunkRecord("c0", "u1", "d1", "a.pdf", []float32{1, 0, 0}),
		{
			ID:        "f0",
			Embedding: []float32{0, 1, 0},
			Metadata: map[string]interface{}{
				"user_id": "u1", "doc_id": "d1", "filename": "a.pdf",
				"kind": KindField, "field_type": "email",
			},
		},
	}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalVectors)
	assert.Equal(t, 1, stats.ByKind[KindChunk])
	assert.Equal(t, 1, stats.ByKind[KindField])
}
