package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuform/autofill-backend/internal/config"
	"github.com/docuform/autofill-backend/internal/embedding"
	"github.com/docuform/autofill-backend/internal/llm"
	"github.com/docuform/autofill-backend/internal/vectorindex"
)

// stubGateway returns canned embeddings keyed by input text and a fixed
// chat completion.
type stubGateway struct {
	vectors map[string][]float32
	chat    string
	chatErr error
}

func (s *stubGateway) Available() bool { return true }

func (s *stubGateway) Provider(string) (llm.Provider, error) { return nil, nil }

func (s *stubGateway) Chat(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	if s.chatErr != nil {
		return nil, s.chatErr
	}
	return &llm.ChatResponse{Content: s.chat, Model: "stub"}, nil
}

func (s *stubGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	out := make([][]float32, len(req.Input))
	for i, text := range req.Input {
		if v, ok := s.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 0, 0}
		}
	}
	return &llm.EmbeddingResponse{Embeddings: out}, nil
}

func newTestRetriever(gw llm.Gateway, opts ...RetrieverOption) (*Retriever, *vectorindex.Store) {
	store := vectorindex.NewStore(vectorindex.NewMemory(3), config.IndexConfig{
		SimilarityThreshold: 0.5,
		UpsertBatchSize:     100,
	})
	embedSvc := embedding.NewService(gw, "")
	return NewRetriever(store, embedSvc, 2, opts...), store
}

func fieldRecord(id, userID, filename, fieldType, value string, confidence float64, vec []float32) vectorindex.Record {
	return vectorindex.Record{
		ID:        id,
		Embedding: vec,
		Metadata: map[string]interface{}{
			"user_id":       userID,
			"doc_id":        "d1",
			"filename":      filename,
			"kind":          vectorindex.KindField,
			"field_type":    fieldType,
			"field_value":   value,
			"field_context": "Contact: " + value,
			"confidence":    confidence,
		},
	}
}

func TestSearchReturnsFieldForPersonalQuery(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{vectors: map[string][]float32{"what is my email": {1, 0, 0}}}
	r, store := newTestRetriever(gw)

	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{
		fieldRecord("f1", "u1", "resume.pdf", "email", "a@b.com", 0.9, []float32{1, 0, 0}),
	}))

	results, err := r.Search(ctx, "u1", "what is my email", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, vectorindex.KindField, top.Kind)
	assert.Contains(t, top.Text, "**Email**: a@b.com")
	// Field score is similarity times extraction confidence.
	assert.InDelta(t, 0.9, top.Score, 1e-6)
}

func TestSearchChunksOnlyForGeneralQuery(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{vectors: map[string][]float32{"summarize the quarterly report": {1, 0, 0}}}
	r, store := newTestRetriever(gw)

	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{
		{
			ID:        "c1",
			Embedding: []float32{1, 0, 0},
			Metadata: map[string]interface{}{
				"user_id":  "u1",
				"doc_id":   "d1",
				"filename": "report.pdf",
				"kind":     vectorindex.KindChunk,
				"text":     "Q3 revenue grew 12% year over year.",
			},
		},
		fieldRecord("f1", "u1", "resume.pdf", "email", "a@b.com", 0.9, []float32{1, 0, 0}),
	}))

	results, err := r.Search(ctx, "u1", "summarize the quarterly report", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, vectorindex.KindChunk, results[0].Kind)
	assert.Equal(t, "Q3 revenue grew 12% year over year.", results[0].Text)
}

func TestSearchWithNoFieldsStillFindsChunks(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{vectors: map[string][]float32{"what is my experience": {1, 0, 0}}}
	r, store := newTestRetriever(gw)

	// No field records at all; the field track comes back empty.
	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{
		{
			ID:        "c1",
			Embedding: []float32{1, 0, 0},
			Metadata: map[string]interface{}{
				"user_id":  "u1",
				"doc_id":   "d1",
				"filename": "resume.pdf",
				"kind":     vectorindex.KindChunk,
				"text":     "Five years of backend experience.",
			},
		},
	}))

	results, err := r.Search(ctx, "u1", "what is my experience", 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, vectorindex.KindChunk, results[0].Kind)
}

func TestSearchPrefersMentionedPerson(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{vectors: map[string][]float32{"what is john's email": {1, 0, 0}}}
	r, store := newTestRetriever(gw)

	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{
		// Id ordering puts mary's record first when scores tie.
		fieldRecord("a_mary", "u1", "mary_resume.pdf", "email", "mary@b.com", 0.9, []float32{1, 0, 0}),
		fieldRecord("b_john", "u1", "john_resume.pdf", "email", "john@b.com", 0.9, []float32{1, 0, 0}),
		fieldRecord("z_name", "u1", "john_resume.pdf", "full_name", "John Smith", 0.95, []float32{0, 1, 0}),
	}))

	results, err := r.Search(ctx, "u1", "what is john's email", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "john@b.com")
}

func TestSearchIsolatedByUser(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{vectors: map[string][]float32{"what is my email": {1, 0, 0}}}
	r, store := newTestRetriever(gw)

	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{
		fieldRecord("f1", "u2", "resume.pdf", "email", "other@b.com", 0.9, []float32{1, 0, 0}),
	}))

	results, err := r.Search(ctx, "u1", "what is my email", 2)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDetectFieldType(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"what is my phone number", "phone"},
		{"my email please", "email"},
		{"where did I go to university", "education"},
		{"who are you", "full_name"},
	}
	for _, tc := range cases {
		ft, ok := detectFieldType(tc.query)
		require.True(t, ok, "query %q", tc.query)
		assert.Equal(t, tc.want, string(ft), "query %q", tc.query)
	}
}

func TestIsPersonalInfoQuery(t *testing.T) {
	assert.True(t, isPersonalInfoQuery("What is my phone number?"))
	assert.True(t, isPersonalInfoQuery("tell me about me"))
	assert.False(t, isPersonalInfoQuery("summarize the quarterly report"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Email", titleCase("email"))
	assert.Equal(t, "Full Name", titleCase("full_name"))
}

func TestGenerateDegradesWithoutProvider(t *testing.T) {
	g := NewGenerator(nil, config.LLMConfig{ChatModel: "gpt-3.5-turbo"})

	answer, err := g.Generate(context.Background(), "what is my email", []SearchResult{
		{Text: "**Email**: a@b.com", Score: 0.9, Source: "resume.pdf"},
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(answer.Text, "API key"))
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "resume.pdf", answer.Sources[0].Filename)
}

func TestGenerateUsesGateway(t *testing.T) {
	gw := &stubGateway{chat: "Your email is a@b.com."}
	g := NewGenerator(gw, config.LLMConfig{ChatModel: "gpt-3.5-turbo"})

	answer, err := g.Generate(context.Background(), "what is my email", nil)
	require.NoError(t, err)
	assert.Equal(t, "Your email is a@b.com.", answer.Text)
	assert.Equal(t, "stub", answer.Model)
}
