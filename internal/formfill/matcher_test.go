package formfill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuform/autofill-backend/internal/config"
	"github.com/docuform/autofill-backend/internal/embedding"
	"github.com/docuform/autofill-backend/internal/extract"
	"github.com/docuform/autofill-backend/internal/llm"
	"github.com/docuform/autofill-backend/internal/vectorindex"
)

type stubGateway struct {
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
	for i := range req.Input {
		out[i] = []float32{1, 0, 0}
	}
	return &llm.EmbeddingResponse{Embeddings: out}, nil
}

func newTestMatcher(gw llm.Gateway) (*Matcher, *vectorindex.Store) {
	store := vectorindex.NewStore(vectorindex.NewMemory(3), config.IndexConfig{
		SimilarityThreshold: 0.5,
		UpsertBatchSize:     100,
	})
	embedSvc := embedding.NewService(gw, "")
	return NewMatcher(store, embedSvc, gw, config.LLMConfig{ChatModel: "gpt-3.5-turbo"}), store
}

func phoneRecord(userID string) vectorindex.Record {
	return vectorindex.Record{
		ID:        "f_phone",
		Embedding: []float32{1, 0, 0},
		Metadata: map[string]interface{}{
			"user_id":       userID,
			"doc_id":        "d1",
			"filename":      "resume.pdf",
			"kind":          vectorindex.KindField,
			"field_type":    "phone",
			"field_value":   "(555) 123-4567",
			"field_context": "Phone: (555) 123-4567",
			"confidence":    0.8,
		},
	}
}

func TestMatchTelRemapsToPhone(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMatcher(&stubGateway{})

	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{phoneRecord("u1")}))

	match, err := m.Match(ctx, "u1", FieldDescriptor{Label: "Phone Number", Type: "tel"})
	require.NoError(t, err)
	assert.True(t, match.Matched)
	assert.Equal(t, "(555) 123-4567", match.Value)
	assert.Equal(t, "phone", match.FieldType)
	assert.GreaterOrEqual(t, match.Confidence, 0.3)
	assert.Equal(t, "field_index", match.Method)
}

func TestCombinedConfidenceMonotonicInSimilarity(t *testing.T) {
	prev := -1.0
	for _, sim := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		c := combinedConfidence(sim, 0.8, 0.8)
		assert.Greater(t, c, prev)
		prev = c
	}
}

func TestLabelAffinityTiers(t *testing.T) {
	assert.Equal(t, 1.0, labelAffinity("Phone Number", extract.FieldPhone))
	assert.Equal(t, 1.0, labelAffinity("Email", extract.FieldEmail))
	assert.Equal(t, 0.8, labelAffinity("Mobile", extract.FieldPhone))
	assert.Equal(t, 0.8, labelAffinity("E-mail address", extract.FieldEmail))
	assert.Equal(t, 0.0, labelAffinity("Favorite color", extract.FieldPhone))
}

func TestReformulations(t *testing.T) {
	queries := reformulations(FieldDescriptor{Label: "Phone Number", Type: "tel", Context: "contact section"})
	assert.Equal(t, []string{
		"Phone Number",
		"tel Phone Number",
		"Phone Number contact section",
		"tel",
	}, queries)
}

func TestReformulationsSkipEmptyAndDuplicate(t *testing.T) {
	queries := reformulations(FieldDescriptor{Label: "email", Type: "email"})
	assert.Equal(t, []string{"email", "email email"}, queries)
}

func TestMatchFallsBackToGenerative(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMatcher(&stubGateway{chat: "Acme Corp"})

	// No field records; only a chunk mentioning the employer.
	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{
		{
			ID:        "c1",
			Embedding: []float32{1, 0, 0},
			Metadata: map[string]interface{}{
				"user_id":  "u1",
				"doc_id":   "d1",
				"filename": "resume.pdf",
				"kind":     vectorindex.KindChunk,
				"text":     "Currently employed at Acme Corp as a backend engineer.",
			},
		},
	}))

	match, err := m.Match(ctx, "u1", FieldDescriptor{Label: "Current Employer", Type: "text"})
	require.NoError(t, err)
	assert.True(t, match.Matched)
	assert.Equal(t, "Acme Corp", match.Value)
	assert.Equal(t, generativeConfidence, match.Confidence)
	assert.Equal(t, "generative", match.Method)
	assert.Equal(t, "resume.pdf", match.Source)
}

func TestMatchGenerativeNotFound(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMatcher(&stubGateway{chat: "NOT_FOUND"})

	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{
		{
			ID:        "c1",
			Embedding: []float32{1, 0, 0},
			Metadata: map[string]interface{}{
				"user_id": "u1",
				"doc_id":  "d1",
				"kind":    vectorindex.KindChunk,
				"text":    "Nothing relevant here.",
			},
		},
	}))

	match, err := m.Match(ctx, "u1", FieldDescriptor{Label: "Visa Status", Type: "text"})
	require.NoError(t, err)
	assert.False(t, match.Matched)
}

func TestMatchEmptyIndexNoMatch(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMatcher(&stubGateway{chat: "NOT_FOUND"})

	match, err := m.Match(ctx, "u1", FieldDescriptor{Label: "Phone Number", Type: "tel"})
	require.NoError(t, err)
	assert.False(t, match.Matched)
}

func TestMatchIsolatedByUser(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMatcher(&stubGateway{chat: "NOT_FOUND"})

	require.NoError(t, store.Upsert(ctx, []vectorindex.Record{phoneRecord("someone-else")}))

	match, err := m.Match(ctx, "u1", FieldDescriptor{Label: "Phone Number", Type: "tel"})
	require.NoError(t, err)
	assert.False(t, match.Matched)
}
