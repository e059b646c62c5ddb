package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/docuform/autofill-backend/internal/embedding"
	"github.com/docuform/autofill-backend/internal/extract"
	"github.com/docuform/autofill-backend/internal/vectorindex"
)

// SearchResult is one ranked hit from document retrieval. Field hits are
// rendered into display text; Score already folds in extraction
// confidence for them.
type SearchResult struct {
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Source   string                 `json:"source"`
	Kind     string                 `json:"kind"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// EntityHint resolves a person name mentioned in the query, used to
// prefer that person's records when several people share an index. The
// hook is pluggable so deployments can bring their own resolver.
type EntityHint func(ctx context.Context, userID, query string) string

type RetrieverOption func(*Retriever)

func WithEntityHint(h EntityHint) RetrieverOption {
	return func(r *Retriever) { r.entityHint = h }
}

// personalInfoKeywords classify a query as asking about the user's own
// stored facts, which unlocks the field-index track.
var personalInfoKeywords = []string{
	"name", "email", "phone", "address", "contact",
	"skill", "experience", "education", "degree",
	"linkedin", "github", "website", "resume",
	"about me", "who am i", "who are you", "my ",
}

// fieldTypeHints narrow a personal-information query to one field type.
// Checked in order; first hit wins.
var fieldTypeHints = []struct {
	keywords  []string
	fieldType extract.FieldType
}{
	{[]string{"email", "e-mail", "mail"}, extract.FieldEmail},
	{[]string{"phone", "tel", "number", "call", "mobile"}, extract.FieldPhone},
	{[]string{"linkedin"}, extract.FieldLinkedIn},
	{[]string{"github"}, extract.FieldGitHub},
	{[]string{"website", "url", "site"}, extract.FieldWebsite},
	{[]string{"address", "live", "location"}, extract.FieldAddress},
	{[]string{"skill"}, extract.FieldSkills},
	{[]string{"education", "degree", "school", "university"}, extract.FieldEducation},
	{[]string{"experience", "work", "job"}, extract.FieldExperience},
	{[]string{"name", "who am i", "who are you"}, extract.FieldFullName},
}

// Retriever runs the dual-track search: chunk similarity always, field
// similarity when the query asks for personal information.
type Retriever struct {
	store      *vectorindex.Store
	embedSvc   *embedding.Service
	topK       int
	entityHint EntityHint
}

func NewRetriever(store *vectorindex.Store, embedSvc *embedding.Service, topK int, opts ...RetrieverOption) *Retriever {
	if topK <= 0 {
		topK = 2
	}
	r := &Retriever{store: store, embedSvc: embedSvc, topK: topK}
	for _, opt := range opts {
		opt(r)
	}
	if r.entityHint == nil {
		r.entityHint = r.indexedNameHint
	}
	return r
}

// Search retrieves the most relevant chunks and fields for a query.
// Unavailable backends degrade to an empty result set.
func (r *Retriever) Search(ctx context.Context, userID, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = r.topK
	}
	if !r.embedSvc.Available() {
		slog.Warn("embedding backend unavailable, returning no results", "user_id", userID)
		return nil, nil
	}

	queryVec, err := r.embedSvc.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results := r.searchChunks(ctx, userID, queryVec, topK)

	if isPersonalInfoQuery(query) {
		fieldResults := r.searchFields(ctx, userID, query, queryVec, topK)
		results = append(results, fieldResults...)
	}

	sortByScore(results)
	return results, nil
}

func (r *Retriever) searchChunks(ctx context.Context, userID string, queryVec []float32, topK int) []SearchResult {
	matches, err := r.store.Search(ctx, vectorindex.Query{
		Vector: queryVec,
		TopK:   topK,
		Filter: vectorindex.Filter{UserID: userID, Kind: vectorindex.KindChunk},
	})
	if err != nil {
		slog.Warn("chunk search failed", "user_id", userID, "error", err)
		return nil
	}

	var results []SearchResult
	for _, m := range matches {
		if kindOf(m.Metadata) != vectorindex.KindChunk {
			continue
		}
		results = append(results, SearchResult{
			Text:     metaStr(m.Metadata, "text"),
			Score:    m.Score,
			Source:   metaStr(m.Metadata, "filename"),
			Kind:     vectorindex.KindChunk,
			Metadata: m.Metadata,
		})
	}
	return results
}

func (r *Retriever) searchFields(ctx context.Context, userID, query string, queryVec []float32, topK int) []SearchResult {
	filter := vectorindex.Filter{UserID: userID, Kind: vectorindex.KindField}
	if ft, ok := detectFieldType(query); ok {
		filter.FieldType = string(ft)
	}

	matches, err := r.store.Search(ctx, vectorindex.Query{
		Vector: queryVec,
		TopK:   topK,
		Filter: filter,
	})
	if err != nil {
		slog.Warn("field search failed", "user_id", userID, "error", err)
		return nil
	}

	if entity := r.entityHint(ctx, userID, query); entity != "" {
		matches = preferEntity(matches, entity)
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}

	var results []SearchResult
	for _, m := range matches {
		fieldType := metaStr(m.Metadata, "field_type")
		value := metaStr(m.Metadata, "field_value")
		window := metaStr(m.Metadata, "field_context")
		confidence := metaFloat(m.Metadata, "confidence")

		results = append(results, SearchResult{
			Text:     fmt.Sprintf("**%s**: %s (Context: %s)", titleCase(fieldType), value, window),
			Score:    m.Score * confidence,
			Source:   metaStr(m.Metadata, "filename"),
			Kind:     vectorindex.KindField,
			Metadata: m.Metadata,
		})
	}
	return results
}

// indexedNameHint is the default entity resolver: it lists the user's
// stored full_name values and reports the first one the query mentions.
func (r *Retriever) indexedNameHint(ctx context.Context, userID, query string) string {
	matches, err := r.store.Search(ctx, vectorindex.Query{
		TopK: 20,
		Filter: vectorindex.Filter{
			UserID:    userID,
			Kind:      vectorindex.KindField,
			FieldType: string(extract.FieldFullName),
		},
	})
	if err != nil {
		return ""
	}

	lowerQuery := strings.ToLower(query)
	for _, m := range matches {
		name := strings.ToLower(metaStr(m.Metadata, "field_value"))
		if name != "" && strings.Contains(lowerQuery, name) {
			return name
		}
		// First-name mention is enough to disambiguate.
		if first, _, ok := strings.Cut(name, " "); ok && strings.Contains(lowerQuery, first) {
			return name
		}
	}
	return ""
}

// preferEntity reorders matches so records mentioning the entity in
// their filename, value or context come first. Relative order within
// each partition is preserved.
func preferEntity(matches []vectorindex.Match, entity string) []vectorindex.Match {
	entity = strings.ToLower(entity)
	first, _, _ := strings.Cut(entity, " ")

	mentions := func(m vectorindex.Match) bool {
		for _, key := range []string{"filename", "field_value", "field_context"} {
			v := strings.ToLower(metaStr(m.Metadata, key))
			if strings.Contains(v, entity) || (first != "" && strings.Contains(v, first)) {
				return true
			}
		}
		return false
	}

	var preferred, rest []vectorindex.Match
	for _, m := range matches {
		if mentions(m) {
			preferred = append(preferred, m)
		} else {
			rest = append(rest, m)
		}
	}
	return append(preferred, rest...)
}

func isPersonalInfoQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range personalInfoKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func detectFieldType(query string) (extract.FieldType, bool) {
	lower := strings.ToLower(query)
	for _, hint := range fieldTypeHints {
		for _, kw := range hint.keywords {
			if strings.Contains(lower, kw) {
				return hint.fieldType, true
			}
		}
	}
	return "", false
}

func sortByScore(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func titleCase(fieldType string) string {
	parts := strings.Split(fieldType, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func kindOf(m map[string]interface{}) string {
	if kind := metaStr(m, "kind"); kind != "" {
		return kind
	}
	return vectorindex.KindChunk
}

func metaStr(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func metaFloat(m map[string]interface{}, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
