package formfill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docuform/autofill-backend/internal/config"
	"github.com/docuform/autofill-backend/internal/embedding"
	"github.com/docuform/autofill-backend/internal/extract"
	"github.com/docuform/autofill-backend/internal/llm"
	"github.com/docuform/autofill-backend/internal/vectorindex"
)

// matchThreshold is the minimum combined confidence for a field-index
// match; below it the matcher falls back to generative extraction.
const matchThreshold = 0.3

// generativeConfidence is assigned to fallback answers: the model saw
// real context but there is no extraction confidence to fold in.
const generativeConfidence = 0.6

const notFoundSentinel = "NOT_FOUND"

// FieldDescriptor describes one target field on the form being filled.
type FieldDescriptor struct {
	Label   string `json:"label"`
	Type    string `json:"type"`
	Context string `json:"context,omitempty"`
}

// FieldMatch is the autofill answer for one descriptor.
type FieldMatch struct {
	Matched    bool    `json:"matched"`
	Value      string  `json:"value,omitempty"`
	FieldType  string  `json:"field_type,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
	Method     string  `json:"method,omitempty"` // field_index or generative
}

// htmlTypeRemap translates form input types to the extraction taxonomy.
// A nil entry means the field search runs unfiltered.
var htmlTypeRemap = map[string][]extract.FieldType{
	"tel":       {extract.FieldPhone},
	"telephone": {extract.FieldPhone},
	"phone":     {extract.FieldPhone},
	"email":     {extract.FieldEmail},
	"url":       {extract.FieldLinkedIn, extract.FieldGitHub, extract.FieldWebsite},
	"textarea":  {extract.FieldSkills, extract.FieldExperience},
	"date":      {extract.FieldDate},
	"name":      {extract.FieldFullName, extract.FieldName},
	"address":   {extract.FieldAddress},
}

// fieldTypeSynonyms back the 0.8 tier of label affinity.
var fieldTypeSynonyms = map[extract.FieldType][]string{
	extract.FieldEmail:      {"e-mail", "mail", "email address"},
	extract.FieldPhone:      {"mobile", "telephone", "cell", "tel"},
	extract.FieldFullName:   {"name", "your name", "applicant"},
	extract.FieldName:       {"full name", "your name"},
	extract.FieldWebsite:    {"url", "site", "homepage", "portfolio"},
	extract.FieldLinkedIn:   {"linked-in", "profile"},
	extract.FieldGitHub:     {"git", "repository"},
	extract.FieldAddress:    {"location", "street", "city"},
	extract.FieldSkills:     {"abilities", "technologies", "expertise"},
	extract.FieldExperience: {"work history", "employment", "background"},
	extract.FieldEducation:  {"degree", "school", "university"},
}

// Matcher answers "what value fills this form field" against the field
// index, with a generative fallback over raw chunks.
type Matcher struct {
	store    *vectorindex.Store
	embedSvc *embedding.Service
	gateway  llm.Gateway
	model    string
}

func NewMatcher(store *vectorindex.Store, embedSvc *embedding.Service, gw llm.Gateway, cfg config.LLMConfig) *Matcher {
	return &Matcher{
		store:    store,
		embedSvc: embedSvc,
		gateway:  gw,
		model:    cfg.ChatModel,
	}
}

type candidate struct {
	value      string
	fieldType  string
	source     string
	similarity float64
	extraction float64
	combined   float64
}

// Match finds the best stored value for the descriptor. Backends being
// unavailable yields no match, never an error.
func (m *Matcher) Match(ctx context.Context, userID string, field FieldDescriptor) (*FieldMatch, error) {
	if !m.embedSvc.Available() {
		slog.Warn("embedding backend unavailable, field match degraded",
			"user_id", userID, "label", field.Label)
		return &FieldMatch{Matched: false}, nil
	}

	best := m.searchFieldIndex(ctx, userID, field)
	if best != nil && best.combined >= matchThreshold {
		return &FieldMatch{
			Matched:    true,
			Value:      best.value,
			FieldType:  best.fieldType,
			Confidence: best.combined,
			Source:     best.source,
			Method:     "field_index",
		}, nil
	}

	return m.generativeFallback(ctx, userID, field)
}

func (m *Matcher) searchFieldIndex(ctx context.Context, userID string, field FieldDescriptor) *candidate {
	types := remapTypes(field.Type)

	var best *candidate
	for _, query := range reformulations(field) {
		queryVec, err := m.embedSvc.EmbedSingle(ctx, query)
		if err != nil {
			slog.Warn("embed reformulation failed", "query", query, "error", err)
			continue
		}

		filters := []vectorindex.Filter{{UserID: userID, Kind: vectorindex.KindField}}
		if len(types) > 0 {
			filters = filters[:0]
			for _, ft := range types {
				filters = append(filters, vectorindex.Filter{
					UserID:    userID,
					Kind:      vectorindex.KindField,
					FieldType: string(ft),
				})
			}
		}

		for _, filter := range filters {
			matches, err := m.store.Search(ctx, vectorindex.Query{
				Vector: queryVec,
				TopK:   3,
				Filter: filter,
			})
			if err != nil {
				slog.Warn("field index search failed", "error", err)
				continue
			}
			for _, hit := range matches {
				c := scoreCandidate(field.Label, hit)
				if best == nil || c.combined > best.combined {
					best = &c
				}
			}
		}
	}
	return best
}

func scoreCandidate(label string, hit vectorindex.Match) candidate {
	fieldType := metaStr(hit.Metadata, "field_type")
	extraction := metaFloat(hit.Metadata, "confidence")

	return candidate{
		value:      metaStr(hit.Metadata, "field_value"),
		fieldType:  fieldType,
		source:     metaStr(hit.Metadata, "filename"),
		similarity: hit.Score,
		extraction: extraction,
		combined:   combinedConfidence(hit.Score, extraction, labelAffinity(label, extract.FieldType(fieldType))),
	}
}

// combinedConfidence weighs semantic agreement over label wording.
func combinedConfidence(similarity, extraction, affinity float64) float64 {
	return 0.7*(similarity*extraction) + 0.3*affinity
}

// labelAffinity scores how well a form label names a stored field type:
// 1.0 on substring containment, 0.8 on a known synonym, else 0.
func labelAffinity(label string, fieldType extract.FieldType) float64 {
	normLabel := strings.ToLower(strings.TrimSpace(label))
	normType := strings.ReplaceAll(string(fieldType), "_", " ")
	if normLabel == "" || normType == "" {
		return 0
	}

	if strings.Contains(normLabel, normType) || strings.Contains(normType, normLabel) {
		return 1.0
	}
	for _, syn := range fieldTypeSynonyms[fieldType] {
		if strings.Contains(normLabel, syn) || strings.Contains(syn, normLabel) {
			return 0.8
		}
	}
	return 0
}

// reformulations builds the query variants tried against the index.
func reformulations(field FieldDescriptor) []string {
	raw := []string{
		field.Label,
		strings.TrimSpace(field.Type + " " + field.Label),
		strings.TrimSpace(field.Label + " " + field.Context),
		field.Type,
	}

	seen := make(map[string]bool)
	var queries []string
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
	}
	return queries
}

func remapTypes(htmlType string) []extract.FieldType {
	return htmlTypeRemap[strings.ToLower(strings.TrimSpace(htmlType))]
}

// generativeFallback asks the chat model to pull a value out of the two
// most relevant chunks when the field index has nothing convincing.
func (m *Matcher) generativeFallback(ctx context.Context, userID string, field FieldDescriptor) (*FieldMatch, error) {
	if m.gateway == nil || !m.gateway.Available() {
		return &FieldMatch{Matched: false}, nil
	}

	query := strings.TrimSpace(field.Label + " " + field.Type)
	queryVec, err := m.embedSvc.EmbedSingle(ctx, query)
	if err != nil {
		slog.Warn("embed fallback query failed", "error", err)
		return &FieldMatch{Matched: false}, nil
	}

	chunks, err := m.store.Search(ctx, vectorindex.Query{
		Vector: queryVec,
		TopK:   2,
		Filter: vectorindex.Filter{UserID: userID, Kind: vectorindex.KindChunk},
	})
	if err != nil || len(chunks) == 0 {
		return &FieldMatch{Matched: false}, nil
	}

	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(metaStr(c.Metadata, "text"))
		sb.WriteString("\n\n")
	}

	prompt := fmt.Sprintf(
		"Extract the value for the form field %q (type: %s) from the document excerpts below.\n"+
			"Respond with only the value itself, no explanation.\n"+
			"If the excerpts do not contain the value, respond with exactly %s.\n\nExcerpts:\n%s",
		field.Label, field.Type, notFoundSentinel, sb.String())

	resp, err := m.gateway.Chat(ctx, llm.ChatRequest{
		Model:    m.model,
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		slog.Warn("generative field extraction failed", "label", field.Label, "error", err)
		return &FieldMatch{Matched: false}, nil
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" || strings.EqualFold(answer, notFoundSentinel) ||
		strings.Contains(strings.ToLower(answer), "not found") {
		return &FieldMatch{Matched: false}, nil
	}

	return &FieldMatch{
		Matched:    true,
		Value:      answer,
		FieldType:  field.Type,
		Confidence: generativeConfidence,
		Source:     metaStr(chunks[0].Metadata, "filename"),
		Method:     "generative",
	}, nil
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
