package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docuform/autofill-backend/internal/config"
	"github.com/docuform/autofill-backend/internal/llm"
)

const noProviderAnswer = "I found relevant information in your documents, " +
	"but I cannot generate a response because no language model API key is configured."

type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
	Model   string   `json:"model,omitempty"`
	Tokens  int      `json:"tokens,omitempty"`
}

type Source struct {
	Filename string  `json:"filename"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

// Generator synthesizes a free-text answer from retrieved context.
type Generator struct {
	gateway     llm.Gateway
	model       string
	temperature float64
	maxTokens   int
}

func NewGenerator(gw llm.Gateway, cfg config.LLMConfig) *Generator {
	return &Generator{
		gateway:     gw,
		model:       cfg.ChatModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Generate produces an answer for the query from the retrieved results.
// Without a configured provider it degrades to a canned answer instead
// of erroring; LLM failures degrade the same way.
func (g *Generator) Generate(ctx context.Context, query string, results []SearchResult) (*Answer, error) {
	sources := buildSources(results)

	if g.gateway == nil || !g.gateway.Available() {
		return &Answer{Text: noProviderAnswer, Sources: sources}, nil
	}

	messages := []llm.Message{
		{
			Role: "system",
			Content: "You are a helpful assistant answering questions about the user's own documents. " +
				"Answer using only the provided context. If the context does not contain the answer, say so plainly.",
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", buildContext(results), query),
		},
	}

	resp, err := g.gateway.Chat(ctx, llm.ChatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		slog.Warn("answer generation failed, degrading", "error", err)
		return &Answer{Text: noProviderAnswer, Sources: sources}, nil
	}

	return &Answer{
		Text:    resp.Content,
		Sources: sources,
		Model:   resp.Model,
		Tokens:  resp.TotalTokens,
	}, nil
}

func buildContext(results []SearchResult) string {
	if len(results) == 0 {
		return "(no matching documents)"
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[Source %d: %s] (score: %.3f)\n%s\n\n", i+1, r.Source, r.Score, r.Text)
	}
	return sb.String()
}

func buildSources(results []SearchResult) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Filename: r.Source,
			Snippet:  truncate(r.Text, 200),
			Score:    r.Score,
		}
	}
	return sources
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
