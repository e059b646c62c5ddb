package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/docuform/autofill-backend/internal/auth"
	"github.com/docuform/autofill-backend/internal/cache"
	"github.com/docuform/autofill-backend/internal/rag"
)

const queryCacheTTL = 5 * time.Minute

type ChatHandler struct {
	retriever *rag.Retriever
	generator *rag.Generator
	cache     *cache.Cache
}

func NewChatHandler(retriever *rag.Retriever, generator *rag.Generator, c *cache.Cache) *ChatHandler {
	return &ChatHandler{retriever: retriever, generator: generator, cache: c}
}

type chatRequest struct {
	Message string `json:"message"`
	TopK    int    `json:"top_k,omitempty"`
}

type chatResponse struct {
	Answer  string       `json:"answer"`
	Sources []rag.Source `json:"sources"`
	Model   string       `json:"model,omitempty"`
	Cached  bool         `json:"cached,omitempty"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	key := cacheKey("chat", userID, req.Message)
	if h.cache != nil {
		var cached chatResponse
		if err := h.cache.Get(r.Context(), key, &cached); err == nil {
			cached.Cached = true
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	results, err := h.retriever.Search(r.Context(), userID, req.Message, req.TopK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	answer, err := h.generator.Generate(r.Context(), req.Message, results)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := chatResponse{Answer: answer.Text, Sources: answer.Sources, Model: answer.Model}
	if h.cache != nil {
		_ = h.cache.Set(r.Context(), key, resp, queryCacheTTL)
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

func (h *ChatHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	key := cacheKey("search", userID, req.Query)
	if h.cache != nil {
		var cached []rag.SearchResult
		if err := h.cache.Get(r.Context(), key, &cached); err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"results": cached, "cached": true})
			return
		}
	}

	results, err := h.retriever.Search(r.Context(), userID, req.Query, req.TopK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(r.Context(), key, results, queryCacheTTL)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}

func cacheKey(kind, userID, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s:%s:%s", kind, userID, hex.EncodeToString(sum[:16]))
}
