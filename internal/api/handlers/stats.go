package handlers

import (
	"net/http"

	"github.com/docuform/autofill-backend/internal/vectorindex"
)

type StatsHandler struct {
	store *vectorindex.Store
}

func NewStatsHandler(store *vectorindex.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

func (h *StatsHandler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
