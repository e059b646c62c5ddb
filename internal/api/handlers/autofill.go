package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/docuform/autofill-backend/internal/auth"
	"github.com/docuform/autofill-backend/internal/formfill"
)

type AutofillHandler struct {
	matcher *formfill.Matcher
}

func NewAutofillHandler(matcher *formfill.Matcher) *AutofillHandler {
	return &AutofillHandler{matcher: matcher}
}

// MatchField answers one form-field descriptor with the best stored
// value. A no-match is a 200 with matched=false, not an error.
func (h *AutofillHandler) MatchField(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var field formfill.FieldDescriptor
	if err := json.NewDecoder(r.Body).Decode(&field); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if field.Label == "" && field.Type == "" {
		writeError(w, http.StatusBadRequest, "label or type required")
		return
	}

	match, err := h.matcher.Match(r.Context(), userID, field)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, match)
}
