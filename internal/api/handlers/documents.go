package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuform/autofill-backend/internal/auth"
	"github.com/docuform/autofill-backend/internal/cache"
	"github.com/docuform/autofill-backend/internal/document"
	"github.com/docuform/autofill-backend/internal/queue"
	"github.com/docuform/autofill-backend/internal/vectorindex"
	"github.com/docuform/autofill-backend/pkg/textextract"
)

type DocumentHandler struct {
	svc         *document.Service
	store       *vectorindex.Store
	queueClient *queue.Client
	cache       *cache.Cache
	maxFileSize int64
}

func NewDocumentHandler(svc *document.Service, store *vectorindex.Store, qc *queue.Client, c *cache.Cache, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		svc:         svc,
		store:       store,
		queueClient: qc,
		cache:       c,
		maxFileSize: maxFileSize,
	}
}

// Upload spools the file, creates the metadata row and enqueues the
// ingestion task. The doc_id returns synchronously; processing is
// asynchronous and observable via the status endpoint.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !supportedType(ext) {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type "+ext)
		return
	}

	doc, spoolPath, err := h.svc.Create(r.Context(), userID, header.Filename, ext, header.Size, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.queueClient.EnqueueDocumentIngest(queue.DocumentIngestPayload{
		DocID:    doc.DocID.String(),
		UserID:   userID,
		FilePath: spoolPath,
		Filename: doc.Filename,
		FileType: ext,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue processing")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	docs, err := h.svc.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	doc, err := h.svc.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Delete removes the document's vectors first, then the metadata, then
// invalidates the user's cached query results. Vector deletion reports
// whether the index is verifiably clean.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	doc, err := h.svc.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	clean, err := h.store.DeleteDocumentVectors(r.Context(), userID, id.String(), doc.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "vector deletion failed: "+err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.cache != nil {
		_ = h.cache.DeletePattern(r.Context(), "chat:"+userID+":*")
		_ = h.cache.DeletePattern(r.Context(), "search:"+userID+":*")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "deleted",
		"vectors_deleted": clean,
	})
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	doc, err := h.svc.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	resp := map[string]interface{}{"doc_id": doc.DocID.String(), "status": doc.Status}
	if doc.ProcessedAt != nil {
		resp["processed_at"] = doc.ProcessedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func supportedType(ext string) bool {
	for _, t := range textextract.SupportedTypes() {
		if t == ext {
			return true
		}
	}
	return false
}
