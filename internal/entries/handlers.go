package entries

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Raventwist88/ontrakk/internal/storage"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type ListResponse struct {
	Entries []DailyEntry `json:"entries"`
}

type ImportLegacyResponse struct {
	Imported int `json:"imported"`
}

// HandleList GET /v1/entries[?order=desc]
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("order"), "desc") {
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
	}
	writeJSON(w, http.StatusOK, ListResponse{Entries: list})
}

// HandleCreate POST /v1/entries
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var raw RawEntry
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	entry, err := h.service.Save(r.Context(), raw)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleGet GET /v1/entries/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleDelete DELETE /v1/entries/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleImportLegacy POST /v1/entries/legacy-cache
func (h *Handler) HandleImportLegacy(w http.ResponseWriter, r *http.Request) {
	var raws []RawEntry
	if err := json.NewDecoder(r.Body).Decode(&raws); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Expected a JSON array of entries")
		return
	}

	imported, err := h.service.ImportLegacyCache(r.Context(), raws)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportLegacyResponse{Imported: imported})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Entry not found")
	case errors.Is(err, ErrInvalidEntry):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		log.WithError(err).Error("entries: storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage unavailable")
	default:
		log.WithError(err).Error("entries: unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
