package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/Raventwist88/ontrakk/internal/storage"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGet GET /v1/settings
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Get(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePut PUT /v1/settings
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	updated, err := h.service.Update(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if verr, ok := IsValidation(err); ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid settings", verr.Problems)
		return
	}
	if errors.Is(err, storage.ErrUnavailable) {
		log.WithError(err).Error("settings: storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage unavailable", nil)
		return
	}
	log.WithError(err).Error("settings: unexpected error")
	writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details []string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
