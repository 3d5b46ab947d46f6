package backup

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Raventwist88/ontrakk/internal/storage"
	log "github.com/sirupsen/logrus"
)

// maxImportBytes caps an uploaded backup.
const maxImportBytes = 20 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type ListResponse struct {
	Backups []Summary `json:"backups"`
}

type RestoreResponse struct {
	Restored RestoreResult `json:"restored"`
}

// HandleList GET /v1/backups
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Backups: list})
}

// HandleCreate POST /v1/backups
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Create(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b.Summary())
}

// HandleGet GET /v1/backups/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleDelete DELETE /v1/backups/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRestore POST /v1/backups/{id}/restore
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Restore(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{Restored: result})
}

// HandleVerify GET /v1/backups/{id}/verify
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.VerifyMirror(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleImport POST /v1/backups/import
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	b, err := h.service.Import(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b.Summary())
}

// HandleRestoreData POST /v1/backups/restore
func (h *Handler) HandleRestoreData(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	result, err := h.service.RestoreFromData(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{Restored: result})
}

// HandleExport GET /v1/backups/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.Export(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="ontrakk-backup.json"`)
	writeJSON(w, http.StatusOK, bundle)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Backup file is too large", nil)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "Could not read request body", nil)
		return nil, false
	}
	return data, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	var partial *PartialRestoreError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "invalid_backup", "Backup failed validation", verr.Problems)
	case errors.Is(err, ErrVersionTooNew):
		writeError(w, http.StatusUnprocessableEntity, "version_too_new", err.Error(), nil)
	case errors.Is(err, ErrMissingVersion):
		writeError(w, http.StatusUnprocessableEntity, "unknown_origin", err.Error(), nil)
	case errors.Is(err, ErrUnknownVersion):
		writeError(w, http.StatusUnprocessableEntity, "unknown_version", err.Error(), nil)
	case errors.Is(err, ErrUnrecognizedFormat):
		writeError(w, http.StatusBadRequest, "unrecognized_format", "File is not a backup", nil)
	case errors.Is(err, ErrBackupNotFound):
		writeError(w, http.StatusNotFound, "backup_not_found", "Backup not found", nil)
	case errors.Is(err, ErrNotMirrored):
		writeError(w, http.StatusConflict, "not_mirrored", err.Error(), nil)
	case errors.Is(err, ErrManifestInvalid), errors.Is(err, ErrDigestMismatch):
		writeError(w, http.StatusConflict, "manifest_mismatch", err.Error(), nil)
	case errors.As(err, &partial):
		log.WithError(err).Error("backup: partial restore")
		writeError(w, http.StatusInternalServerError, "partial_restore", partial.Error(), nil)
	case errors.Is(err, storage.ErrUnavailable):
		log.WithError(err).Error("backup: storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage unavailable", nil)
	default:
		log.WithError(err).Error("backup: unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
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
