package workouts

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/Raventwist88/ontrakk/internal/storage"
)

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleList GET /v1/workouts
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Workouts: list})
}

// HandleCreate POST /v1/workouts
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body")
		return
	}

	workout, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, workout)
}

// HandleGet GET /v1/workouts/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	workout, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// HandleUpdate PUT /v1/workouts/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body")
		return
	}

	workout, err := h.service.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// HandleDelete DELETE /v1/workouts/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStart POST /v1/workouts/{id}/start
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	workout, err := h.service.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// HandleLogSet POST /v1/workouts/{id}/sets
func (h *Handlers) HandleLogSet(w http.ResponseWriter, r *http.Request) {
	var req LogSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body")
		return
	}

	workout, err := h.service.LogSet(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// HandleComplete POST /v1/workouts/{id}/complete
func (h *Handlers) HandleComplete(w http.ResponseWriter, r *http.Request) {
	workout, err := h.service.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// HandleSummary GET /v1/workouts/{id}/summary
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleProgression GET /v1/workouts/{id}/progression
func (h *Handlers) HandleProgression(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Progression(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleListTemplates GET /v1/templates
func (h *Handlers) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TemplatesResponse{Templates: h.service.ListTemplates()})
}

// HandleInstantiate POST /v1/templates/{id}/instantiate
// The body is optional: {"date": "YYYY-MM-DD"}.
func (h *Handlers) HandleInstantiate(w http.ResponseWriter, r *http.Request) {
	var req InstantiateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body")
			return
		}
	}

	workout, err := h.service.CreateFromTemplate(r.Context(), r.PathValue("id"), req.Date)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, workout)
}

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrWorkoutNotFound):
		writeError(w, http.StatusNotFound, "workout_not_found", "workout not found")
	case errors.Is(err, ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "template_not_found", "template not found")
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		log.WithError(err).Error("workouts: storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage unavailable")
	default:
		log.WithError(err).Error("workouts: unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
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
