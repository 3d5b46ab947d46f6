package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Raventwist88/ontrakk/internal/stats"
)

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleStatsReport GET /v1/stats/report?window=30d&format=csv|pdf
func (h *Handlers) HandleStatsReport(w http.ResponseWriter, r *http.Request) {
	q, err := stats.ParseQuery(r)
	if err != nil {
		stats.WriteServiceError(w, err)
		return
	}

	report, err := h.service.Render(r.Context(), q, r.URL.Query().Get("format"))
	if err != nil {
		if errors.Is(err, ErrInvalidFormat) {
			writeError(w, http.StatusBadRequest, "invalid_format", "Format must be 'pdf' or 'csv'")
			return
		}
		stats.WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=\""+report.Filename()+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Data)
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
