package stats

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Raventwist88/ontrakk/internal/entries"
)

const defaultRecentLimit = 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StatsView is Stats with averages rounded for display.
type StatsView struct {
	CurrentWeight     *float64        `json:"currentWeight"`
	StartingWeight    *float64        `json:"startingWeight"`
	WeightChange      *float64        `json:"weightChange"`
	AvgCaloriesIntake *int            `json:"avgCaloriesIntake"`
	AvgCaloriesBurned *int            `json:"avgCaloriesBurned"`
	TotalDaysTracked  int             `json:"totalDaysTracked"`
	LastEntry         *time.Time      `json:"lastEntry"`
	WeightTrend       []WeightPoint   `json:"weightTrend"`
	CalorieTrend      []CaloriePoint  `json:"calorieTrend"`
	Projection        *Projection     `json:"projection,omitempty"`
	GoalProjection    *GoalProjection `json:"goalProjection,omitempty"`
}

type StatsResponse struct {
	Window Window     `json:"window"`
	Stats  *StatsView `json:"stats"`
}

type RecentResponse struct {
	Entries []entries.DailyEntry `json:"entries"`
}

// NewStatsView rounds averages to the nearest integer. Nil stays nil.
func NewStatsView(st *Stats) *StatsView {
	if st == nil {
		return nil
	}
	return &StatsView{
		CurrentWeight:     st.CurrentWeight,
		StartingWeight:    st.StartingWeight,
		WeightChange:      st.WeightChange,
		AvgCaloriesIntake: roundPtr(st.AvgCaloriesIntake),
		AvgCaloriesBurned: roundPtr(st.AvgCaloriesBurned),
		TotalDaysTracked:  st.TotalDaysTracked,
		LastEntry:         st.LastEntry,
		WeightTrend:       st.WeightTrend,
		CalorieTrend:      st.CalorieTrend,
		Projection:        st.Projection,
		GoalProjection:    st.GoalProjection,
	}
}

func roundPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	r := int(math.Round(*v))
	return &r
}

// ParseQuery reads window and projection_days from the URL.
func ParseQuery(r *http.Request) (Query, error) {
	window, err := ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		return Query{}, err
	}
	q := Query{Window: window}
	if raw := r.URL.Query().Get("projection_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxProjectionDays {
			return Query{}, ErrInvalidProjection
		}
		q.ProjectionDays = n
	}
	return q, nil
}

// HandleGet GET /v1/stats?window=30d&projection_days=90
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	st, err := h.service.Compute(r.Context(), q)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Window: q.Window, Stats: NewStatsView(st)})
}

// HandleRecent GET /v1/stats/recent?limit=10
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecentResponse{Entries: list})
}

// WriteServiceError maps stats errors to HTTP responses.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_request", "window must be one of 7d, 30d, 90d, 365d, all")
	case errors.Is(err, ErrInvalidProjection):
		writeError(w, http.StatusBadRequest, "invalid_request", "projection_days must be between 0 and 3650")
	case errors.Is(err, ErrStorageUnavailable):
		log.WithError(err).Warn("stats: storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage is unavailable")
	default:
		log.WithError(err).Error("stats: internal error")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
