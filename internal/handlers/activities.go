package handlers

import (
	"net/http"
	"strconv"

	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/benvon/carbon-tracker/internal/services/activity"
	"github.com/benvon/carbon-tracker/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ActivityHandler handles activity CRUD requests
type ActivityHandler struct {
	svc    *activity.Service
	logger *zap.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(svc *activity.Service, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers activity routes on a router already prefixed with /activities
func (h *ActivityHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListActivities).Methods("GET")
	r.HandleFunc("", h.CreateActivity).Methods("POST")
	r.HandleFunc("/{id}", h.GetActivity).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateActivity).Methods("PUT", "PATCH")
	r.HandleFunc("/{id}", h.DeleteActivity).Methods("DELETE")
}

// ListActivitiesResponse represents the paginated response for listing activities
type ListActivitiesResponse struct {
	Activities []*models.Activity `json:"activities"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	Total      int                `json:"total"`
	TotalPages int                `json:"totalPages"`
}

// ListActivities lists activities filtered by owner, type and date range
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	q := activity.ListQuery{Filter: filter}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		q.Page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && ps > 0 {
		q.PageSize = ps
	}

	page, err := h.svc.List(r.Context(), q)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "retrieve activities")
		return
	}

	totalPages := (page.Total + page.PageSize - 1) / page.PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	respondJSON(w, http.StatusOK, ListActivitiesResponse{
		Activities: page.Activities,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: totalPages,
	})
}

// CreateActivity records an activity and its estimated emissions
func (h *ActivityHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req activity.CreateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.svc.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create activity")
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// GetActivity retrieves an activity by id
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(w, r)
	if !ok {
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "retrieve activity")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// UpdateActivity applies a partial update, re-estimating emissions when needed
func (h *ActivityHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(w, r)
	if !ok {
		return
	}

	var req activity.UpdateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update activity")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// DeleteActivity deletes an activity
func (h *ActivityHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete activity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func activityID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid activity ID")
		return uuid.Nil, false
	}
	return id, true
}

// parseFilter reads userId, activityType, startDate and endDate query parameters
func parseFilter(w http.ResponseWriter, r *http.Request) (models.ActivityFilter, bool) {
	query := r.URL.Query()
	filter := models.ActivityFilter{UserID: validation.SanitizeText(query.Get("userId"))}

	if v := query.Get("activityType"); v != "" {
		t, err := validation.ValidateActivityType(v)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return filter, false
		}
		filter.ActivityType = &t
	}
	if v := query.Get("startDate"); v != "" {
		from, err := validation.ParseDate(v)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "startDate: "+err.Error())
			return filter, false
		}
		filter.From = &from
	}
	if v := query.Get("endDate"); v != "" {
		to, err := validation.ParseEndDate(v)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "endDate: "+err.Error())
			return filter, false
		}
		filter.To = &to
	}
	return filter, true
}
