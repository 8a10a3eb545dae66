package handlers

import (
	"net/http"

	"github.com/benvon/carbon-tracker/internal/services/reports"
	"github.com/benvon/carbon-tracker/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ReportHandler serves aggregated emission reports
type ReportHandler struct {
	svc    *reports.Service
	logger *zap.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *reports.Service, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers report routes on a router already prefixed with /reports
func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/summary", h.Summary).Methods("GET")
	r.HandleFunc("/timeline", h.Timeline).Methods("GET")
}

// Summary totals stored emissions for the filtered activities
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "build summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// TimelineResponse holds per-period emission totals
type TimelineResponse struct {
	Period  string `json:"period"`
	Buckets any    `json:"buckets"`
}

// Timeline groups stored emissions by day or week (?period=day|week)
func (h *ReportHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	period, err := validation.ValidatePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	buckets, err := h.svc.Timeline(r.Context(), filter, period)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "build timeline")
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{Period: string(period), Buckets: buckets})
}
