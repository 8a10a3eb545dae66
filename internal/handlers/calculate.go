package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/benvon/carbon-tracker/internal/services/activity"
	"go.uber.org/zap"
)

// CalculateHandler estimates emissions without storing anything
type CalculateHandler struct {
	svc    *activity.Service
	logger *zap.Logger
}

// NewCalculateHandler creates a new calculate handler
func NewCalculateHandler(svc *activity.Service, logger *zap.Logger) *CalculateHandler {
	return &CalculateHandler{svc: svc, logger: logger}
}

// CalculateResponse is the body of a successful calculation
type CalculateResponse struct {
	Success bool    `json:"success"`
	CO2e    float64 `json:"co2e"`
	Unit    string  `json:"unit"`
}

// Calculate handles POST /api/v1/calculate
func (h *CalculateHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req activity.EmissionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	co2e, err := h.svc.Calculate(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "calculate emissions")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(CalculateResponse{Success: true, CO2e: co2e, Unit: "kg"}); err != nil {
		h.logger.Error("failed_to_encode_calculate_response", zap.Error(err))
	}
}
