package handlers

import (
	"net/http"

	"github.com/benvon/carbon-tracker/internal/services/emissions"
)

// FactorsHandler exposes the emission factor configuration in use
type FactorsHandler struct {
	factors *emissions.FactorSet
}

// NewFactorsHandler creates a new factors handler
func NewFactorsHandler(factors *emissions.FactorSet) *FactorsHandler {
	return &FactorsHandler{factors: factors}
}

// FactorsResponse describes remote identifiers and the local fallback rates
type FactorsResponse struct {
	*emissions.FactorSet
	FallbackKgPerKm map[string]float64 `json:"fallbackKgPerKm"`
	GridKgPerKWh    float64            `json:"gridKgPerKWh"`
	FoodKgPerKg     map[string]float64 `json:"foodKgPerKg"`
}

// ListFactors handles GET /api/v1/factors
func (h *FactorsHandler) ListFactors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, FactorsResponse{
		FactorSet:       h.factors,
		FallbackKgPerKm: emissions.FallbackRates(),
		GridKgPerKWh:    emissions.GridFallbackRate(),
		FoodKgPerKg:     emissions.FoodFactors(),
	})
}
