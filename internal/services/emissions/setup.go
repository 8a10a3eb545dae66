package emissions

import (
	"fmt"

	"github.com/benvon/carbon-tracker/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig builds the production estimator: factor set from the configured
// contract and file, and a Climatiq client carrying the configured credential.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Estimator, error) {
	factors, err := LoadFactorSet(cfg.EmissionFactorsFile, Contract(cfg.ClimatiqContract))
	if err != nil {
		return nil, err
	}
	if cfg.ClimatiqRegion != "" {
		factors.Region = cfg.ClimatiqRegion
	}
	if cfg.ClimatiqDataVersion != "" {
		factors.DataVersion = cfg.ClimatiqDataVersion
	}

	client, err := NewClimatiqClient(ClimatiqConfig{
		APIKey:  cfg.ClimatiqAPIKey,
		BaseURL: cfg.ClimatiqBaseURL,
		Timeout: cfg.EstimatorTimeout,
		Factors: factors,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create remote estimator: %w", err)
	}

	if logger != nil && cfg.ClimatiqAPIKey == "" {
		logger.Warn("remote_estimator_disabled", zap.String("reason", "CLIMATIQ_API_KEY not set; using fallback formulas"))
	}
	return NewEstimator(client, factors, logger), nil
}
