package emissions

import "context"

// Quantity kinds understood by the remote estimation service
const (
	QuantityDistance = "distance"
	QuantityEnergy   = "energy"
)

// RemoteRequest asks the remote service to estimate CO2e for a quantity of activity
type RemoteRequest struct {
	FactorID string
	Kind     string // QuantityDistance or QuantityEnergy
	Quantity float64
	Unit     string
}

// RemoteEstimator is the opaque remote estimation capability.
// Any returned error makes the estimator fall back to its static formula.
type RemoteEstimator interface {
	Estimate(ctx context.Context, req RemoteRequest) (float64, error)
}

// RemoteFunc adapts a function to RemoteEstimator
type RemoteFunc func(ctx context.Context, req RemoteRequest) (float64, error)

// Estimate implements RemoteEstimator
func (f RemoteFunc) Estimate(ctx context.Context, req RemoteRequest) (float64, error) {
	return f(ctx, req)
}
