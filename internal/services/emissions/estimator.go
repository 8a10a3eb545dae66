package emissions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	logpkg "github.com/benvon/carbon-tracker/internal/logger"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/benvon/carbon-tracker/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/benvon/carbon-tracker/internal/services/emissions"

// Default units applied when a request omits them
const (
	DefaultFoodUnit   = "kg"
	DefaultEnergyUnit = "kwh"
)

// Estimator turns activity quantities into kilograms of CO2e.
// It is stateless and safe for concurrent use.
type Estimator struct {
	remote  RemoteEstimator
	factors *FactorSet
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewEstimator creates an estimator. A nil remote makes every remote-backed estimate use its fallback formula.
func NewEstimator(remote RemoteEstimator, factors *FactorSet, logger *zap.Logger) *Estimator {
	if remote == nil {
		remote = RemoteFunc(func(context.Context, RemoteRequest) (float64, error) {
			return 0, ErrRemoteNotConfigured
		})
	}
	if factors == nil {
		factors, _ = DefaultFactorSet(ContractDataV1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{
		remote:  remote,
		factors: factors,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Factors returns the factor set the estimator resolves identifiers from
func (e *Estimator) Factors() *FactorSet {
	return e.factors
}

// Estimate dispatches to the estimate matching fields.ActivityType
func (e *Estimator) Estimate(ctx context.Context, fields models.EmissionFields) (float64, error) {
	switch fields.ActivityType {
	case models.ActivityTypeCommute:
		if fields.Distance == nil {
			return 0, &FieldError{Field: "distance", Err: ErrMissingField}
		}
		if fields.TransportMode == nil || strings.TrimSpace(*fields.TransportMode) == "" {
			return 0, &FieldError{Field: "transportMode", Err: ErrMissingField}
		}
		return e.EstimateCommute(ctx, *fields.Distance, *fields.TransportMode)

	case models.ActivityTypeFood:
		if fields.FoodType == nil || strings.TrimSpace(*fields.FoodType) == "" {
			return 0, &FieldError{Field: "foodType", Err: ErrMissingField}
		}
		if fields.Quantity == nil {
			return 0, &FieldError{Field: "quantity", Err: ErrMissingField}
		}
		return e.EstimateFood(*fields.FoodType, *fields.Quantity, stringOr(fields.Unit, DefaultFoodUnit))

	case models.ActivityTypeElectricity:
		if fields.EnergyConsumed == nil {
			return 0, &FieldError{Field: "energyConsumed", Err: ErrMissingField}
		}
		return e.EstimateElectricity(ctx, *fields.EnergyConsumed, stringOr(fields.EnergyUnit, DefaultEnergyUnit))

	default:
		return 0, &FieldError{Field: "activityType", Err: fmt.Errorf("%w: %q", ErrUnknownActivityType, fields.ActivityType)}
	}
}

// EstimateCommute estimates a journey of distanceKm using mode.
// Unrecognized modes are treated as car; bicycle and walking are always zero.
func (e *Estimator) EstimateCommute(ctx context.Context, distanceKm float64, mode string) (float64, error) {
	if err := checkQuantity("distance", distanceKm); err != nil {
		return 0, err
	}

	factorID, resolved := e.factors.CommuteFactor(mode)
	if resolved == ModeBicycle || resolved == ModeWalking || distanceKm == 0 {
		observability.RecordEstimate(string(models.ActivityTypeCommute), observability.SourceLocal)
		return 0, nil
	}

	co2e := e.remoteOrFallback(ctx, models.ActivityTypeCommute, RemoteRequest{
		FactorID: factorID,
		Kind:     QuantityDistance,
		Quantity: distanceKm,
		Unit:     "km",
	}, func() float64 {
		return distanceKm * FallbackRate(resolved)
	})
	return co2e, nil
}

// EstimateFood estimates quantity of foodType expressed in unit. It never calls the remote service.
func (e *Estimator) EstimateFood(foodType string, quantity float64, unit string) (float64, error) {
	if err := checkQuantity("quantity", quantity); err != nil {
		return 0, err
	}

	factor, known := FoodFactor(foodType)
	if !known {
		e.logger.Debug("unknown_food_type_using_default_factor",
			zap.String("food_type", logpkg.SanitizeString(foodType, 100)),
			zap.Float64("factor", factor),
		)
	}

	observability.RecordEstimate(string(models.ActivityTypeFood), observability.SourceLocal)
	return roundCO2e(ToKilograms(quantity, unit) * factor), nil
}

// EstimateElectricity estimates energy consumed, expressed in unit (kwh or mwh)
func (e *Estimator) EstimateElectricity(ctx context.Context, energy float64, unit string) (float64, error) {
	if err := checkQuantity("energyConsumed", energy); err != nil {
		return 0, err
	}

	kwh := ToKWh(energy, unit)
	if kwh == 0 {
		observability.RecordEstimate(string(models.ActivityTypeElectricity), observability.SourceLocal)
		return 0, nil
	}

	co2e := e.remoteOrFallback(ctx, models.ActivityTypeElectricity, RemoteRequest{
		FactorID: e.factors.Electricity,
		Kind:     QuantityEnergy,
		Quantity: kwh,
		Unit:     "kWh",
	}, func() float64 {
		return kwh * gridKgPerKWh
	})
	return co2e, nil
}

// remoteOrFallback makes exactly one remote attempt and uses fallback on any failure
func (e *Estimator) remoteOrFallback(ctx context.Context, activityType models.ActivityType, req RemoteRequest, fallback func() float64) float64 {
	ctx, span := e.tracer.Start(ctx, "emissions.estimate", trace.WithAttributes(
		attribute.String("emissions.activity_type", string(activityType)),
		attribute.String("emissions.factor_id", req.FactorID),
		attribute.Float64("emissions.quantity", req.Quantity),
		attribute.String("emissions.unit", req.Unit),
	))
	defer span.End()

	start := time.Now()
	co2e, err := e.remote.Estimate(ctx, req)
	if err == nil && (math.IsNaN(co2e) || math.IsInf(co2e, 0) || co2e < 0) {
		err = fmt.Errorf("%w: remote returned co2e %v", ErrMalformedResponse, co2e)
	}
	if !errors.Is(err, ErrRemoteNotConfigured) {
		observability.ObserveRemoteEstimate(string(activityType), time.Since(start), err)
	}

	if err == nil {
		span.SetAttributes(attribute.String("emissions.source", observability.SourceRemote))
		observability.RecordEstimate(string(activityType), observability.SourceRemote)
		return roundCO2e(co2e)
	}

	span.RecordError(err)
	span.SetAttributes(attribute.String("emissions.source", observability.SourceFallback))
	observability.RecordEstimate(string(activityType), observability.SourceFallback)

	if errors.Is(err, ErrRemoteNotConfigured) {
		e.logger.Debug("remote_estimator_not_configured_using_fallback",
			zap.String("activity_type", string(activityType)),
		)
	} else {
		e.logger.Warn("remote_estimate_failed_using_fallback",
			zap.String("activity_type", string(activityType)),
			zap.String("factor_id", req.FactorID),
			zap.String("error", logpkg.SanitizeError(err)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	return roundCO2e(fallback())
}

// ToKilograms converts quantity in unit to kilograms. Unrecognized units are taken as kilograms.
func ToKilograms(quantity float64, unit string) float64 {
	switch normalize(unit) {
	case "g", "gram", "grams":
		return quantity / 1000
	case "lb", "lbs", "pound", "pounds":
		return quantity * poundsToKg
	default:
		return quantity
	}
}

// ToKWh converts energy in unit to kilowatt-hours. Anything but mwh is taken as kWh.
func ToKWh(energy float64, unit string) float64 {
	if normalize(unit) == "mwh" {
		return energy * 1000
	}
	return energy
}

func checkQuantity(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &FieldError{Field: field, Err: fmt.Errorf("%w: must be a finite number", ErrInvalidQuantity)}
	}
	if v < 0 {
		return &FieldError{Field: field, Err: fmt.Errorf("%w: must not be negative", ErrInvalidQuantity)}
	}
	return nil
}

// roundCO2e trims floating point noise from table products (50 × 0.041 reports as 2.05)
func roundCO2e(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func stringOr(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return *s
}
