// Package activity records personal activities and keeps their derived emissions current.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/benvon/carbon-tracker/internal/services/emissions"
	"github.com/benvon/carbon-tracker/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultUserID owns activities submitted without a user id
const DefaultUserID = "default-user"

// ErrInvalidInput wraps request validation failures
var ErrInvalidInput = errors.New("invalid input")

// Estimator computes kg CO2e for emission fields
type Estimator interface {
	Estimate(ctx context.Context, fields models.EmissionFields) (float64, error)
}

// IsInvalidInput reports whether err should be answered as a caller error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || emissions.IsValidationError(err)
}

// Service orchestrates activity workflows
type Service struct {
	store         database.ActivityStore
	estimator     Estimator
	defaultUserID string
	logger        *zap.Logger
	now           func() time.Time
}

// NewService constructs a Service. An empty defaultUserID falls back to DefaultUserID.
func NewService(store database.ActivityStore, estimator Estimator, defaultUserID string, logger *zap.Logger) *Service {
	if defaultUserID == "" {
		defaultUserID = DefaultUserID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:         store,
		estimator:     estimator,
		defaultUserID: defaultUserID,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// DefaultUser returns the owner assigned to activities without a user id
func (s *Service) DefaultUser() string {
	return s.defaultUserID
}

// Calculate estimates emissions without persisting anything
func (s *Service) Calculate(ctx context.Context, in EmissionInput) (float64, error) {
	if err := validation.Struct(in); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.estimator.Estimate(ctx, in.Fields())
}

// Create validates, estimates and persists a new activity
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Activity, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	date := s.now()
	if in.Date != "" {
		d, err := validation.ParseDate(in.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		date = d.UTC()
	}

	fields := in.Fields()
	co2e, err := s.estimator.Estimate(ctx, fields)
	if err != nil {
		return nil, err
	}

	userID := validation.SanitizeText(in.UserID)
	if userID == "" {
		userID = s.defaultUserID
	}

	a := &models.Activity{
		ID:             uuid.New(),
		UserID:         userID,
		EmissionFields: fields,
		CO2e:           co2e,
		Date:           date,
		Notes:          validation.SanitizeText(in.Notes),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("activity_created",
		zap.String("activity_id", a.ID.String()),
		zap.String("activity_type", string(a.ActivityType)),
		zap.Float64("co2e", a.CO2e),
	)
	return a, nil
}

// Get fetches an activity by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	return s.store.GetByID(ctx, id)
}

// List returns one page of activities matching q
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = database.DefaultPageSize
	}
	if q.PageSize > database.MaxPageSize {
		q.PageSize = database.MaxPageSize
	}
	if err := checkRange(q.Filter); err != nil {
		return nil, err
	}

	activities, total, err := s.store.List(ctx, q.Filter, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	return &Page{Activities: activities, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// Update applies a partial update. co2e is recomputed when the activity type
// changes or a field relevant to the resulting type changes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Activity, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Date != nil {
		d, err := validation.ParseDate(*in.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		a.Date = d.UTC()
	}
	if in.Notes != nil {
		a.Notes = validation.SanitizeText(*in.Notes)
	}

	if recompute := applyEmissionUpdate(&a.EmissionFields, in); recompute {
		co2e, err := s.estimator.Estimate(ctx, a.EmissionFields)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("activity_co2e_recomputed",
			zap.String("activity_id", a.ID.String()),
			zap.Float64("previous_co2e", a.CO2e),
			zap.Float64("co2e", co2e),
		)
		a.CO2e = co2e
	}

	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an activity
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("activity_deleted", zap.String("activity_id", id.String()))
	return nil
}

// applyEmissionUpdate copies the set fields of in onto f and reports whether co2e is now stale
func applyEmissionUpdate(f *models.EmissionFields, in UpdateInput) bool {
	changed := map[string]bool{}

	if in.ActivityType != nil {
		t, _ := models.ParseActivityType(*in.ActivityType)
		if t != f.ActivityType {
			f.ActivityType = t
			changed["activityType"] = true
		}
	}
	setFloat := func(name string, dst **float64, v *models.Number) {
		if v == nil {
			return
		}
		if *dst == nil || **dst != float64(*v) {
			changed[name] = true
		}
		*dst = v.Float64Ptr()
	}
	setString := func(name string, dst **string, v *string) {
		if v == nil {
			return
		}
		nv := trimmed(v)
		if *dst == nil || **dst != *nv {
			changed[name] = true
		}
		*dst = nv
	}

	setFloat("distance", &f.Distance, in.Distance)
	setString("transportMode", &f.TransportMode, in.TransportMode)
	setString("foodType", &f.FoodType, in.FoodType)
	setFloat("quantity", &f.Quantity, in.Quantity)
	setString("unit", &f.Unit, in.Unit)
	setFloat("energyConsumed", &f.EnergyConsumed, in.EnergyConsumed)
	setString("energyUnit", &f.EnergyUnit, in.EnergyUnit)

	if changed["activityType"] {
		return true
	}
	for _, name := range relevantFields[f.ActivityType] {
		if changed[name] {
			return true
		}
	}
	return false
}

var relevantFields = map[models.ActivityType][]string{
	models.ActivityTypeCommute:     {"distance", "transportMode"},
	models.ActivityTypeFood:        {"foodType", "quantity", "unit"},
	models.ActivityTypeElectricity: {"energyConsumed", "energyUnit"},
}

func checkRange(f models.ActivityFilter) error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return fmt.Errorf("%w: startDate must not be after endDate", ErrInvalidInput)
	}
	return nil
}
