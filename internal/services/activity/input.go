package activity

import (
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/benvon/carbon-tracker/internal/validation"
)

// EmissionInput is the emission-relevant part of a request body.
// Numeric fields accept JSON numbers or numeric strings and must not be negative,
// whether or not the activity type uses them.
type EmissionInput struct {
	ActivityType   string         `json:"activityType" validate:"required,activity_type"`
	Distance       *models.Number `json:"distance,omitempty" validate:"omitempty,gte=0"`
	TransportMode  *string        `json:"transportMode,omitempty"`
	FoodType       *string        `json:"foodType,omitempty"`
	Quantity       *models.Number `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Unit           *string        `json:"unit,omitempty"`
	EnergyConsumed *models.Number `json:"energyConsumed,omitempty" validate:"omitempty,gte=0"`
	EnergyUnit     *string        `json:"energyUnit,omitempty"`
}

// Fields converts the input into estimator fields
func (in EmissionInput) Fields() models.EmissionFields {
	t, _ := models.ParseActivityType(in.ActivityType)
	return models.EmissionFields{
		ActivityType:   t,
		Distance:       in.Distance.Float64Ptr(),
		TransportMode:  trimmed(in.TransportMode),
		FoodType:       trimmed(in.FoodType),
		Quantity:       in.Quantity.Float64Ptr(),
		Unit:           trimmed(in.Unit),
		EnergyConsumed: in.EnergyConsumed.Float64Ptr(),
		EnergyUnit:     trimmed(in.EnergyUnit),
	}
}

// CreateInput is the payload for recording a new activity
type CreateInput struct {
	UserID string `json:"userId" validate:"max=255"`
	EmissionInput
	// Date is RFC3339 or YYYY-MM-DD; empty means now
	Date  string `json:"date"`
	Notes string `json:"notes" validate:"max=2000"`
}

// UpdateInput is a partial update; nil fields are left unchanged
type UpdateInput struct {
	ActivityType   *string        `json:"activityType,omitempty" validate:"omitempty,activity_type"`
	Distance       *models.Number `json:"distance,omitempty" validate:"omitempty,gte=0"`
	TransportMode  *string        `json:"transportMode,omitempty"`
	FoodType       *string        `json:"foodType,omitempty"`
	Quantity       *models.Number `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Unit           *string        `json:"unit,omitempty"`
	EnergyConsumed *models.Number `json:"energyConsumed,omitempty" validate:"omitempty,gte=0"`
	EnergyUnit     *string        `json:"energyUnit,omitempty"`
	Date           *string        `json:"date,omitempty"`
	Notes          *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ListQuery selects one page of activities
type ListQuery struct {
	Filter   models.ActivityFilter
	Page     int
	PageSize int
}

// Page is one page of activities plus the total number of matches
type Page struct {
	Activities []*models.Activity `json:"activities"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := validation.SanitizeText(*s)
	return &v
}
