package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies which emission-relevant fields of an activity are in use
type ActivityType string

const (
	ActivityTypeCommute     ActivityType = "commute"
	ActivityTypeFood        ActivityType = "food"
	ActivityTypeElectricity ActivityType = "electricity"
)

// ActivityTypes lists every supported activity type
var ActivityTypes = []ActivityType{ActivityTypeCommute, ActivityTypeFood, ActivityTypeElectricity}

// ParseActivityType normalizes s and reports whether it names a supported type
func ParseActivityType(s string) (ActivityType, bool) {
	t := ActivityType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ActivityTypeCommute, ActivityTypeFood, ActivityTypeElectricity:
		return t, true
	default:
		return t, false
	}
}

// EmissionFields holds the kind-specific quantities an emissions estimate is computed from.
// Only the fields belonging to ActivityType are relevant; the others may be stale.
type EmissionFields struct {
	ActivityType   ActivityType `json:"activityType"`
	Distance       *float64     `json:"distance,omitempty"`
	TransportMode  *string      `json:"transportMode,omitempty"`
	FoodType       *string      `json:"foodType,omitempty"`
	Quantity       *float64     `json:"quantity,omitempty"`
	Unit           *string      `json:"unit,omitempty"`
	EnergyConsumed *float64     `json:"energyConsumed,omitempty"`
	EnergyUnit     *string      `json:"energyUnit,omitempty"`
}

// Activity is a recorded personal activity and its derived emissions
type Activity struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"userId"`
	EmissionFields
	CO2e      float64   `json:"co2e"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActivityFilter narrows activity queries. Zero values mean "no constraint".
type ActivityFilter struct {
	UserID       string
	ActivityType *ActivityType
	From         *time.Time
	To           *time.Time
}
