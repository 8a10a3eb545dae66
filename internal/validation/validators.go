package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/go-playground/validator/v10"
)

// MaxNotesLength bounds the free-text notes stored with an activity
const MaxNotesLength = 2000

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("activity_type", validateActivityType); err != nil {
		panic(fmt.Sprintf("failed to register activity_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("period", validatePeriod); err != nil {
		panic(fmt.Sprintf("failed to register period validator: %v", err))
	}
}

func validateActivityType(fl validator.FieldLevel) bool {
	_, ok := models.ParseActivityType(fl.Field().String())
	return ok
}

func validatePeriod(fl validator.FieldLevel) bool {
	switch models.Period(fl.Field().String()) {
	case models.PeriodDay, models.PeriodWeek:
		return true
	default:
		return false
	}
}

// Struct validates s and flattens validator errors into a single readable error
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "activity_type":
		return fmt.Sprintf("invalid %s: %v (must be 'commute', 'food', or 'electricity')", field, fe.Value())
	case "period":
		return fmt.Sprintf("invalid %s: %v (must be 'day' or 'week')", field, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateActivityType validates an activity type string value
func ValidateActivityType(value string) (models.ActivityType, error) {
	t, ok := models.ParseActivityType(value)
	if !ok {
		return "", fmt.Errorf("invalid activityType: %s (must be 'commute', 'food', or 'electricity')", value)
	}
	return t, nil
}

// ValidatePeriod validates a timeline period, defaulting to day when empty
func ValidatePeriod(value string) (models.Period, error) {
	p := models.Period(strings.ToLower(strings.TrimSpace(value)))
	switch p {
	case "":
		return models.PeriodDay, nil
	case models.PeriodDay, models.PeriodWeek:
		return p, nil
	default:
		return "", fmt.Errorf("invalid period: %s (must be 'day' or 'week')", value)
	}
}

// ParseDate accepts RFC3339 timestamps or YYYY-MM-DD dates (interpreted as UTC midnight)
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use RFC3339 or YYYY-MM-DD)", value)
}

// ParseEndDate is ParseDate, except a bare YYYY-MM-DD covers the whole day
func ParseEndDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t.Add(24*time.Hour - time.Nanosecond), nil
	}
	return ParseDate(value)
}
