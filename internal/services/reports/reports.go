// Package reports aggregates stored activity emissions.
package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/samber/lo"
)

// Store is the read side of activity persistence used for reports
type Store interface {
	ListAll(ctx context.Context, filter models.ActivityFilter) ([]*models.Activity, error)
	Summarize(ctx context.Context, filter models.ActivityFilter) ([]models.TypeBreakdown, error)
}

// Service builds emission reports over stored activities
type Service struct {
	store Store
}

// NewService creates a reports service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Summary totals co2e over the activities matching filter, broken down by type
func (s *Service) Summary(ctx context.Context, filter models.ActivityFilter) (*models.EmissionsSummary, error) {
	breakdown, err := s.store.Summarize(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize emissions: %w", err)
	}

	summary := &models.EmissionsSummary{
		ByType: []models.TypeBreakdown{},
		Unit:   "kg",
	}
	for _, b := range breakdown {
		b.TotalCO2e = round(b.TotalCO2e)
		summary.TotalCO2e += b.TotalCO2e
		summary.ActivityCount += b.ActivityCount
		summary.ByType = append(summary.ByType, b)
	}
	summary.TotalCO2e = round(summary.TotalCO2e)
	return summary, nil
}

// Timeline groups the activities matching filter by period and sums co2e per group, oldest first
func (s *Service) Timeline(ctx context.Context, filter models.ActivityFilter, period models.Period) ([]models.TimelineBucket, error) {
	keyFn, err := periodKey(period)
	if err != nil {
		return nil, err
	}

	activities, err := s.store.ListAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	return Bucket(activities, keyFn), nil
}

// Bucket groups activities by key and sums their co2e, ordered by ascending key
func Bucket(activities []*models.Activity, key func(time.Time) string) []models.TimelineBucket {
	groups := lo.GroupBy(activities, func(a *models.Activity) string {
		return key(a.Date)
	})

	buckets := lo.MapToSlice(groups, func(k string, items []*models.Activity) models.TimelineBucket {
		return models.TimelineBucket{
			Key:           k,
			TotalCO2e:     round(lo.SumBy(items, func(a *models.Activity) float64 { return a.CO2e })),
			ActivityCount: len(items),
		}
	})
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets
}

// DayKey formats t as its UTC calendar date
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// WeekKey returns the UTC date of the Sunday that starts t's week
func WeekKey(t time.Time) string {
	t = t.UTC()
	sunday := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -int(t.Weekday()))
	return sunday.Format(time.DateOnly)
}

func periodKey(p models.Period) (func(time.Time) string, error) {
	switch p {
	case models.PeriodDay, "":
		return DayKey, nil
	case models.PeriodWeek:
		return WeekKey, nil
	default:
		return nil, fmt.Errorf("unsupported period %q", p)
	}
}

func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
