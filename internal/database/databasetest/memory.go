// Package databasetest provides in-memory stores for tests that do not need PostgreSQL.
package databasetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/google/uuid"
)

// ActivityStore is an in-memory database.ActivityStore with the same ordering and
// not-found semantics as the PostgreSQL repository.
type ActivityStore struct {
	mu         sync.Mutex
	activities map[uuid.UUID]models.Activity

	// FailWith, when set, is returned by every call
	FailWith error
}

var _ database.ActivityStore = (*ActivityStore)(nil)

// NewActivityStore creates an empty store
func NewActivityStore() *ActivityStore {
	return &ActivityStore{activities: map[uuid.UUID]models.Activity{}}
}

// Len returns the number of stored activities
func (s *ActivityStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activities)
}

func (s *ActivityStore) Create(_ context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if err := checkQuantities(a); err != nil {
		return err
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.activities[a.ID] = *a
	return nil
}

func (s *ActivityStore) GetByID(_ context.Context, id uuid.UUID) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	a, ok := s.activities[id]
	if !ok {
		return nil, fmt.Errorf("activity %s: %w", id, database.ErrNotFound)
	}
	return &a, nil
}

func (s *ActivityStore) List(_ context.Context, filter models.ActivityFilter, page, pageSize int) ([]*models.Activity, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	all := s.matching(filter)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })

	limit, offset := database.PageBounds(page, pageSize)
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	return all[start:end], len(all), nil
}

func (s *ActivityStore) ListAll(_ context.Context, filter models.ActivityFilter) ([]*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	all := s.matching(filter)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	return all, nil
}

func (s *ActivityStore) Summarize(_ context.Context, filter models.ActivityFilter) ([]models.TypeBreakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	byType := map[models.ActivityType]*models.TypeBreakdown{}
	for _, a := range s.matching(filter) {
		b, ok := byType[a.ActivityType]
		if !ok {
			b = &models.TypeBreakdown{ActivityType: a.ActivityType}
			byType[a.ActivityType] = b
		}
		b.TotalCO2e += a.CO2e
		b.ActivityCount++
	}
	out := make([]models.TypeBreakdown, 0, len(byType))
	for _, b := range byType {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityType < out[j].ActivityType })
	return out, nil
}

func (s *ActivityStore) Update(_ context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.activities[a.ID]; !ok {
		return fmt.Errorf("activity %s: %w", a.ID, database.ErrNotFound)
	}
	if err := checkQuantities(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	s.activities[a.ID] = *a
	return nil
}

func (s *ActivityStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.activities[id]; !ok {
		return fmt.Errorf("activity %s: %w", id, database.ErrNotFound)
	}
	delete(s.activities, id)
	return nil
}

func (s *ActivityStore) matching(filter models.ActivityFilter) []*models.Activity {
	var out []*models.Activity
	for _, a := range s.activities {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.ActivityType != nil && a.ActivityType != *filter.ActivityType {
			continue
		}
		if filter.From != nil && a.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.Date.After(*filter.To) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	return out
}

// SettingsStore is an in-memory database.SettingsStore
type SettingsStore struct {
	mu     sync.Mutex
	values map[string]models.Setting
}

var _ database.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates an empty settings store
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{values: map[string]models.Setting{}}
}

func (s *SettingsStore) Get(_ context.Context, key string) (*models.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *SettingsStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	created := now
	if prev, ok := s.values[key]; ok {
		created = prev.CreatedAt
	}
	s.values[key] = models.Setting{Key: key, Value: value, CreatedAt: created, UpdatedAt: now}
	return nil
}

// checkQuantities mirrors the activities_quantities_non_negative table constraint
func checkQuantities(a *models.Activity) error {
	for _, v := range []*float64{a.Distance, a.Quantity, a.EnergyConsumed} {
		if v != nil && *v < 0 {
			return fmt.Errorf("activity %s: value %v violates activities_quantities_non_negative", a.ID, *v)
		}
	}
	return nil
}
