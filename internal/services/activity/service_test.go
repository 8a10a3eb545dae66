package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/benvon/carbon-tracker/internal/database/databasetest"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/benvon/carbon-tracker/internal/services/emissions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEstimator records how often it was asked for an estimate
type countingEstimator struct {
	inner Estimator
	mu    sync.Mutex
	calls int
}

func (c *countingEstimator) Estimate(ctx context.Context, f models.EmissionFields) (float64, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Estimate(ctx, f)
}

func (c *countingEstimator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestService(t *testing.T) (*Service, *databasetest.ActivityStore, *countingEstimator) {
	t.Helper()
	failing := emissions.RemoteFunc(func(context.Context, emissions.RemoteRequest) (float64, error) {
		return 0, errors.New("remote unavailable")
	})
	est := &countingEstimator{inner: emissions.NewEstimator(failing, nil, nil)}
	store := databasetest.NewActivityStore()
	return NewService(store, est, "", nil), store, est
}

func num(v float64) *models.Number {
	n := models.Number(v)
	return &n
}

func str(s string) *string { return &s }

func TestService_CreateCommuteUsesFallback(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)

	a, err := svc.Create(context.Background(), CreateInput{
		EmissionInput: EmissionInput{ActivityType: "commute", Distance: num(50), TransportMode: str("train")},
	})
	require.NoError(t, err)

	assert.InDelta(t, 2.05, a.CO2e, 1e-9)
	assert.Equal(t, 2.05, a.CO2e, "rounded to avoid float noise")
	assert.Equal(t, DefaultUserID, a.UserID)
	assert.False(t, a.Date.IsZero())

	stored, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.05, stored.CO2e)
}

func TestService_CreateDefaults(t *testing.T) {
	t.Parallel()
	failing := emissions.RemoteFunc(func(context.Context, emissions.RemoteRequest) (float64, error) {
		return 0, errors.New("down")
	})
	svc := NewService(databasetest.NewActivityStore(), emissions.NewEstimator(failing, nil, nil), "household", nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	a, err := svc.Create(context.Background(), CreateInput{
		EmissionInput: EmissionInput{ActivityType: "food", FoodType: str("beef"), Quantity: num(1000), Unit: str("g")},
		Notes:         "  dinner\x00 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "household", a.UserID)
	assert.Equal(t, fixed, a.Date)
	assert.Equal(t, "dinner", a.Notes)
	assert.Equal(t, 27.0, a.CO2e)

	a, err = svc.Create(context.Background(), CreateInput{
		UserID:        "alice",
		EmissionInput: EmissionInput{ActivityType: "electricity", EnergyConsumed: num(10)},
		Date:          "2024-02-03",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", a.UserID)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), a.Date)
	assert.InDelta(t, 4.75, a.CO2e, 1e-9)
}

func TestService_CreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input CreateInput
	}{
		{"missing type", CreateInput{}},
		{"unknown type", CreateInput{EmissionInput: EmissionInput{ActivityType: "shopping"}}},
		{"missing distance", CreateInput{EmissionInput: EmissionInput{ActivityType: "commute", TransportMode: str("car")}}},
		{"negative distance", CreateInput{EmissionInput: EmissionInput{ActivityType: "commute", Distance: num(-1), TransportMode: str("car")}}},
		{"missing food type", CreateInput{EmissionInput: EmissionInput{ActivityType: "food", Quantity: num(1)}}},
		{"negative energy", CreateInput{EmissionInput: EmissionInput{ActivityType: "electricity", EnergyConsumed: num(-3)}}},
		{"negative distance on food", CreateInput{EmissionInput: EmissionInput{ActivityType: "food", FoodType: str("beef"), Quantity: num(1), Distance: num(-5)}}},
		{"negative quantity on electricity", CreateInput{EmissionInput: EmissionInput{ActivityType: "electricity", EnergyConsumed: num(3), Quantity: num(-1)}}},
		{"negative energy on commute", CreateInput{EmissionInput: EmissionInput{ActivityType: "commute", Distance: num(4), TransportMode: str("bus"), EnergyConsumed: num(-0.5)}}},
		{"bad date", CreateInput{EmissionInput: EmissionInput{ActivityType: "electricity", EnergyConsumed: num(3)}, Date: "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, store, _ := newTestService(t)

			_, err := svc.Create(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, IsInvalidInput(err), "error %v should be a caller error", err)
			assert.Zero(t, store.Len())
		})
	}
}

func TestService_CreatePropagatesStoreErrors(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	store.FailWith = errors.New("connection refused")

	_, err := svc.Create(context.Background(), CreateInput{
		EmissionInput: EmissionInput{ActivityType: "electricity", EnergyConsumed: num(1)},
	})
	require.Error(t, err)
	assert.False(t, IsInvalidInput(err))
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		update        UpdateInput
		wantRecompute bool
		wantCO2e      float64
	}{
		{"notes only", UpdateInput{Notes: str("bus instead")}, false, 2.05},
		{"same distance", UpdateInput{Distance: num(50)}, false, 2.05},
		{"distance changed", UpdateInput{Distance: num(100)}, true, 4.1},
		{"mode changed", UpdateInput{TransportMode: str("car")}, true, 10.5},
		{"irrelevant field", UpdateInput{EnergyConsumed: num(10)}, false, 2.05},
		{"kind changed", UpdateInput{ActivityType: str("electricity"), EnergyConsumed: num(10)}, true, 4.75},
		{"same kind", UpdateInput{ActivityType: str("commute")}, false, 2.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, _, est := newTestService(t)
			ctx := context.Background()

			a, err := svc.Create(ctx, CreateInput{
				EmissionInput: EmissionInput{ActivityType: "commute", Distance: num(50), TransportMode: str("train")},
			})
			require.NoError(t, err)
			before := est.Calls()

			updated, err := svc.Update(ctx, a.ID, tt.update)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantCO2e, updated.CO2e, 1e-9)
			if tt.wantRecompute {
				assert.Equal(t, before+1, est.Calls())
			} else {
				assert.Equal(t, before, est.Calls())
			}

			got, err := svc.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantCO2e, got.CO2e, 1e-9)
		})
	}
}

func TestService_UpdateKeepsStaleFields(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{
		EmissionInput: EmissionInput{ActivityType: "commute", Distance: num(10), TransportMode: str("car")},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, a.ID, UpdateInput{
		ActivityType: str("food"), FoodType: str("fish"), Quantity: num(2),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityTypeFood, updated.ActivityType)
	assert.InDelta(t, 10.2, updated.CO2e, 1e-9)
	require.NotNil(t, updated.Distance)
	assert.Equal(t, 10.0, *updated.Distance)
}

func TestService_UpdateErrors(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, uuid.New(), UpdateInput{Notes: str("x")})
	assert.ErrorIs(t, err, database.ErrNotFound)

	a, err := svc.Create(ctx, CreateInput{
		EmissionInput: EmissionInput{ActivityType: "food", FoodType: str("fish"), Quantity: num(1)},
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, UpdateInput{ActivityType: str("commute")})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err), "switching to commute without a distance is a caller error")

	_, err = svc.Update(ctx, a.ID, UpdateInput{ActivityType: str("boat")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, a.ID, UpdateInput{Quantity: num(-2)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, a.ID, UpdateInput{EnergyConsumed: num(-99)})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err), "negative quantities are rejected even when the activity type ignores them")

	_, err = svc.Update(ctx, a.ID, UpdateInput{Distance: num(-5), Notes: str("lunch")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.1, got.CO2e, "failed updates leave the stored record untouched")
	assert.Nil(t, got.EnergyConsumed)
	assert.Nil(t, got.Distance)
	assert.Empty(t, got.Notes)
}

func TestService_ListAndDelete(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i, user := range []string{"alice", "alice", "alice", "bob"} {
		_, err := svc.Create(ctx, CreateInput{
			UserID:        user,
			EmissionInput: EmissionInput{ActivityType: "electricity", EnergyConsumed: num(float64(i + 1))},
			Date:          fmt.Sprintf("2024-01-0%d", i+1),
		})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, ListQuery{Filter: models.ActivityFilter{UserID: "alice"}, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Activities, 2)
	assert.Equal(t, 2, page.PageSize)

	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	page, err = svc.List(ctx, ListQuery{Filter: models.ActivityFilter{From: &from, To: &to}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, database.DefaultPageSize, page.PageSize)

	_, err = svc.List(ctx, ListQuery{Filter: models.ActivityFilter{From: &to, To: &from}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	first := page.Activities[0]
	require.NoError(t, svc.Delete(ctx, first.ID))
	_, err = svc.Get(ctx, first.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, first.ID), database.ErrNotFound)
}

func TestService_Calculate(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)

	got, err := svc.Calculate(context.Background(), EmissionInput{ActivityType: "commute", Distance: num(100), TransportMode: str("car")})
	require.NoError(t, err)
	assert.InDelta(t, 21.0, got, 1e-9)
	assert.Zero(t, store.Len(), "calculate never persists")

	_, err = svc.Calculate(context.Background(), EmissionInput{ActivityType: "food", FoodType: str("beef")})
	var fieldErr *emissions.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "quantity", fieldErr.Field)
}
