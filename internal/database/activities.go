package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/google/uuid"
)

const activityColumns = `id, user_id, activity_type, distance, transport_mode, food_type, quantity, unit,
	energy_consumed, energy_unit, co2e, date, notes, created_at, updated_at`

// ActivityRepository handles activity database operations
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts a new activity and fills in its server timestamps
func (r *ActivityRepository) Create(ctx context.Context, a *models.Activity) error {
	query := `
		INSERT INTO activities (id, user_id, activity_type, distance, transport_mode, food_type, quantity, unit,
			energy_consumed, energy_unit, co2e, date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		a.ID,
		a.UserID,
		string(a.ActivityType),
		nullFloat(a.Distance),
		nullString(a.TransportMode),
		nullString(a.FoodType),
		nullFloat(a.Quantity),
		nullString(a.Unit),
		nullFloat(a.EnergyConsumed),
		nullString(a.EnergyUnit),
		a.CO2e,
		a.Date,
		a.Notes,
		now,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// GetByID retrieves an activity by id
func (r *ActivityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`

	a, err := scanActivity(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// List returns one page of activities matching filter, newest first, plus the total match count
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter, page, pageSize int) ([]*models.Activity, int, error) {
	where, args := buildActivityFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	limit, offset := PageBounds(page, pageSize)
	query := fmt.Sprintf(`SELECT %s FROM activities%s ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		activityColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	activities, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

// ListAll returns every activity matching filter in ascending date order
func (r *ActivityRepository) ListAll(ctx context.Context, filter models.ActivityFilter) ([]*models.Activity, error) {
	where, args := buildActivityFilter(filter)
	query := `SELECT ` + activityColumns + ` FROM activities` + where + ` ORDER BY date ASC`
	return r.query(ctx, query, args...)
}

// Summarize aggregates co2e and counts per activity type for activities matching filter
func (r *ActivityRepository) Summarize(ctx context.Context, filter models.ActivityFilter) ([]models.TypeBreakdown, error) {
	where, args := buildActivityFilter(filter)
	query := `SELECT activity_type, COALESCE(SUM(co2e), 0), COUNT(*) FROM activities` + where +
		` GROUP BY activity_type ORDER BY activity_type`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize activities: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.TypeBreakdown
	for rows.Next() {
		var b models.TypeBreakdown
		var activityType string
		if err := rows.Scan(&activityType, &b.TotalCO2e, &b.ActivityCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		b.ActivityType = models.ActivityType(activityType)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}
	return out, nil
}

// Update persists every mutable field of a and refreshes UpdatedAt
func (r *ActivityRepository) Update(ctx context.Context, a *models.Activity) error {
	query := `
		UPDATE activities
		SET activity_type = $2, distance = $3, transport_mode = $4, food_type = $5, quantity = $6, unit = $7,
			energy_consumed = $8, energy_unit = $9, co2e = $10, date = $11, notes = $12, updated_at = $13
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		a.ID,
		string(a.ActivityType),
		nullFloat(a.Distance),
		nullString(a.TransportMode),
		nullString(a.FoodType),
		nullFloat(a.Quantity),
		nullString(a.Unit),
		nullFloat(a.EnergyConsumed),
		nullString(a.EnergyUnit),
		a.CO2e,
		a.Date,
		a.Notes,
		time.Now().UTC(),
	).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("activity %s: %w", a.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	return nil
}

// Delete removes an activity by id
func (r *ActivityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *ActivityRepository) query(ctx context.Context, query string, args ...any) ([]*models.Activity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	activities := []*models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}
	return activities, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	a := &models.Activity{}
	var (
		activityType                     string
		distance, quantity, energy       sql.NullFloat64
		mode, foodType, unit, energyUnit sql.NullString
	)

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&activityType,
		&distance,
		&mode,
		&foodType,
		&quantity,
		&unit,
		&energy,
		&energyUnit,
		&a.CO2e,
		&a.Date,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ActivityType = models.ActivityType(activityType)
	a.Distance = floatPtr(distance)
	a.Quantity = floatPtr(quantity)
	a.EnergyConsumed = floatPtr(energy)
	a.TransportMode = stringPtr(mode)
	a.FoodType = stringPtr(foodType)
	a.Unit = stringPtr(unit)
	a.EnergyUnit = stringPtr(energyUnit)
	return a, nil
}

// buildActivityFilter renders filter as a WHERE clause with positional arguments
func buildActivityFilter(filter models.ActivityFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.ActivityType != nil {
		add("activity_type = $%d", string(*filter.ActivityType))
	}
	if filter.From != nil {
		add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date <= $%d", *filter.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

const (
	// DefaultPageSize is used when a caller does not request a page size
	DefaultPageSize = 20
	// MaxPageSize caps a single page
	MaxPageSize = 100
)

// PageBounds converts a 1-based page and page size into LIMIT and OFFSET values.
// Pages past the addressable range map to the largest offset, which yields an empty page.
func PageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page-1 > math.MaxInt/pageSize {
		return pageSize, math.MaxInt
	}
	return pageSize, (page - 1) * pageSize
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
