package database

import (
	"context"
	"fmt"
)

// schema is applied in order; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS activities (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		activity_type TEXT NOT NULL CHECK (activity_type IN ('commute', 'food', 'electricity')),
		distance DOUBLE PRECISION,
		transport_mode TEXT,
		food_type TEXT,
		quantity DOUBLE PRECISION,
		unit TEXT,
		energy_consumed DOUBLE PRECISION,
		energy_unit TEXT,
		co2e DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (co2e >= 0),
		date TIMESTAMPTZ NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT activities_quantities_non_negative
			CHECK (distance >= 0 AND quantity >= 0 AND energy_consumed >= 0)
	)`,
	// tables created before the quantity constraint existed
	`DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM pg_constraint WHERE conname = 'activities_quantities_non_negative'
		) THEN
			ALTER TABLE activities ADD CONSTRAINT activities_quantities_non_negative
				CHECK (distance >= 0 AND quantity >= 0 AND energy_consumed >= 0);
		END IF;
	END
	$$`,
	`CREATE INDEX IF NOT EXISTS idx_activities_user_date ON activities (user_id, date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_type ON activities (activity_type)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the tables and indexes the service needs
func (db *DB) Migrate(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
