package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS payment_imports (
					id TEXT PRIMARY KEY,
					email TEXT,
					first_name TEXT,
					last_name TEXT,
					amount REAL NOT NULL,
					payment_date DATETIME NOT NULL,
					is_membership INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'New',
					matched_household_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_payment_imports_status ON payment_imports(status)`,
				`CREATE INDEX idx_payment_imports_date ON payment_imports(payment_date)`,

				`CREATE TABLE IF NOT EXISTS households (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					last_name TEXT,
					email TEXT,
					secondary_email TEXT
				)`,
				`CREATE INDEX idx_households_email ON households(email)`,
				`CREATE INDEX idx_households_last_name ON households(last_name)`,

				`CREATE TABLE IF NOT EXISTS campaigns (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					campaign_type TEXT
				)`,

				`CREATE TABLE IF NOT EXISTS pledges (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL,
					campaign_id TEXT,
					amount REAL NOT NULL,
					amount_paid REAL NOT NULL DEFAULT 0,
					pledge_date DATETIME NOT NULL,
					is_membership INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (household_id) REFERENCES households(id),
					FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
				)`,
				`CREATE INDEX idx_pledges_household ON pledges(household_id)`,

				`CREATE TABLE IF NOT EXISTS payments (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL,
					pledge_id TEXT,
					import_id TEXT,
					amount REAL NOT NULL,
					payment_date DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (household_id) REFERENCES households(id),
					FOREIGN KEY (pledge_id) REFERENCES pledges(id)
				)`,
				`CREATE INDEX idx_payments_household ON payments(household_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add campaign name index for search",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_campaigns_name ON campaigns(name)`)
			return err
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *Store) Migrate(ctx context.Context) error {
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
