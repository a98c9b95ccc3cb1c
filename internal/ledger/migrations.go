package ledger

import (
	"fmt"

	"go.uber.org/zap"
)

// migration is one versioned schema step. Statements are embedded rather
// than loaded from files so the binary carries its own schema.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql: `
		CREATE TABLE IF NOT EXISTS bank_transactions (
			id TEXT PRIMARY KEY,
			amount REAL NOT NULL,
			currency TEXT NOT NULL,
			date DATETIME NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reconciled_invoice_id TEXT
		);

		CREATE TABLE IF NOT EXISTS open_invoices (
			id TEXT PRIMARY KEY,
			amount REAL NOT NULL,
			currency TEXT NOT NULL,
			issue_date DATETIME,
			due_date DATETIME NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			party_name TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS reconciliation_links (
			transaction_id TEXT PRIMARY KEY REFERENCES bank_transactions(id),
			invoice_id TEXT NOT NULL UNIQUE REFERENCES open_invoices(id),
			score REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_date ON bank_transactions(date);
		CREATE INDEX IF NOT EXISTS idx_invoices_due ON open_invoices(due_date);`,
	},
	{
		version: 2,
		name:    "extraction_review_queue",
		sql: `
		CREATE TABLE IF NOT EXISTS extractions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			confidence REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending_review',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			reviewed_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_extractions_status ON extractions(status);`,
	},
}

// migrate applies pending migrations in version order.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.appliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		s.logger.Info("Applying migration",
			zap.Int("version", m.version),
			zap.String("name", m.name))

		if err := s.applyMigration(m); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *Store) appliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) applyMigration(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(m.sql); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.version, m.name,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
