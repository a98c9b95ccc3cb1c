// Package ledger is the SQLite persistence for reconciliation runs: the
// bank feed, open invoices, committed links and the extraction review
// queue. It owns the records; the matching core only reads snapshots and
// emits commit instructions.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/config"
	"github.com/hypervisual/fincore/internal/models"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens the database, configures the pool and applies pending
// migrations.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	// WAL mode for concurrent readers during a reconciliation run.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	logger.Info("Ledger database ready", zap.String("path", cfg.Path))
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.logger.Info("Closing ledger database")
	return s.db.Close()
}

// withTransaction executes fn within a transaction.
func (s *Store) withTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ImportTransactions inserts bank-feed entries, ignoring rows already
// present. Returns the number of new rows.
func (s *Store) ImportTransactions(ctx context.Context, txs []models.BankTransaction) (int, error) {
	inserted := 0
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO bank_transactions
				(id, amount, currency, date, description)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range txs {
			res, err := stmt.ExecContext(ctx, t.ID, t.Amount, t.Currency, t.Date, t.Description)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}

// ImportInvoices inserts open invoices, ignoring rows already present.
func (s *Store) ImportInvoices(ctx context.Context, invoices []models.OpenInvoice) (int, error) {
	inserted := 0
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO open_invoices
				(id, amount, currency, issue_date, due_date, reference, party_name)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, inv := range invoices {
			res, err := stmt.ExecContext(ctx, inv.ID, inv.Amount, inv.Currency,
				inv.IssueDate, inv.DueDate, inv.Reference, inv.PartyName)
			if err != nil {
				return fmt.Errorf("failed to insert invoice %s: %w", inv.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}

// Transactions returns the full bank feed, reconciled or not. The matcher
// itself skips rows that already carry a link.
func (s *Store) Transactions(ctx context.Context) ([]models.BankTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, currency, date, description, reconciled_invoice_id
		FROM bank_transactions ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.BankTransaction
	for rows.Next() {
		var t models.BankTransaction
		var linked sql.NullString
		if err := rows.Scan(&t.ID, &t.Amount, &t.Currency, &t.Date, &t.Description, &linked); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if linked.Valid {
			v := linked.String
			t.ReconciledInvoiceID = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// OpenInvoices returns invoices that no committed link settles yet.
func (s *Store) OpenInvoices(ctx context.Context) ([]models.OpenInvoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, currency, issue_date, due_date, reference, party_name
		FROM open_invoices i
		WHERE NOT EXISTS (
			SELECT 1 FROM reconciliation_links l WHERE l.invoice_id = i.id
		)
		ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open invoices: %w", err)
	}
	defer rows.Close()

	var out []models.OpenInvoice
	for rows.Next() {
		var inv models.OpenInvoice
		if err := rows.Scan(&inv.ID, &inv.Amount, &inv.Currency,
			&inv.IssueDate, &inv.DueDate, &inv.Reference, &inv.PartyName); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ApplyCommits links transactions to invoices in one batch. A transaction
// that already carries a link is left untouched, so replaying the same
// instructions is harmless. Returns the number of links written.
func (s *Store) ApplyCommits(ctx context.Context, commits []models.CommitInstruction) (int, error) {
	applied := 0
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		for _, c := range commits {
			res, err := tx.ExecContext(ctx, `
				UPDATE bank_transactions
				SET reconciled_invoice_id = ?
				WHERE id = ? AND reconciled_invoice_id IS NULL`,
				c.InvoiceID, c.TransactionID)
			if err != nil {
				return fmt.Errorf("failed to link transaction %s: %w", c.TransactionID, err)
			}
			n, _ := res.RowsAffected()
			if n == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO reconciliation_links (transaction_id, invoice_id, score)
				VALUES (?, ?, ?)`,
				c.TransactionID, c.InvoiceID, c.Score); err != nil {
				return fmt.Errorf("failed to record link %s -> %s: %w", c.TransactionID, c.InvoiceID, err)
			}
			applied++
		}
		return nil
	})
	if err == nil {
		s.logger.Info("Reconciliation commits applied",
			zap.Int("requested", len(commits)),
			zap.Int("applied", applied))
	}
	return applied, err
}

// QueuedExtraction is an extraction parked for human review.
type QueuedExtraction struct {
	ID         int64                   `json:"id"`
	Invoice    models.ExtractedInvoice `json:"invoice"`
	Confidence float64                 `json:"confidence"`
	Status     models.ReviewStatus     `json:"status"`
}

// QueueExtraction parks an extraction as pending review.
func (s *Store) QueueExtraction(ctx context.Context, inv models.ExtractedInvoice) (int64, error) {
	payload, err := json.Marshal(inv)
	if err != nil {
		return 0, fmt.Errorf("failed to encode extraction: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO extractions (doc_type, payload, confidence, status)
		VALUES (?, ?, ?, ?)`,
		string(inv.DocType), string(payload), inv.ExtractionConfidence, string(models.ReviewPending))
	if err != nil {
		return 0, fmt.Errorf("failed to queue extraction: %w", err)
	}
	return res.LastInsertId()
}

// PendingExtractions lists the review queue oldest-first.
func (s *Store) PendingExtractions(ctx context.Context) ([]QueuedExtraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload, confidence, status
		FROM extractions WHERE status = ? ORDER BY id`,
		string(models.ReviewPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query extractions: %w", err)
	}
	defer rows.Close()

	var out []QueuedExtraction
	for rows.Next() {
		var q QueuedExtraction
		var payload, status string
		if err := rows.Scan(&q.ID, &payload, &q.Confidence, &status); err != nil {
			return nil, fmt.Errorf("failed to scan extraction: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &q.Invoice); err != nil {
			return nil, fmt.Errorf("failed to decode extraction %d: %w", q.ID, err)
		}
		q.Status = models.ReviewStatus(status)
		out = append(out, q)
	}
	return out, rows.Err()
}

// ReviewExtraction records the reviewer's verdict on a queued extraction.
func (s *Store) ReviewExtraction(ctx context.Context, id int64, status models.ReviewStatus) error {
	if status != models.ReviewAccepted && status != models.ReviewRejected {
		return fmt.Errorf("invalid review status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE extractions
		SET status = ?, reviewed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		string(status), id, string(models.ReviewPending))
	if err != nil {
		return fmt.Errorf("failed to review extraction %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("extraction %d is not pending review", id)
	}
	return nil
}
