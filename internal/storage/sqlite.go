// Package storage provides the optional SQLite ledger backend.
//
// It implements the same load/save contract as the flat-file store; the
// full-rewrite semantics of a save become a single transaction (delete the
// user's rows, insert the new sequence), so atomicity comes from the
// database instead of a file rename.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"financeflow/internal/core"
	"financeflow/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns the user's transactions in stored order. found reports
// whether the user's ledger was ever initialized, distinct from a ledger
// that is merely empty.
func (s *SQLiteStore) Load(ctx context.Context, username string) (txns []core.Transaction, found bool, err error) {
	var created string
	err = s.db.QueryRowContext(ctx, `SELECT created_at FROM ledgers WHERE username = ?`, username).Scan(&created)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query ledger for %s: %w", username, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_date, kind, category, amount_cents, note
		FROM transactions
		WHERE username = ?
		ORDER BY position`, username)
	if err != nil {
		return nil, false, fmt.Errorf("query transactions for %s: %w", username, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dateStr, kindStr, category, note string
			cents                            int64
		)
		if err := rows.Scan(&dateStr, &kindStr, &category, &cents, &note); err != nil {
			return nil, false, fmt.Errorf("scan transaction for %s: %w", username, err)
		}
		date, err := core.ParseDate(dateStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping transaction row with bad date",
				log.FieldUsername, username, log.FieldTxDate, dateStr)
			continue
		}
		kind, err := core.ParseKind(kindStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping transaction row with bad kind",
				log.FieldUsername, username, log.FieldKind, kindStr)
			continue
		}
		txns = append(txns, core.Transaction{
			Date:     date,
			Kind:     kind,
			Category: category,
			Amount:   core.Money{Cents: cents},
			Note:     note,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate transactions for %s: %w", username, err)
	}
	return txns, true, nil
}

// Save replaces the user's stored sequence with txns in the given order,
// inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, username string, txns []core.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save for %s: %w", username, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledgers (username) VALUES (?)
		ON CONFLICT (username) DO NOTHING`, username); err != nil {
		return fmt.Errorf("upsert ledger for %s: %w", username, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE username = ?`, username); err != nil {
		return fmt.Errorf("clear transactions for %s: %w", username, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (username, position, tx_date, kind, category, amount_cents, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert for %s: %w", username, err)
	}
	defer stmt.Close()

	for i, t := range txns {
		if _, err := stmt.ExecContext(ctx, username, i, t.Date.ISO(), string(t.Kind),
			t.Category, t.Amount.Cents, t.Note); err != nil {
			return fmt.Errorf("insert transaction for %s: %w", username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save for %s: %w", username, err)
	}
	slog.DebugContext(ctx, "Ledger saved to sqlite", log.FieldUsername, username, log.FieldRecords, len(txns))
	return nil
}
