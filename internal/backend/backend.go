// Package backend selects the ledger persistence implementation.
//
// The flat-file store is the canonical on-disk representation; the SQLite
// store is a deployment option with identical semantics. Export artifacts
// always go through the flat-file writer regardless of backend.
package backend

import (
	"context"
	"fmt"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/storage"
)

// Ledger is the persistence contract the service orchestrates: full-read
// and full-rewrite of one user's transaction sequence. found is false only
// for a user whose ledger was never initialized, which triggers starter
// data seeding.
type Ledger interface {
	Load(ctx context.Context, username string) (txns []core.Transaction, found bool, err error)
	Save(ctx context.Context, username string, txns []core.Transaction) error
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

type Type string

const (
	FileBackend   Type = "file"
	SQLiteBackend Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

type Config struct {
	Type         Type
	DataDir      string
	SQLiteDBPath string
}

// Interface conformance
var (
	_ Ledger = (*ledger.Store)(nil)
	_ Ledger = (*storage.SQLiteStore)(nil)
)

// Open creates the configured ledger backend and a cleanup function.
func Open(cfg Config) (Ledger, CleanupFunc, error) {
	switch cfg.Type {
	case FileBackend:
		store, err := ledger.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open file backend: %w", err)
		}
		return store, func() error { return nil }, nil
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Type)
	}
}
