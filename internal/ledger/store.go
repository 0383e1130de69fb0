// Package ledger implements durable per-user transaction storage on flat
// text files.
//
// Each user's ledger is <dataDir>/<username>/<username>.csv: a header line
// followed by codec-encoded transactions. Saves are full rewrites through a
// temp file and an atomic rename, so a crash mid-write can never leave a
// partially written ledger behind.
package ledger

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"financeflow/internal/codec"
	"financeflow/internal/core"
	"financeflow/internal/log"
)

// Store persists one ledger file per user. Saves for the same user are
// serialized through a per-user mutex; different users never contend.
type Store struct {
	dataDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{
		dataDir: dataDir,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) userLock(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[username]
	if !ok {
		l = &sync.Mutex{}
		s.locks[username] = l
	}
	return l
}

func (s *Store) ledgerPath(username string) string {
	return filepath.Join(s.dataDir, username, username+".csv")
}

// Load reads and decodes every record of the user's ledger. A line that
// fails to decode is logged and skipped; one corrupt line never makes the
// whole ledger unreadable. found is false when no ledger exists yet, so
// the caller can seed starter data.
func (s *Store) Load(ctx context.Context, username string) (txns []core.Transaction, found bool, err error) {
	f, err := os.Open(s.ledgerPath(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open ledger for %s: %w", username, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			continue // header
		}
		if line == "" {
			continue
		}
		t, err := codec.Decode(line)
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid ledger line",
				log.FieldUsername, username, log.FieldError, err)
			continue
		}
		txns = append(txns, t)
	}
	if err := sc.Err(); err != nil {
		return nil, false, fmt.Errorf("read ledger for %s: %w", username, err)
	}
	return txns, true, nil
}

// Save fully rewrites the user's ledger in the given order. The new content
// goes to a temp file in the same directory, is synced, then renamed over
// the live file; the live file is never truncated in place. A failed save
// leaves the previous ledger fully intact.
func (s *Store) Save(ctx context.Context, username string, txns []core.Transaction) error {
	lock := s.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(s.dataDir, username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory for %s: %w", username, err)
	}

	tmp, err := os.CreateTemp(dir, username+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger for %s: %w", username, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	w := bufio.NewWriter(tmp)
	if _, err := w.WriteString(codec.LedgerHeader + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger header for %s: %w", username, err)
	}
	for _, t := range txns {
		if _, err := w.WriteString(codec.Encode(t) + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("write ledger record for %s: %w", username, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush ledger for %s: %w", username, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger for %s: %w", username, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger for %s: %w", username, err)
	}

	if err := os.Rename(tmpName, s.ledgerPath(username)); err != nil {
		return fmt.Errorf("replace ledger for %s: %w", username, err)
	}

	slog.DebugContext(ctx, "Ledger saved", log.FieldUsername, username, log.FieldRecords, len(txns))
	return nil
}
