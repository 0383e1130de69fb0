// Package registry implements the durable, append-only account table.
//
// Accounts live in a single Accounts.csv under the data directory, one
// record per line in registration order. The password column holds a bcrypt
// hash (salt embedded), never the raw credential.
package registry

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"financeflow/internal/codec"
	"financeflow/internal/core"
	"financeflow/internal/log"
)

const (
	fileName   = "Accounts.csv"
	header     = "username,password,email,registration_date"
	timeLayout = "2006-01-02 15:04:05"

	minUsernameLen   = 3
	minCredentialLen = 6
)

// Registry is the shared account table. The mutex makes the
// check-then-append sequence in Register a single critical section so two
// concurrent registrations with the same username cannot both succeed.
type Registry struct {
	mu   sync.Mutex
	path string
	cost int
}

// New opens (creating if needed) the registry under dataDir.
func New(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(dataDir, fileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(header+"\n"), 0o600); err != nil {
			return nil, fmt.Errorf("create accounts file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat accounts file: %w", err)
	}
	return &Registry{path: path, cost: bcrypt.DefaultCost}, nil
}

// Exists reports whether a record with the given username is present.
func (r *Registry) Exists(ctx context.Context, username string) (bool, error) {
	accounts, err := r.readAll(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range accounts {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// Register validates the request and appends exactly one record. It fails
// with core.ErrInvalidUsername, core.ErrWeakCredential or
// core.ErrDuplicateUsername without touching durable state.
func (r *Registry) Register(ctx context.Context, username, credential string) (core.Account, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || !usernameOK(username) {
		return core.Account{}, core.ErrInvalidUsername
	}
	if len(credential) < minCredentialLen {
		return core.Account{}, core.ErrWeakCredential
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.exists(ctx, username)
	if err != nil {
		return core.Account{}, err
	}
	if exists {
		return core.Account{}, core.ErrDuplicateUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), r.cost)
	if err != nil {
		return core.Account{}, fmt.Errorf("hash credential: %w", err)
	}

	account := core.Account{
		Username:     username,
		PasswordHash: string(hash),
		Email:        core.DefaultEmail(username),
		RegisteredAt: time.Now(),
	}

	line := strings.Join([]string{
		codec.Escape(account.Username),
		account.PasswordHash,
		codec.Escape(account.Email),
		account.RegisteredAt.Format(timeLayout),
	}, ",")

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return core.Account{}, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return core.Account{}, fmt.Errorf("append account record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return core.Account{}, fmt.Errorf("sync accounts file: %w", err)
	}

	slog.InfoContext(ctx, "Account registered", log.FieldUsername, account.Username)
	return account, nil
}

// Authenticate reports whether the username exists and the candidate
// credential matches its stored hash. Unknown user and wrong credential are
// indistinguishable in the result, which avoids username enumeration.
func (r *Registry) Authenticate(ctx context.Context, username, credential string) (bool, error) {
	accounts, err := r.readAll(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range accounts {
		if a.Username != username {
			continue
		}
		return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(credential)) == nil, nil
	}
	return false, nil
}

// exists is the lock-free variant used inside Register's critical section.
func (r *Registry) exists(ctx context.Context, username string) (bool, error) {
	accounts, err := r.readAll(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range accounts {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// usernameOK restricts usernames to characters safe for use as a directory
// name, since each user's ledger lives under a folder named after them.
func usernameOK(username string) bool {
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return username != "." && username != ".."
}

func (r *Registry) readAll(ctx context.Context) ([]core.Account, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	var accounts []core.Account
	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			continue // header
		}
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 4)
		if len(parts) < 4 {
			slog.WarnContext(ctx, "Skipping malformed account record", "fields", len(parts))
			continue
		}
		registeredAt, err := time.Parse(timeLayout, parts[3])
		if err != nil {
			slog.WarnContext(ctx, "Skipping account record with bad timestamp", "value", parts[3])
			continue
		}
		accounts = append(accounts, core.Account{
			Username:     codec.Unescape(parts[0]),
			PasswordHash: parts[1],
			Email:        codec.Unescape(parts[2]),
			RegisteredAt: registeredAt,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	return accounts, nil
}
