package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"financeflow/internal/core"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Low cost keeps the tests fast; production uses bcrypt.DefaultCost.
	r.cost = 4
	return r, dir
}

func TestRegisterAndAuthenticate(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	account, err := r.Register(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.Email != "alice@financeflow.com" {
		t.Fatalf("email = %q", account.Email)
	}
	if account.PasswordHash == "secret1" || account.PasswordHash == "" {
		t.Fatal("credential stored without hashing")
	}

	ok, err := r.Authenticate(ctx, "alice", "secret1")
	if err != nil || !ok {
		t.Fatalf("authenticate(alice, secret1) = (%v, %v), want true", ok, err)
	}
	ok, err = r.Authenticate(ctx, "alice", "wrong")
	if err != nil || ok {
		t.Fatalf("authenticate(alice, wrong) = (%v, %v), want false", ok, err)
	}
	ok, err = r.Authenticate(ctx, "bob", "x")
	if err != nil || ok {
		t.Fatalf("authenticate(bob, x) = (%v, %v), want false", ok, err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	r, dir := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Register(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := r.Register(ctx, "alice", "other-secret")
	if !errors.Is(err, core.ErrDuplicateUsername) {
		t.Fatalf("second register: got %v, want ErrDuplicateUsername", err)
	}

	// Exactly one record for alice in the file.
	data, err := os.ReadFile(filepath.Join(dir, "Accounts.csv"))
	if err != nil {
		t.Fatalf("read accounts file: %v", err)
	}
	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "alice,") {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("registry contains %d records for alice, want 1", count)
	}
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Register(ctx, "ab", "secret1"); !errors.Is(err, core.ErrInvalidUsername) {
		t.Fatalf("short username: got %v", err)
	}
	if _, err := r.Register(ctx, "alice", "short"); !errors.Is(err, core.ErrWeakCredential) {
		t.Fatalf("short credential: got %v", err)
	}
	if _, err := r.Register(ctx, "../etc", "secret1"); !errors.Is(err, core.ErrInvalidUsername) {
		t.Fatalf("path-unsafe username: got %v", err)
	}
	if ok, _ := r.Exists(ctx, "alice"); ok {
		t.Fatal("failed registration must not append a record")
	}
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Register(ctx, "Alice", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Register(ctx, "alice", "secret2"); err != nil {
		t.Fatalf("register distinct-case username: %v", err)
	}
	if ok, _ := r.Authenticate(ctx, "ALICE", "secret1"); ok {
		t.Fatal("authentication must match username case exactly")
	}
}

func TestHeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir); err != nil {
		t.Fatalf("New: %v", err)
	}
	r, err := New(dir) // reopening must not rewrite the file
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	r.cost = 4
	if _, err := r.Register(context.Background(), "carol", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Accounts.csv"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "username,password,email,registration_date\n") {
		t.Fatalf("missing header: %q", string(data))
	}
	if strings.Count(string(data), "username,password") != 1 {
		t.Fatal("header duplicated")
	}
}
