package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/registry"
)

type capturePublisher struct {
	events []*amqp.LedgerEvent
}

func (p *capturePublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func newTestService(t *testing.T) (*Service, *capturePublisher) {
	t.Helper()
	dir := t.TempDir()

	reg, err := registry.New(dir)
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	store, err := ledger.NewStore(dir)
	if err != nil {
		t.Fatalf("ledger.NewStore() error = %v", err)
	}

	pub := &capturePublisher{}
	return New(reg, store, store, pub, NewSessions(time.Minute)), pub
}

func login(t *testing.T, svc *Service, username, credential string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Register(ctx, username, credential, credential); err != nil && !errors.Is(err, core.ErrDuplicateUsername) {
		t.Fatalf("Register(%s) error = %v", username, err)
	}
	token, err := svc.Login(ctx, username, credential)
	if err != nil {
		t.Fatalf("Login(%s) error = %v", username, err)
	}
	return token
}

func TestRegister_PasswordMismatch(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "alice", "secret1", "secret2")
	if !errors.Is(err, core.ErrPasswordMismatch) {
		t.Errorf("Register() error = %v, want ErrPasswordMismatch", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "secret1", "secret1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("Login() with wrong credential = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret1"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("Login() with unknown user = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_SeedsStarterDataOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token := login(t, svc, "carol", "secret1")
	if name, err := svc.Username(token); err != nil || name != "carol" {
		t.Fatalf("Username() = %q, %v, want carol", name, err)
	}
	txns, err := svc.List(ctx, token)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(txns) != 6 {
		t.Fatalf("fresh ledger has %d records, want 6 starter records", len(txns))
	}
	if txns[0].Kind != core.Income || txns[0].Note != "Monthly salary" {
		t.Errorf("newest record = %+v, want the salary entry", txns[0])
	}

	income, expenses, _ := totalsOf(txns)
	if income != 45000_00 {
		t.Errorf("starter income = %d cents, want 4500000", income)
	}
	if expenses != 350_00+120_00+2500_00+800_00+1500_00 {
		t.Errorf("starter expenses = %d cents, want 527000", expenses)
	}

	// A second login finds the persisted ledger and must not seed again.
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	token2, err := svc.Login(ctx, "carol", "secret1")
	if err != nil {
		t.Fatalf("second Login() error = %v", err)
	}
	txns2, _ := svc.List(ctx, token2)
	if len(txns2) != 6 {
		t.Errorf("after second login ledger has %d records, want 6", len(txns2))
	}
}

func totalsOf(txns []core.Transaction) (income, expenses, balance int64) {
	for _, t := range txns {
		if t.Kind == core.Income {
			income += t.Amount.Cents
		} else {
			expenses += t.Amount.Cents
		}
	}
	return income, expenses, income - expenses
}

func TestAdd_PersistsAndPublishes(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	token := login(t, svc, "alice", "secret1")
	txn, err := svc.Add(ctx, token, "", "expense", "Food & Dining", "350.00", "Team lunch")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if txn.Amount.Cents != 350_00 {
		t.Errorf("Add() amount = %d cents, want 35000", txn.Amount.Cents)
	}
	if txn.ID == 0 {
		t.Error("Add() should assign a non-zero ID")
	}

	txns, _ := svc.List(ctx, token)
	if len(txns) != 7 {
		t.Fatalf("ledger has %d records after add, want 7", len(txns))
	}
	if txns[0].ID != txn.ID {
		t.Error("new transaction should be at the head of the ledger")
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Action != amqp.ActionAdd || ev.Username != "alice" || ev.AmountCents != 350_00 {
		t.Errorf("published event = %+v", ev)
	}

	// Survives a fresh session.
	svc.Logout(ctx, token)
	token2, _ := svc.Login(ctx, "alice", "secret1")
	txns2, _ := svc.List(ctx, token2)
	if len(txns2) != 7 {
		t.Errorf("reloaded ledger has %d records, want 7", len(txns2))
	}
}

func TestAdd_Validation(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	token := login(t, svc, "alice", "secret1")

	tests := []struct {
		name    string
		date    string
		kind    string
		cat     string
		amount  string
		wantErr error
	}{
		{"bad kind", "", "transfer", "Other", "10.00", core.ErrInvalidKind},
		{"bad amount", "", "expense", "Other", "abc", core.ErrInvalidAmount},
		{"empty category", "", "expense", "  ", "10.00", core.ErrEmptyCategory},
		{"bad date", "junk", "expense", "Other", "10.00", core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, token, tt.date, tt.kind, tt.cat, tt.amount, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if len(pub.events) != 0 {
		t.Errorf("rejected adds published %d events, want 0", len(pub.events))
	}
	txns, _ := svc.List(ctx, token)
	if len(txns) != 6 {
		t.Errorf("rejected adds changed the ledger: %d records, want 6", len(txns))
	}
}

func TestQuickAdd_CategoryDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	token := login(t, svc, "alice", "secret1")

	in, err := svc.QuickAdd(ctx, token, "income", "", "100.00", "")
	if err != nil {
		t.Fatalf("QuickAdd(income) error = %v", err)
	}
	if in.Category != "Income" {
		t.Errorf("QuickAdd(income) category = %q, want Income", in.Category)
	}

	out, err := svc.QuickAdd(ctx, token, "expense", "", "25.50", "coffee")
	if err != nil {
		t.Fatalf("QuickAdd(expense) error = %v", err)
	}
	if out.Category != core.Categories()[0] {
		t.Errorf("QuickAdd(expense) category = %q, want %q", out.Category, core.Categories()[0])
	}
	if out.Date.ISO() != core.DateOf(time.Now()).ISO() {
		t.Errorf("QuickAdd() date = %s, want today", out.Date.ISO())
	}

	chosen, err := svc.QuickAdd(ctx, token, "expense", "Travel", "80.00", "")
	if err != nil {
		t.Fatalf("QuickAdd(expense, Travel) error = %v", err)
	}
	if chosen.Category != "Travel" {
		t.Errorf("QuickAdd() with explicit category = %q, want Travel", chosen.Category)
	}
}

func TestDelete(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	token := login(t, svc, "alice", "secret1")

	txns, _ := svc.List(ctx, token)
	victim := txns[2]

	removed, err := svc.Delete(ctx, token, victim.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if removed.ID != victim.ID || removed.Category != victim.Category {
		t.Errorf("Delete() removed %+v, want %+v", removed, victim)
	}

	after, _ := svc.List(ctx, token)
	if len(after) != 5 {
		t.Fatalf("ledger has %d records after delete, want 5", len(after))
	}
	for _, tx := range after {
		if tx.ID == victim.ID {
			t.Error("deleted transaction still present")
		}
	}

	if _, err := svc.Delete(ctx, token, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete(unknown id) error = %v, want ErrNotFound", err)
	}

	var deletes int
	for _, ev := range pub.events {
		if ev.Action == amqp.ActionDelete {
			deletes++
		}
	}
	if deletes != 1 {
		t.Errorf("published %d delete events, want 1", deletes)
	}
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	token := login(t, svc, "alice", "secret1")

	path, err := svc.Export(ctx, token)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 7 {
		t.Errorf("export has %d lines, want header + 6 records", len(lines))
	}
	if lines[0] != "Date,Type,Category,Amount,Note" {
		t.Errorf("export header = %q", lines[0])
	}
}

func TestSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	token := login(t, svc, "alice", "secret1")

	before, err := svc.Summary(ctx, token)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if before.TotalIncome.Cents != 45000_00 {
		t.Errorf("TotalIncome = %d, want 4500000", before.TotalIncome.Cents)
	}
	if before.Balance.Cents != before.TotalIncome.Cents-before.TotalExpenses.Cents {
		t.Error("Balance should equal income minus expenses")
	}
	if before.Budget.Cents != 50000_00 {
		t.Errorf("default budget = %d cents, want 5000000", before.Budget.Cents)
	}
	if len(before.DailyTrend) != 7 {
		t.Errorf("daily trend has %d points, want 7", len(before.DailyTrend))
	}
	if len(before.MonthlyTrend) != 6 {
		t.Errorf("monthly trend has %d points, want 6", len(before.MonthlyTrend))
	}

	if _, err := svc.Add(ctx, token, "", "expense", "Food & Dining", "350.00", ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	after, _ := svc.Summary(ctx, token)

	delta := after.CategoryTotals["Food & Dining"].Cents - before.CategoryTotals["Food & Dining"].Cents
	if delta != 350_00 {
		t.Errorf("Food & Dining delta = %d cents, want 35000", delta)
	}
	if after.TotalExpenses.Cents != before.TotalExpenses.Cents+350_00 {
		t.Error("TotalExpenses should grow by the added amount")
	}
}

func TestSetBudget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	token := login(t, svc, "alice", "secret1")

	got, err := svc.SetBudget(ctx, token, "1000.00")
	if err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if got.Cents != 1000_00 {
		t.Errorf("SetBudget() = %d cents, want 100000", got.Cents)
	}

	sum, _ := svc.Summary(ctx, token)
	if sum.Budget.Cents != 1000_00 {
		t.Errorf("Summary budget = %d cents, want 100000", sum.Budget.Cents)
	}

	for _, bad := range []string{"0", "-50", "abc", ""} {
		if _, err := svc.SetBudget(ctx, token, bad); !errors.Is(err, core.ErrInvalidBudget) {
			t.Errorf("SetBudget(%q) error = %v, want ErrInvalidBudget", bad, err)
		}
	}
}

func TestSessionRequired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.List(ctx, "bogus-token"); !errors.Is(err, core.ErrNoSession) {
		t.Errorf("List() without session = %v, want ErrNoSession", err)
	}
	if err := svc.Logout(ctx, "bogus-token"); !errors.Is(err, core.ErrNoSession) {
		t.Errorf("Logout() without session = %v, want ErrNoSession", err)
	}
	if _, err := svc.Summary(ctx, "bogus-token"); !errors.Is(err, core.ErrNoSession) {
		t.Errorf("Summary() without session = %v, want ErrNoSession", err)
	}
}
