package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"financeflow/internal/codec"
	"financeflow/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func sampleTxns() []core.Transaction {
	return []core.Transaction{
		{Date: core.NewDate(2025, 5, 10), Kind: core.Income, Category: "Income", Amount: core.Money{Cents: 4500000}, Note: "Monthly salary"},
		{Date: core.NewDate(2025, 5, 9), Kind: core.Expense, Category: "Food & Dining", Amount: core.Money{Cents: 35000}, Note: "Restaurant dinner"},
		{Date: core.NewDate(2025, 5, 8), Kind: core.Expense, Category: "Transportation", Amount: core.Money{Cents: 12000}, Note: "Uber ride"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleTxns()
	if err := s.Save(ctx, "carol", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, found, err := s.Load(ctx, "carol")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("found = false after save")
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d mismatch:\n got %+v\nwant %+v", i, got[i], want[i])
		}
	}
}

func TestLoadMissingLedger(t *testing.T) {
	s := newTestStore(t)
	txns, found, err := s.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found || txns != nil {
		t.Fatalf("missing ledger: got (%v, %v), want (nil, false)", txns, found)
	}
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, "carol", sampleTxns()); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Corrupt one line in the middle of the file.
	path := s.ledgerPath("carol")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	lines[2] = "garbage line with no structure"
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, found, err := s.Load(ctx, "carol")
	if err != nil {
		t.Fatalf("load after corruption: %v", err)
	}
	if !found {
		t.Fatal("found = false")
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (corrupt line skipped)", len(got))
	}
}

func TestInterruptedSaveLeavesLedgerIntact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	want := sampleTxns()
	if err := s.Save(ctx, "carol", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Simulate a crash mid-write: a half-written temp file next to the
	// live ledger, never renamed.
	dir := filepath.Join(s.dataDir, "carol")
	if err := os.WriteFile(filepath.Join(dir, "carol-crash.tmp"), []byte("date,type,cat"), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	got, found, err := s.Load(ctx, "carol")
	if err != nil || !found {
		t.Fatalf("load: (%v, %v)", found, err)
	}
	if len(got) != len(want) {
		t.Fatalf("live ledger damaged: got %d records, want %d", len(got), len(want))
	}
}

func TestSaveIsFullRewrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, "carol", sampleTxns()); err != nil {
		t.Fatalf("save: %v", err)
	}
	short := sampleTxns()[:1]
	if err := s.Save(ctx, "carol", short); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, _, err := s.Load(ctx, "carol")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1 after rewrite", len(got))
	}
}

func TestWriteExport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	path, err := s.WriteExport(ctx, "carol", sampleTxns())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(filepath.Base(path), "carol_finance_export_") {
		t.Fatalf("unexpected artifact name %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != codec.ExportHeader {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}

	// Export must not touch the live ledger.
	if _, found, _ := s.Load(ctx, "carol"); found {
		t.Fatal("export created a live ledger")
	}
}
