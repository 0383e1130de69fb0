package core

import (
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"Income", Income, true},
		{"income", Income, true},
		{"EXPENSE", Expense, true},
		{" expense ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got (%q, %v), want %q", i, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error for %q", i, tc.in)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != time.February || d.Day() != 28 {
		t.Fatalf("got %v", d)
	}
	if d.ISO() != "2025-02-28" {
		t.Fatalf("ISO = %q", d.ISO())
	}
	if _, err := ParseDate("28/02/2025"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:     NewDate(2025, 1, 1),
		Kind:     Expense,
		Category: "Food & Dining",
		Amount:   Money{Cents: 100},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Date: Date{}, Kind: Expense, Category: "c", Amount: Money{Cents: 1}},
		{Date: NewDate(2025, 1, 1), Kind: "Transfer", Category: "c", Amount: Money{Cents: 1}},
		{Date: NewDate(2025, 1, 1), Kind: Income, Category: "  ", Amount: Money{Cents: 1}},
		{Date: NewDate(2025, 1, 1), Kind: Income, Category: "c", Amount: Money{Cents: -1}},
	}
	for i, tr := range bads {
		if err := tr.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDefaultEmail(t *testing.T) {
	if got := DefaultEmail("Alice"); got != "alice@financeflow.com" {
		t.Fatalf("got %q", got)
	}
}
