package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

type (
	// Kind discriminates income from expense entries. The sign of an amount
	// is implied by the kind and never stored.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one signed cash event in a user's ledger. ID is an
	// in-memory handle assigned at load/add time and is never persisted.
	Transaction struct {
		ID       int64
		Date     Date
		Kind     Kind
		Category string
		Amount   Money
		Note     string
	}

	// Account is one row of the shared account registry. PasswordHash is a
	// bcrypt string with the salt embedded; the raw credential is never kept.
	Account struct {
		Username     string
		PasswordHash string
		Email        string
		RegisteredAt time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidKind        = errors.New("invalid transaction kind")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidUsername    = errors.New("username must be at least 3 characters")
	ErrWeakCredential     = errors.New("password must be at least 6 characters")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidBudget      = errors.New("budget must be positive")
	ErrNotFound           = errors.New("transaction not found")
	ErrNoSession          = errors.New("no active session")
)

// categories is the fixed vocabulary the UI offers. Free-form values are
// still accepted by the core.
var categories = []string{
	"Food & Dining", "Transportation", "Shopping", "Entertainment",
	"Bills & Utilities", "Healthcare", "Education", "Investment",
	"Travel", "Income", "Other",
}

// Categories returns a copy of the fixed category vocabulary.
func Categories() []string {
	return append([]string(nil), categories...)
}

// ParseKind normalizes a kind string case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// NewDate creates a calendar date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses the ISO calendar form used on disk (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO renders the date in its on-disk form.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// MonthStart returns the first day of the date's month.
func (d Date) MonthStart() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return t.Amount.Validate()
}

// DefaultEmail derives the placeholder profile address used in absence of
// real profile management.
func DefaultEmail(username string) string {
	return strings.ToLower(username) + "@financeflow.com"
}
