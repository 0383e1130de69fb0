// Package service orchestrates accounts, sessions, and ledger mutations.
//
// Every mutation follows the same discipline: validate first, update the
// in-memory working set, persist the whole ledger, and roll the working set
// back if persistence fails. Durable state never reflects a half-applied
// operation.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/analytics"
	"financeflow/internal/backend"
	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
	"financeflow/internal/registry"
)

// EventPublisher publishes ledger mutation events. A nil publisher disables
// eventing without changing service behavior.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

type Service struct {
	registry *registry.Registry
	store    backend.Ledger
	exporter *ledger.Store
	events   EventPublisher
	sessions *Sessions
}

func New(reg *registry.Registry, store backend.Ledger, exporter *ledger.Store, events EventPublisher, sessions *Sessions) *Service {
	return &Service{
		registry: reg,
		store:    store,
		exporter: exporter,
		events:   events,
		sessions: sessions,
	}
}

// Register creates a new account. The confirmation credential is compared
// before any other validation runs.
func (s *Service) Register(ctx context.Context, username, credential, confirm string) (core.Account, error) {
	if credential != confirm {
		return core.Account{}, core.ErrPasswordMismatch
	}
	return s.registry.Register(ctx, username, credential)
}

// Login authenticates the user, loads their ledger into a fresh session,
// and returns the session token. A user whose ledger was never initialized
// gets the starter data, persisted immediately.
func (s *Service) Login(ctx context.Context, username, credential string) (string, error) {
	ok, err := s.registry.Authenticate(ctx, username, credential)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", core.ErrInvalidCredentials
	}

	txns, found, err := s.store.Load(ctx, username)
	if err != nil {
		return "", err
	}
	if !found {
		txns = starterTransactions(core.DateOf(time.Now()))
		if err := s.store.Save(ctx, username, txns); err != nil {
			return "", err
		}
		slog.InfoContext(ctx, "Seeded starter ledger", log.FieldUsername, username, log.FieldRecords, len(txns))
	}

	sortNewestFirst(txns)
	for i := range txns {
		txns[i].ID = int64(i + 1)
	}

	sess := &session{
		username: username,
		txns:     txns,
		nextID:   int64(len(txns) + 1),
		budget:   core.Money{Cents: defaultBudgetCents},
	}
	token := s.sessions.Create(sess)

	slog.InfoContext(ctx, "User logged in", log.FieldUsername, username, log.FieldRecords, len(txns))
	return token, nil
}

// Logout ends the session for token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if !s.sessions.Delete(token) {
		return core.ErrNoSession
	}
	return nil
}

// Username resolves the account name behind a session token.
func (s *Service) Username(token string) (string, error) {
	sess, ok := s.sessions.Get(token)
	if !ok {
		return "", core.ErrNoSession
	}
	return sess.username, nil
}

// List returns a copy of the session's transactions, newest first.
func (s *Service) List(ctx context.Context, token string) ([]core.Transaction, error) {
	sess, ok := s.sessions.Get(token)
	if !ok {
		return nil, core.ErrNoSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]core.Transaction(nil), sess.txns...), nil
}

// Add validates and records a new transaction at the head of the ledger.
// An empty date means today.
func (s *Service) Add(ctx context.Context, token, dateStr, kindStr, category, amountStr, note string) (core.Transaction, error) {
	sess, ok := s.sessions.Get(token)
	if !ok {
		return core.Transaction{}, core.ErrNoSession
	}

	var date core.Date
	if strings.TrimSpace(dateStr) == "" {
		date = core.DateOf(time.Now())
	} else {
		var err error
		date, err = core.ParseDate(dateStr)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	kind, err := core.ParseKind(kindStr)
	if err != nil {
		return core.Transaction{}, err
	}

	cents, err := core.ParseAmountToCents(amountStr)
	if err != nil {
		return core.Transaction{}, err
	}

	txn := core.Transaction{
		Date:     date,
		Kind:     kind,
		Category: strings.TrimSpace(category),
		Amount:   core.Money{Cents: cents},
		Note:     note,
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	txn.ID = sess.nextID
	prev := sess.txns
	sess.txns = append([]core.Transaction{txn}, sess.txns...)

	if err := s.store.Save(ctx, sess.username, sess.txns); err != nil {
		sess.txns = prev
		return core.Transaction{}, err
	}
	sess.nextID++

	s.publish(ctx, amqp.ActionAdd, sess.username, txn)
	slog.InfoContext(ctx, "Transaction added",
		log.FieldUsername, sess.username,
		log.FieldKind, string(txn.Kind),
		log.FieldCategory, txn.Category,
		log.FieldAmountCents, txn.Amount.Cents)
	return txn, nil
}

// QuickAdd records a transaction for today. The category is optional: an
// empty one defaults by kind, income to "Income" and expenses to the first
// vocabulary entry.
func (s *Service) QuickAdd(ctx context.Context, token, kindStr, category, amountStr, note string) (core.Transaction, error) {
	kind, err := core.ParseKind(kindStr)
	if err != nil {
		return core.Transaction{}, err
	}

	if strings.TrimSpace(category) == "" {
		if kind == core.Income {
			category = "Income"
		} else {
			category = core.Categories()[0]
		}
	}
	return s.Add(ctx, token, "", kindStr, category, amountStr, note)
}

// Delete removes the transaction with the given session-scoped ID.
func (s *Service) Delete(ctx context.Context, token string, id int64) (core.Transaction, error) {
	sess, ok := s.sessions.Get(token)
	if !ok {
		return core.Transaction{}, core.ErrNoSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	idx := -1
	for i, t := range sess.txns {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Transaction{}, core.ErrNotFound
	}

	removed := sess.txns[idx]
	prev := sess.txns
	next := make([]core.Transaction, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	sess.txns = next

	if err := s.store.Save(ctx, sess.username, sess.txns); err != nil {
		sess.txns = prev
		return core.Transaction{}, err
	}

	s.publish(ctx, amqp.ActionDelete, sess.username, removed)
	slog.InfoContext(ctx, "Transaction deleted",
		log.FieldUsername, sess.username,
		log.FieldKind, string(removed.Kind),
		log.FieldCategory, removed.Category,
		log.FieldAmountCents, removed.Amount.Cents)
	return removed, nil
}

// Export writes the session's full ledger to a timestamped artifact and
// returns its path.
func (s *Service) Export(ctx context.Context, token string) (string, error) {
	sess, ok := s.sessions.Get(token)
	if !ok {
		return "", core.ErrNoSession
	}

	sess.mu.Lock()
	txns := append([]core.Transaction(nil), sess.txns...)
	username := sess.username
	sess.mu.Unlock()

	return s.exporter.WriteExport(ctx, username, txns)
}

// Summary derives the full dashboard figure set from the session's ledger.
func (s *Service) Summary(ctx context.Context, token string) (core.Summary, error) {
	sess, ok := s.sessions.Get(token)
	if !ok {
		return core.Summary{}, core.ErrNoSession
	}

	sess.mu.Lock()
	txns := append([]core.Transaction(nil), sess.txns...)
	budget := sess.budget
	sess.mu.Unlock()

	today := core.DateOf(time.Now())
	income, expenses, balance := analytics.Totals(txns)
	monthlyExpenses := analytics.MonthlyExpenses(txns, today)

	sum := core.Summary{
		TotalIncome:     income,
		TotalExpenses:   expenses,
		Balance:         balance,
		MonthlyIncome:   analytics.MonthlyIncome(txns, today),
		MonthlyExpenses: monthlyExpenses,
		WeeklyIncome:    analytics.WeeklyIncome(txns, today),
		WeeklyExpenses:  analytics.WeeklyExpenses(txns, today),
		DailyAverage:    analytics.DailyAverageExpense(txns, today),
		CategoryTotals:  analytics.CategoryTotals(txns),
		DailyTrend:      analytics.DailyTrendSeries(txns, today, 7),
		MonthlyTrend:    analytics.MonthlyTrendSeries(txns, today, 6),
		Budget:          budget,
	}
	if budget.Cents > 0 {
		sum.BudgetUtilization = analytics.BudgetUtilization(monthlyExpenses, budget)
	}
	return sum, nil
}

// SetBudget replaces the session's monthly budget.
func (s *Service) SetBudget(ctx context.Context, token, amountStr string) (core.Money, error) {
	sess, ok := s.sessions.Get(token)
	if !ok {
		return core.Money{}, core.ErrNoSession
	}

	// Strict parse: a signed budget is rejected, not rectified.
	cents, err := core.ParseStrictAmountToCents(amountStr)
	if err != nil || cents <= 0 {
		return core.Money{}, core.ErrInvalidBudget
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.budget = core.Money{Cents: cents}
	return sess.budget, nil
}

// Categories returns the fixed category vocabulary.
func (s *Service) Categories() []string {
	return core.Categories()
}

func (s *Service) publish(ctx context.Context, action, username string, t core.Transaction) {
	if s.events == nil {
		return
	}
	ev := amqp.NewLedgerEvent(action, username, t.Date.ISO(), string(t.Kind), t.Category, t.Amount.Cents, t.Note)
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldAction, action,
			log.FieldUsername, username,
			log.FieldError, err)
	}
}

func sortNewestFirst(txns []core.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.After(txns[j].Date.Time)
	})
}
