package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"financeflow/internal/core"
)

type transactionJSON struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date.ISO(),
		Type:        string(t.Kind),
		Category:    t.Category,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Note:        t.Note,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := s.svc.Register(r.Context(), req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"username": account.Username,
		"email":    account.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, token string) {
	if err := s.svc.Logout(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}
	s.summaryCache.Delete(token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, token string) {
	txns, err := s.svc.List(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]transactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request, token string) {
	var req struct {
		Date     string `json:"date"`
		Type     string `json:"type"`
		Category string `json:"category"`
		Amount   string `json:"amount"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := s.svc.Add(r.Context(), token, req.Date, req.Type, sanitizeInput(req.Category), sanitizeInput(req.Amount), sanitizeInput(req.Note))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.summaryCache.Delete(token)
	writeJSON(w, http.StatusCreated, toTransactionJSON(txn))
}

func (s *Server) handleQuickAdd(w http.ResponseWriter, r *http.Request, token string) {
	var req struct {
		Type     string `json:"type"`
		Category string `json:"category"`
		Amount   string `json:"amount"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := s.svc.QuickAdd(r.Context(), token, req.Type, sanitizeInput(req.Category), sanitizeInput(req.Amount), sanitizeInput(req.Note))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.summaryCache.Delete(token)
	writeJSON(w, http.StatusCreated, toTransactionJSON(txn))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, token string) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	removed, err := s.svc.Delete(r.Context(), token, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.summaryCache.Delete(token)
	writeJSON(w, http.StatusOK, toTransactionJSON(removed))
}

type summaryJSON struct {
	TotalIncome       string            `json:"total_income"`
	TotalExpenses     string            `json:"total_expenses"`
	Balance           string            `json:"balance"`
	MonthlyIncome     string            `json:"monthly_income"`
	MonthlyExpenses   string            `json:"monthly_expenses"`
	WeeklyIncome      string            `json:"weekly_income"`
	WeeklyExpenses    string            `json:"weekly_expenses"`
	DailyAverage      string            `json:"daily_average"`
	CategoryTotals    map[string]string `json:"category_totals"`
	DailyTrend        []dayPointJSON    `json:"daily_trend"`
	MonthlyTrend      []monthPointJSON  `json:"monthly_trend"`
	Budget            string            `json:"budget"`
	BudgetUtilization float64           `json:"budget_utilization"`
}

type dayPointJSON struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type monthPointJSON struct {
	Label   string `json:"label"`
	Expense string `json:"expense"`
}

func toSummaryJSON(sum core.Summary) summaryJSON {
	out := summaryJSON{
		TotalIncome:       sum.TotalIncome.String(),
		TotalExpenses:     sum.TotalExpenses.String(),
		Balance:           sum.Balance.String(),
		MonthlyIncome:     sum.MonthlyIncome.String(),
		MonthlyExpenses:   sum.MonthlyExpenses.String(),
		WeeklyIncome:      sum.WeeklyIncome.String(),
		WeeklyExpenses:    sum.WeeklyExpenses.String(),
		DailyAverage:      sum.DailyAverage.String(),
		CategoryTotals:    make(map[string]string, len(sum.CategoryTotals)),
		Budget:            sum.Budget.String(),
		BudgetUtilization: sum.BudgetUtilization,
	}
	for name, amount := range sum.CategoryTotals {
		out.CategoryTotals[name] = amount.String()
	}
	for _, p := range sum.DailyTrend {
		out.DailyTrend = append(out.DailyTrend, dayPointJSON{
			Date:    p.Date.ISO(),
			Label:   p.Label,
			Income:  p.Income.String(),
			Expense: p.Expense.String(),
		})
	}
	for _, p := range sum.MonthlyTrend {
		out.MonthlyTrend = append(out.MonthlyTrend, monthPointJSON{
			Label:   p.Label,
			Expense: p.Expense.String(),
		})
	}
	return out
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, token string) {
	if sum, found := s.summaryCache.Get(token); found {
		slog.DebugContext(r.Context(), "Summary cache hit")
		writeJSON(w, http.StatusOK, toSummaryJSON(sum))
		return
	}

	sum, err := s.svc.Summary(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.summaryCache.Set(token, sum)
	writeJSON(w, http.StatusOK, toSummaryJSON(sum))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request, token string) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := s.svc.SetBudget(r.Context(), token, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.summaryCache.Delete(token)
	writeJSON(w, http.StatusOK, map[string]string{"budget": budget.String()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, token string) {
	path, err := s.svc.Export(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.svc.Categories()})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
