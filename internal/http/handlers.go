package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pondo/internal/app"
	"pondo/internal/archive"
	"pondo/internal/core"
	"pondo/internal/ledger"
)

type indexData struct {
	LoggedIn          bool
	User              string
	Theme             string
	IncomeCategories  []string
	ExpenseCategories []string
	Month             string
	Notices           []app.Notice
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	theme, err := s.app.Theme(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Theme read error", "error", err)
		theme = "light"
	}

	data := indexData{
		LoggedIn:          s.app.LoggedIn(),
		User:              s.app.User(),
		Theme:             theme,
		IncomeCategories:  core.Categories[core.Income],
		ExpenseCategories: core.Categories[core.Expense],
		Month:             core.DateOf(time.Now()).MonthKey(),
		Notices:           s.app.Notices().Active(),
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if err := s.app.Login(r.Context(), name); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Please enter a name")
		return
	}
	w.Header().Set("HX-Redirect", "/")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	user := s.app.User()
	if err := s.app.Logout(r.Context()); err != nil {
		s.log.ErrorContext(r.Context(), "Logout error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not log out")
		return
	}
	s.invalidatePartials(user)
	w.Header().Set("HX-Redirect", "/")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	amount, err := core.ParseAmount(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid amount")
		return
	}
	date, err := core.ParseDate(strings.TrimSpace(r.Form.Get("date")))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid date")
		return
	}

	draft := core.Transaction{
		Type:        core.TransactionType(sanitizeInput(r.Form.Get("type"))),
		Category:    sanitizeInput(r.Form.Get("category")),
		Amount:      amount,
		Date:        date,
		Description: sanitizeInput(r.Form.Get("description")),
	}

	tx, err := s.app.AddTransaction(r.Context(), draft)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid transaction: "+template.HTMLEscapeString(err.Error()))
		return
	}

	s.invalidatePartials(s.app.User())
	w.Header().Set("HX-Trigger", "transactions:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `<div class="success">Recorded %s: %s</div>`,
		template.HTMLEscapeString(tx.Description),
		template.HTMLEscapeString(tx.Amount.Display()))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.handleIDMutation(w, r, "transactions:changed", s.app.DeleteTransaction)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	s.handleIDMutation(w, r, "archive:changed", s.app.RestoreTransaction)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	s.handleIDMutation(w, r, "archive:changed", s.app.PurgeTransaction)
}

func (s *Server) handlePurgeAll(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := s.app.PurgeArchive(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	s.invalidatePartials(s.app.User())
	w.Header().Set("HX-Trigger", "archive:changed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	user := s.app.User()
	key := "summary:" + user
	if html, ok := s.partials.Get(key); ok {
		writeHTML(w, html)
		return
	}

	totals := s.app.Totals()
	balance := totals.Balance()
	data := struct {
		Income   string
		Expense  string
		Balance  string
		Negative bool
	}{
		Income:   totals.Income.Display(),
		Expense:  totals.Expense.Display(),
		Balance:  balance.Display(),
		Negative: balance.Cents < 0,
	}

	html, err := s.renderToString("summary.html", data)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Summary render error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not render summary")
		return
	}
	s.partials.Set(key, html)
	writeHTML(w, html)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	filter := strings.TrimSpace(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = ledger.FilterAll
	}

	type row struct {
		ID          int64
		Date        string
		Type        string
		Category    string
		Description string
		Amount      string
		IsIncome    bool
	}
	data := struct {
		Filter string
		Items  []row
	}{Filter: filter}

	for _, tx := range s.app.Transactions(filter) {
		data.Items = append(data.Items, row{
			ID:          tx.ID,
			Date:        tx.Date.String(),
			Type:        string(tx.Type),
			Category:    tx.Category,
			Description: tx.Description,
			Amount:      tx.Amount.Display(),
			IsIncome:    tx.Type == core.Income,
		})
	}
	s.render(w, r, "transactions.html", data)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	user := s.app.User()
	key := "breakdown:" + user
	if html, ok := s.partials.Get(key); ok {
		writeHTML(w, html)
		return
	}

	totals := s.app.CategoryTotals()
	var totalCents int64
	for _, m := range totals {
		totalCents += m.Cents
	}

	type row struct {
		Name    string
		Amount  string
		Percent int
	}
	data := struct {
		Total string
		Rows  []row
	}{Total: core.Money{Cents: totalCents}.Display()}

	for _, category := range core.Categories[core.Expense] {
		m, ok := totals[category]
		if !ok {
			continue
		}
		percent := 0
		if totalCents > 0 {
			percent = int((m.Cents*100 + totalCents/2) / totalCents)
		}
		data.Rows = append(data.Rows, row{Name: category, Amount: m.Display(), Percent: percent})
	}

	html, err := s.renderToString("breakdown.html", data)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Breakdown render error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not render breakdown")
		return
	}
	s.partials.Set(key, html)
	writeHTML(w, html)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = archive.CategoryAll
	}

	type row struct {
		ID          int64
		Date        string
		DeletedAt   string
		Type        string
		Category    string
		Description string
		Amount      string
	}
	data := struct {
		Query    string
		Category string
		Items    []row
	}{Query: query, Category: category}

	for _, dt := range s.app.SearchArchive(query, category) {
		data.Items = append(data.Items, row{
			ID:          dt.ID,
			Date:        dt.Date.String(),
			DeletedAt:   dt.DeletedAt.Format("2006-01-02 15:04"),
			Type:        string(dt.Type),
			Category:    dt.Category,
			Description: dt.Description,
			Amount:      dt.Amount.Display(),
		})
	}
	s.render(w, r, "archive.html", data)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		month = core.DateOf(time.Now()).MonthKey()
	}
	if !core.ValidMonthKey(month) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid month")
		return
	}

	type statusRow struct {
		Category     string
		Spent        string
		Budget       string
		Remaining    string
		UsagePercent int
		HasBudget    bool
		OverBudget   bool
	}
	type historyRow struct {
		ID        int64
		Category  string
		Amount    string
		Timestamp string
	}
	data := struct {
		Month   string
		Rows    []statusRow
		History []historyRow
	}{Month: month}

	for _, category := range core.Categories[core.Expense] {
		status, err := s.app.BudgetStatus(r.Context(), category, month)
		if err != nil {
			s.log.ErrorContext(r.Context(), "Budget status error", "error", err, "category", category, "month", month)
			writeError(w, http.StatusInternalServerError, "Could not load budgets")
			return
		}
		data.Rows = append(data.Rows, statusRow{
			Category:     category,
			Spent:        status.Spent.Display(),
			Budget:       status.Budget.Display(),
			Remaining:    status.Remaining.Display(),
			UsagePercent: status.UsagePercent,
			HasBudget:    status.Budget.Cents > 0,
			OverBudget:   status.OverBudget,
		})
	}

	history, err := s.app.BudgetHistory(r.Context(), month)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Budget history error", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "Could not load budget history")
		return
	}
	for _, entry := range history {
		data.History = append(data.History, historyRow{
			ID:        entry.ID,
			Category:  entry.Category,
			Amount:    entry.Amount.Display(),
			Timestamp: entry.Timestamp,
		})
	}
	s.render(w, r, "budgets.html", data)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	amount, err := core.ParseAmount(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid amount")
		return
	}
	category := sanitizeInput(r.Form.Get("category"))
	month := sanitizeInput(r.Form.Get("month"))

	if _, err := s.app.SetBudget(r.Context(), category, month, amount); err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("HX-Trigger", "budgets:changed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRemoveBudgetEntry(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("id")), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid entry ID")
		return
	}
	month := sanitizeInput(r.Form.Get("month"))

	if _, err := s.app.RemoveBudgetEntry(r.Context(), month, id); err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("HX-Trigger", "budgets:changed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleClearBudget(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	category := sanitizeInput(r.Form.Get("category"))
	month := sanitizeInput(r.Form.Get("month"))

	if _, err := s.app.ClearBudgetCategory(r.Context(), category, month); err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("HX-Trigger", "budgets:changed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	theme, err := s.app.ToggleTheme(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Theme toggle error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not switch theme")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(theme))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	var buf bytes.Buffer
	name, err := s.app.ExportCSV(&buf)
	if err != nil {
		s.log.ErrorContext(r.Context(), "CSV export error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not export report")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(buf.Bytes())
}

// handleIDMutation runs a (ctx, id) mutation from a form-posted ID and
// invalidates the user's cached partials.
func (s *Server) handleIDMutation(w http.ResponseWriter, r *http.Request, trigger string, op func(ctx context.Context, id int64) (bool, error)) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("id")), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid transaction ID")
		return
	}

	if _, err := op(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	s.invalidatePartials(s.app.User())
	w.Header().Set("HX-Trigger", trigger)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requireSession(w http.ResponseWriter) bool {
	if !s.app.LoggedIn() {
		writeError(w, http.StatusUnauthorized, "Please log in first")
		return false
	}
	return true
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	html, err := s.renderToString(name, data)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		writeError(w, http.StatusInternalServerError, "Rendering failed")
		return
	}
	writeHTML(w, html)
}

func (s *Server) renderToString(name string, data any) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeHTML(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + msg + `</div>`))
}

func writeAppError(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrNotLoggedIn) {
		writeError(w, http.StatusUnauthorized, "Please log in first")
		return
	}
	writeError(w, http.StatusInternalServerError, "Operation failed")
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
