package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stephly/internal/analysis"
	"stephly/internal/assistant"
	"stephly/internal/core"
	"stephly/internal/currency"
	"stephly/internal/store"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	p := ParseMonthParams(r.URL.Query(), s.now())

	key := userPrefix(uid) + "summary:" + time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	if v, ok := s.summaries.Get(key); ok {
		atomic.AddInt64(&s.cacheHits, 1)
		writeJSON(w, http.StatusOK, v)
		return
	}

	v, err := s.buildSummary(r.Context(), uid, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaries.Set(key, v)
	writeJSON(w, http.StatusOK, v)
}

// elapsedDays is how much of the month has passed at now: all of a past
// month, none of a future one.
func elapsedDays(p MonthParams, now time.Time) (elapsed, total int) {
	first := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	total = first.AddDate(0, 1, -1).Day()
	cur := now.Year()*12 + int(now.Month())
	req := p.Year*12 + p.Month
	switch {
	case req < cur:
		return total, total
	case req > cur:
		return 0, total
	}
	return now.Day(), total
}

func (s *Server) buildSummary(ctx context.Context, uid int64, p MonthParams) (summaryView, error) {
	var (
		stats   core.Stats
		monthTx []core.Transaction
		budgets []core.Budget
		profile core.UserProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = s.cachedStats(gctx, uid)
		return err
	})
	g.Go(func() (err error) {
		monthTx, err = s.svc.Transactions.ListInMonth(gctx, uid, p.Year, p.Month)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.svc.Budgets.List(gctx, uid, p.Month, p.Year)
		return err
	})
	g.Go(func() error {
		u, err := s.svc.Users.GetProfile(gctx, uid)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		profile = u
		return nil
	})
	if err := g.Wait(); err != nil {
		return summaryView{}, err
	}

	monthStats := core.ComputeStats(monthTx)
	income := profile.MonthlyIncome
	if income.Cents <= 0 {
		income = monthStats.TotalIncome
	}

	v := summaryView{
		Year:       p.Year,
		Month:      p.Month,
		Stats:      newStatsView(stats),
		MonthStats: newStatsView(monthStats),
		Budgets:    newBudgetViews(budgets),
		Health:     analysis.Health(stats.Balance, income, monthStats.TotalExpenses, budgets),
	}
	for _, sp := range analysis.SpendingPatterns(monthTx, budgets) {
		v.Patterns = append(v.Patterns, patternView{SpendingPattern: sp, Amount: newMoneyView(sp.Amount)})
	}
	for _, a := range analysis.SuggestAllocation(income) {
		v.Allocation = append(v.Allocation, allocationView{Label: a.Label, Amount: newMoneyView(a.Amount)})
	}
	elapsed, total := elapsedDays(p, s.now())
	for _, b := range budgets {
		pr := analysis.PredictExceedance(b, b.Spent, elapsed, total)
		v.Predictions = append(v.Predictions, predictionView{Prediction: pr, ProjectedAmount: newMoneyView(pr.ProjectedAmount)})
	}
	return v, nil
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	advice, err := s.svc.Assistant.Advice(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var (
		budgets []assistant.BudgetSuggestion
		tips    []string
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		budgets, err = s.svc.Assistant.BudgetSuggestions(gctx, uid)
		return err
	})
	g.Go(func() (err error) {
		tips, err = s.svc.Assistant.ProactiveSuggestions(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"budgets":     budgets,
		"suggestions": tips,
	})
}

func (s *Server) currencyAvailable(w http.ResponseWriter) bool {
	if s.svc.Currency == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "currency service unavailable")
		return false
	}
	return true
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if !s.currencyAvailable(w) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Currency.Rates(r.Context()))
}

type conversionResponse struct {
	Amount    string `json:"amount"`
	From      string `json:"from"`
	To        string `json:"to"`
	Result    string `json:"result"`
	Formatted string `json:"formatted"`
	Fallback  bool   `json:"fallback"`
}

// handleConvert converts ?amount= from ?from= (default GHS) to ?to=
// (default USD).
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if !s.currencyAvailable(w) {
		return
	}
	q := r.URL.Query()
	amount, err := decimal.NewFromString(strings.TrimSpace(q.Get("amount")))
	if err != nil {
		writeError(w, r, badRequest("invalid amount %q", q.Get("amount")))
		return
	}
	from := strings.ToUpper(strings.TrimSpace(q.Get("from")))
	if from == "" {
		from = core.DefaultCurrency
	}
	to := strings.ToUpper(strings.TrimSpace(q.Get("to")))
	if to == "" {
		to = core.DefaultPreferredCurrency
	}

	quote := s.svc.Currency.Rates(r.Context())
	result, err := currency.Convert(amount, from, to, quote.Rates)
	if err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse{
		Amount:    amount.StringFixed(2),
		From:      from,
		To:        to,
		Result:    result.StringFixed(2),
		Formatted: currency.Format(result, to),
		Fallback:  quote.Fallback,
	})
}
