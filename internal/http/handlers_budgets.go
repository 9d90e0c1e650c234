package http

import (
	"net/http"

	"stephly/internal/core"
)

type budgetRequest struct {
	Category string `json:"category"`
	Limit    Amount `json:"limit"`
	Month    int    `json:"month"`
	Year     int    `json:"year"`
}

type affordabilityRequest struct {
	Amount Amount `json:"amount"`
	Month  int    `json:"month"`
	Year   int    `json:"year"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	p := ParseMonthParams(r.URL.Query(), s.now())
	budgets, err := s.svc.Budgets.List(r.Context(), userID(r), p.Month, p.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":   p.Month,
		"year":    p.Year,
		"budgets": newBudgetViews(budgets),
	})
}

// handleSetBudget creates the budget or replaces the limit of the existing
// one for the same category and month.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := req.Limit.Money(false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.Budgets.Set(r.Context(), core.Budget{
		UserID:   userID(r),
		Category: sanitizeInput(req.Category),
		Limit:    limit,
		Month:    req.Month,
		Year:     req.Year,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetView(saved))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAffordability(w http.ResponseWriter, r *http.Request) {
	var req affordabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	proposed, err := req.Amount.Money(false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Budgets.Affordability(r.Context(), userID(r), proposed, req.Month, req.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, affordabilityView{Affordability: a, SuggestedAmount: newMoneyView(a.SuggestedAmount)})
}
