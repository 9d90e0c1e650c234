package http

import (
	"net/http"
	"strings"

	"stephly/internal/core"
	"stephly/internal/store"
)

const maxTransactionPage = 500

type transactionRequest struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Amount   Amount `json:"amount"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Note     string `json:"note"`
}

// toTransaction validates the request shape; domain rules are checked by the
// service.
func (req transactionRequest) toTransaction(s *Server, uid int64) (core.Transaction, error) {
	amount, err := req.Amount.Money(false)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := dateOrToday(req.Date, s.now())
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:   uid,
		Type:     core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Title:    sanitizeInput(req.Title),
		Amount:   amount,
		Category: sanitizeInput(req.Category),
		Date:     date,
		Note:     sanitizeInput(req.Note),
	}, nil
}

type transactionListResponse struct {
	Transactions []transactionView `json:"transactions"`
	Stats        statsView         `json:"stats"`
}

// handleListTransactions returns the newest transactions, or the ones of a
// single month when ?month= is given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	q := r.URL.Query()

	var (
		txs []core.Transaction
		err error
	)
	if q.Get("month") != "" {
		p := ParseMonthParams(q, s.now())
		txs, err = s.svc.Transactions.ListInMonth(r.Context(), uid, p.Year, p.Month)
	} else {
		var limit int
		limit, err = queryLimit(q, store.DefaultTransactionLimit, maxTransactionPage)
		if err == nil {
			txs, err = s.svc.Transactions.List(r.Context(), uid, limit)
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := s.cachedStats(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionListResponse{
		Transactions: newTransactionViews(txs),
		Stats:        newStatsView(stats),
	})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.toTransaction(s, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.Transactions.Add(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionView(saved))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionView(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.toTransaction(s, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	t.ID = id
	saved, err := s.svc.Transactions.Update(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionView(saved))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
