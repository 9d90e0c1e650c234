package http

import (
	"errors"
	"net/http"
	"strings"

	"stephly/internal/core"
	"stephly/internal/services"
)

type todoRequest struct {
	Title    string `json:"title"`
	Amount   Amount `json:"amount"`
	Category string `json:"category"`
	DueDate  string `json:"dueDate"`
	Note     string `json:"note"`
}

type completeTodoResponse struct {
	Transaction transactionView `json:"transaction"`
	Warning     string          `json:"warning,omitempty"`
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.svc.Todos.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]todoView, 0, len(todos))
	for _, t := range todos {
		out = append(out, newTodoView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": out})
}

func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.Money(false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	todo := core.Todo{
		UserID:   userID(r),
		Title:    sanitizeInput(req.Title),
		Amount:   amount,
		Category: sanitizeInput(req.Category),
		Note:     sanitizeInput(req.Note),
	}
	if strings.TrimSpace(req.DueDate) != "" {
		due, err := core.ParseDate(req.DueDate)
		if err != nil {
			writeError(w, r, badRequest("invalid dueDate %q, expected YYYY-MM-DD", req.DueDate))
			return
		}
		todo.DueDate = due
	}
	saved, err := s.svc.Todos.Add(r.Context(), todo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTodoView(saved))
}

// handleCompleteTodo turns the todo into an expense. When the expense was
// recorded but the todo could not be marked, the expense is still returned
// with a warning.
func (s *Server) handleCompleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Todos.Complete(r.Context(), userID(r), id)
	switch {
	case errors.Is(err, services.ErrPartialCompletion):
		writeJSON(w, http.StatusMultiStatus, completeTodoResponse{
			Transaction: newTransactionView(created),
			Warning:     "expense recorded but the todo is still pending",
		})
	case err != nil:
		writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, completeTodoResponse{Transaction: newTransactionView(created)})
	}
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Todos.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
