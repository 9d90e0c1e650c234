package http

import (
	"net/http"
	"strings"

	"stephly/internal/assistant"
	"stephly/internal/core"
)

const defaultHistory = 20

type chatRequest struct {
	Message string `json:"message"`
	Page    string `json:"page"`
}

type chatResponse struct {
	assistant.ChatResponse
	Stats *statsView `json:"stats,omitempty"`
}

type memoryRequest struct {
	FinancialGoals []string `json:"financialGoals"`
	RiskTolerance  string   `json:"riskTolerance"`
	SavingsTarget  Amount   `json:"savingsTarget"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.svc.Assistant.Chat(r.Context(), assistant.ChatRequest{
		UserID:  userID(r),
		Message: sanitizeInput(req.Message),
		Page:    sanitizeInput(req.Page),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := chatResponse{ChatResponse: resp}
	if resp.ActionExecuted {
		st := newStatsView(resp.Stats)
		out.Stats = &st
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r.URL.Query(), defaultHistory, maxHistory)
	if err != nil {
		writeError(w, r, err)
		return
	}
	convs, err := s.svc.Assistant.History(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]conversationView, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationView{
			ID:          c.ID,
			UserMessage: c.UserMessage,
			AIResponse:  c.AIResponse,
			Page:        c.Context.Page,
			Timestamp:   c.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

func (s *Server) handleClearAIData(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Assistant.ClearAIData(r.Context(), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	all := strings.EqualFold(r.URL.Query().Get("all"), "true")
	insights, err := s.svc.Assistant.Insights(r.Context(), userID(r), !all)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]insightView, 0, len(insights))
	for _, i := range insights {
		out = append(out, insightView{
			ID:           i.ID,
			Type:         string(i.Type),
			Message:      i.Message,
			Timestamp:    i.Timestamp,
			Acknowledged: i.Acknowledged,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": out})
}

func (s *Server) handleAckInsight(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Assistant.AcknowledgeInsight(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveMemory(w http.ResponseWriter, r *http.Request) {
	var req memoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	prefs := core.Preferences{RiskTolerance: core.RiskTolerance(strings.ToLower(strings.TrimSpace(req.RiskTolerance)))}
	for _, g := range req.FinancialGoals {
		if g = sanitizeInput(g); g != "" {
			prefs.FinancialGoals = append(prefs.FinancialGoals, g)
		}
	}
	if req.SavingsTarget.IsSet() {
		target, err := req.SavingsTarget.Money(true)
		if err != nil {
			writeError(w, r, err)
			return
		}
		prefs.SavingsTarget = target.Cents
	}
	if err := s.svc.Assistant.SavePreferences(r.Context(), userID(r), prefs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
