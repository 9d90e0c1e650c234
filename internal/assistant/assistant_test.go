package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"stephly/internal/core"
	"stephly/internal/search"
	"stephly/internal/services"
	"stephly/internal/store/memory"
)

// scriptedGen answers prompts through reply and records what it was asked.
type scriptedGen struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (g *scriptedGen) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.reply(prompt)
}

func (g *scriptedGen) last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type fakeSearcher struct {
	calls   int
	results []search.Result
}

func (f *fakeSearcher) Search(context.Context, string) []search.Result {
	f.calls++
	return f.results
}

func newAssistant(t *testing.T, gen *scriptedGen, opts ...Option) (*Assistant, *memory.Store, int64) {
	t.Helper()
	st := memory.New()
	u, err := st.CreateUser(context.Background(), core.UserProfile{Name: "Ama", Email: "ama@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	txs := services.NewTransactionService(st, nil, nil)
	budgets := services.NewBudgetService(st, nil)
	todos := services.NewTodoService(st, txs, nil)
	var a *Assistant
	if gen == nil {
		a = New(st, txs, budgets, todos, nil, nil, opts...)
	} else {
		a = New(st, txs, budgets, todos, gen, nil, opts...)
	}
	return a, st, u.ID
}

func seed(t *testing.T, st *memory.Store, uid int64) {
	t.Helper()
	ctx := context.Background()
	today := core.Today()
	for _, tx := range []core.Transaction{
		{UserID: uid, Type: core.Income, Title: "Salary", Amount: core.Money{Cents: 500000}, Category: "Salary", Date: today},
		{UserID: uid, Type: core.Expense, Title: "Groceries", Amount: core.Money{Cents: 45000}, Category: "Food", Date: today},
	} {
		if _, err := st.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestChat_ExecutesDetectedAction(t *testing.T) {
	gen := &scriptedGen{reply: func(p string) (string, error) {
		if strings.Contains(p, "Extract structured data") {
			return `{"amount": 50, "category": "Transport", "type": "expense", "title": "Taxi"}`, nil
		}
		return "", errors.New("unexpected prompt")
	}}
	a, st, uid := newAssistant(t, gen)
	ctx := context.Background()

	resp, err := a.Chat(ctx, ChatRequest{UserID: uid, Message: "Paid 50 for transport", Page: "dashboard"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !resp.ActionExecuted || !resp.Success {
		t.Fatalf("expected executed action, got %+v", resp)
	}
	if resp.Stats.TotalExpenses.Cents != 5000 || resp.Stats.Balance.Cents != -5000 {
		t.Errorf("unexpected refreshed stats: %+v", resp.Stats)
	}

	convs, _ := st.ListConversations(ctx, uid, 10)
	if len(convs) != 0 {
		t.Errorf("actions should not be stored as conversations, got %d", len(convs))
	}
}

func TestChat_AnswersWithModelAndRemembers(t *testing.T) {
	gen := &scriptedGen{reply: func(string) (string, error) { return "  Keep it up! 😊 ", nil }}
	a, st, uid := newAssistant(t, gen)
	seed(t, st, uid)
	ctx := context.Background()

	resp, err := a.Chat(ctx, ChatRequest{UserID: uid, Message: "how am I doing with money?", Page: "chat"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message != "Keep it up! 😊" || !resp.Success || resp.ActionExecuted {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !resp.IsFinancial {
		t.Error("message mentioning money should be financial")
	}

	prompt := gen.last()
	for _, want := range []string{
		"**Ama's Money:**",
		"Balance: ₵4550.00 | Income: ₵5000.00 | Expenses: ₵450.00",
		"-₵450.00 - Groceries (Food)",
		"User: how am I doing with money?\nStephly:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	convs, _ := st.ListConversations(ctx, uid, 10)
	if len(convs) != 1 || convs[0].AIResponse != "Keep it up! 😊" || convs[0].Context.Page != "chat" {
		t.Fatalf("conversation not saved: %+v", convs)
	}
	if convs[0].Context.Balance.Cents != 455000 || convs[0].Context.RecentTransactions != 2 {
		t.Errorf("unexpected conversation context: %+v", convs[0].Context)
	}
}

func TestChat_FallbackWhenModelUnavailable(t *testing.T) {
	a, st, uid := newAssistant(t, nil)
	resp, err := a.Chat(context.Background(), ChatRequest{UserID: uid, Message: "what is a good savings rate?"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message != fallbackMessage || resp.Success {
		t.Fatalf("expected fallback, got %+v", resp)
	}
	if len(resp.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %v", resp.Suggestions)
	}
	convs, _ := st.ListConversations(context.Background(), uid, 10)
	if len(convs) != 0 {
		t.Errorf("fallback replies must not be stored")
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	a, _, uid := newAssistant(t, nil)
	if _, err := a.Chat(context.Background(), ChatRequest{UserID: uid, Message: "   "}); !errors.Is(err, core.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestChat_WebSearch(t *testing.T) {
	gen := &scriptedGen{reply: func(string) (string, error) { return "Accra.", nil }}
	s := &fakeSearcher{results: []search.Result{{Title: "Accra", Snippet: "Capital of Ghana", Link: "https://example.org/accra"}}}
	a, _, uid := newAssistant(t, gen, WithSearcher(s))

	resp, err := a.Chat(context.Background(), ChatRequest{UserID: uid, Message: "What is the capital of Ghana?"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if s.calls != 1 || !resp.SearchUsed {
		t.Fatalf("expected one search, got calls=%d used=%v", s.calls, resp.SearchUsed)
	}
	if p := gen.last(); !strings.Contains(p, "WEB SEARCH RESULTS") || !strings.Contains(p, "Capital of Ghana") {
		t.Errorf("search results missing from prompt:\n%s", p)
	}

	s.calls = 0
	if _, err := a.Chat(context.Background(), ChatRequest{UserID: uid, Message: "thanks, you rock"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if s.calls != 0 {
		t.Errorf("small talk should not search")
	}
}

func TestBuildContext(t *testing.T) {
	a, st, uid := newAssistant(t, nil)
	ctx := context.Background()

	got, err := a.BuildContext(ctx, uid)
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	for _, want := range []string{"Previous Conversations (0):", "No previous conversations", "No active insights", "User Preferences:\n{}"} {
		if !strings.Contains(got, want) {
			t.Errorf("empty context missing %q:\n%s", want, got)
		}
	}

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	step := 0
	st.SetClock(func() time.Time { step++; return base.Add(time.Duration(step) * time.Minute) })
	for _, m := range []string{"first", "second"} {
		if _, err := st.SaveConversation(ctx, core.Conversation{UserID: uid, UserMessage: m, AIResponse: strings.Repeat("x", 150), Context: core.ConversationContext{Page: "chat"}}); err != nil {
			t.Fatalf("save conversation: %v", err)
		}
	}
	if _, err := st.SaveInsight(ctx, core.Insight{UserID: uid, Type: core.InsightTip, Message: "Cook at home"}); err != nil {
		t.Fatalf("save insight: %v", err)
	}
	if err := a.SavePreferences(ctx, uid, core.Preferences{FinancialGoals: []string{"buy a car"}}); err != nil {
		t.Fatalf("save preferences: %v", err)
	}

	got, err = a.BuildContext(ctx, uid)
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if i, j := strings.Index(got, "User: first"), strings.Index(got, "User: second"); i < 0 || j < i {
		t.Errorf("conversations should read oldest first:\n%s", got)
	}
	if !strings.Contains(got, "[chat] User: first\nAI: "+strings.Repeat("x", 100)+"...") {
		t.Errorf("AI response should be cut at 100 characters:\n%s", got)
	}
	if !strings.Contains(got, "- [tip] Cook at home") || !strings.Contains(got, `"buy a car"`) {
		t.Errorf("missing insight or preferences:\n%s", got)
	}
}

func TestSavePreferences_Validates(t *testing.T) {
	a, _, uid := newAssistant(t, nil)
	err := a.SavePreferences(context.Background(), uid, core.Preferences{RiskTolerance: "reckless"})
	if !errors.Is(err, core.ErrInvalidRiskTolerance) {
		t.Fatalf("expected ErrInvalidRiskTolerance, got %v", err)
	}
}

func TestClearAIData(t *testing.T) {
	a, st, uid := newAssistant(t, nil)
	ctx := context.Background()
	_, _ = st.SaveConversation(ctx, core.Conversation{UserID: uid, UserMessage: "hi", AIResponse: "hello"})
	ins, _ := st.SaveInsight(ctx, core.Insight{UserID: uid, Type: core.InsightWarning, Message: "over budget"})
	if err := a.AcknowledgeInsight(ctx, uid, ins.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := a.ClearAIData(ctx, uid); err != nil {
		t.Fatalf("clear: %v", err)
	}
	h, _ := a.History(ctx, uid, 0)
	all, _ := a.Insights(ctx, uid, false)
	if len(h) != 0 || len(all) != 0 {
		t.Fatalf("expected nothing left, got %d conversations and %d insights", len(h), len(all))
	}
}

func TestAdvice(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		err      error
		wantRisk RiskLevel
		want     string
	}{
		{
			name:     "json reply",
			reply:    "Sure!\n{\"advice\": \"Save more.\", \"insights\": [\"a\"], \"actionItems\": [\"b\"], \"riskLevel\": \"high\"}",
			wantRisk: RiskHigh,
			want:     "Save more.",
		},
		{
			name:     "plain text reply",
			reply:    "You are doing fine overall.",
			wantRisk: RiskMedium,
			want:     "You are doing fine overall.",
		},
		{
			name:     "model failure",
			err:      errors.New("quota"),
			wantRisk: RiskLow,
			want:     "Aim to save at least 20% of your income.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGen{reply: func(string) (string, error) { return tt.reply, tt.err }}
			a, st, uid := newAssistant(t, gen)
			seed(t, st, uid)

			got, err := a.Advice(context.Background(), uid)
			if err != nil {
				t.Fatalf("Advice: %v", err)
			}
			if got.RiskLevel != tt.wantRisk || !strings.Contains(got.Advice, tt.want) {
				t.Errorf("unexpected advice: %+v", got)
			}
			if len(got.Insights) == 0 || len(got.ActionItems) == 0 {
				t.Errorf("advice without insights or actions: %+v", got)
			}
			if tt.err == nil && !strings.Contains(gen.last(), "Savings Rate: 91.0%") {
				t.Errorf("prompt missing savings rate:\n%s", gen.last())
			}
		})
	}
}

func TestFallbackAdviceRisk(t *testing.T) {
	m := func(c int64) core.Money { return core.Money{Cents: c} }
	tests := []struct {
		stats core.Stats
		want  RiskLevel
	}{
		{core.Stats{TotalIncome: m(100), TotalExpenses: m(200), Balance: m(-100)}, RiskHigh},
		{core.Stats{TotalIncome: m(100), TotalExpenses: m(90), Balance: m(10)}, RiskMedium},
		{core.Stats{TotalIncome: m(100), TotalExpenses: m(50), Balance: m(50)}, RiskLow},
	}
	for _, tt := range tests {
		if got := fallbackAdvice(snapshot{stats: tt.stats}).RiskLevel; got != tt.want {
			t.Errorf("fallbackAdvice(%+v) = %s, want %s", tt.stats, got, tt.want)
		}
	}
}

func TestBudgetSuggestions(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  int
	}{
		{"json array", `[{"category": "Rent", "suggestedAmount": "1500", "reason": "housing"}]`, nil, 1},
		{"no json", "Spend less on food.", nil, 3},
		{"broken json", `[{"category": }]`, nil, 0},
		{"model failure", "", errors.New("down"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGen{reply: func(string) (string, error) { return tt.reply, tt.err }}
			a, st, uid := newAssistant(t, gen)
			seed(t, st, uid)

			got, err := a.BudgetSuggestions(context.Background(), uid)
			if err != nil {
				t.Fatalf("BudgetSuggestions: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d suggestions, want %d: %+v", len(got), tt.want, got)
			}
			if tt.name == "json array" && got[0].SuggestedAmount.Float() != 1500 {
				t.Errorf("amount = %v", got[0].SuggestedAmount)
			}
			if tt.name == "no json" && got[0].SuggestedAmount.Float() != 1250 {
				t.Errorf("food share of 5000 should be 1250, got %v", got[0].SuggestedAmount)
			}
		})
	}
}

func TestProactiveSuggestions(t *testing.T) {
	gen := &scriptedGen{reply: func(string) (string, error) { return `Here: ["Cook more", "Walk", "Save 10%"]`, nil }}
	a, _, uid := newAssistant(t, gen)
	got, err := a.ProactiveSuggestions(context.Background(), uid)
	if err != nil || len(got) != 3 || got[0] != "Cook more" {
		t.Fatalf("unexpected suggestions %v %v", got, err)
	}

	gen.reply = func(string) (string, error) { return "", errors.New("down") }
	got, _ = a.ProactiveSuggestions(context.Background(), uid)
	if len(got) != 0 {
		t.Fatalf("model failure should give no suggestions, got %v", got)
	}
}

func TestAnalyzeTransaction(t *testing.T) {
	gen := &scriptedGen{reply: func(string) (string, error) { return "", errors.New("down") }}
	a, st, uid := newAssistant(t, gen)
	tx, _ := st.AddTransaction(context.Background(), core.Transaction{UserID: uid, Type: core.Expense, Title: "Shoes", Amount: core.Money{Cents: 30000}, Category: "Clothing", Date: core.Today()})

	got, err := a.AnalyzeTransaction(context.Background(), uid, tx.ID)
	if err != nil || got != "Transaction recorded successfully." {
		t.Fatalf("unexpected analysis %q %v", got, err)
	}
	if _, err := a.AnalyzeTransaction(context.Background(), uid, tx.ID+100); err == nil {
		t.Fatal("expected error for unknown transaction")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		u    core.UserProfile
		want string
	}{
		{core.UserProfile{Name: "Kwame", Email: "k@x.com"}, "Kwame"},
		{core.UserProfile{Email: "esi.mensah@x.com"}, "esi.mensah"},
		{core.UserProfile{}, "friend"},
	}
	for _, tt := range tests {
		if got := displayName(tt.u); got != tt.want {
			t.Errorf("displayName(%+v) = %q, want %q", tt.u, got, tt.want)
		}
	}
}
