package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"stephly/internal/core"
	"stephly/internal/intent"
	"stephly/internal/log"
	"stephly/internal/search"
	"stephly/internal/store"
)

const fallbackMessage = `Hi! I'm Stephly AI. 🤖

⚠️ The AI model is not available right now, so I can't chat freely.

Meanwhile, I can still help you! Try:
• "Set budget of 500 for food"
• "Paid 50 for transport"
• "Plan to pay rent 1200"

The budget, transaction and TODO features will work!`

type ChatRequest struct {
	UserID  int64
	Message string
	Page    string
}

type ChatResponse struct {
	Message        string         `json:"message"`
	Action         *intent.Action `json:"action,omitempty"`
	ActionExecuted bool           `json:"actionExecuted"`
	Success        bool           `json:"success"`
	IsFinancial    bool           `json:"isFinancial"`
	Confidence     float64        `json:"confidence"`
	SearchUsed     bool           `json:"searchUsed"`
	Suggestions    []string       `json:"suggestions"`
	Stats          core.Stats     `json:"-"`
}

// chatData is everything gathered before prompting the model.
type chatData struct {
	profile      core.UserProfile
	transactions []core.Transaction
	budgets      []core.Budget
	memory       string
	results      []search.Result
}

// Chat answers one message. Action requests are executed directly; other
// messages go to the model. Only model replies are stored as conversations.
func (a *Assistant) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return ChatResponse{}, core.ErrEmptyMessage
	}

	action := a.detector.Detect(ctx, msg)
	if action.Type != intent.None {
		res := a.executor.Execute(ctx, action, req.UserID)
		stats, err := a.transactions.Stats(ctx, req.UserID)
		if err != nil {
			return ChatResponse{}, err
		}
		return ChatResponse{
			Message:        res.Message,
			Action:         res.Action,
			ActionExecuted: true,
			Success:        res.Success,
			IsFinancial:    true,
			Confidence:     1,
			Stats:          stats,
		}, nil
	}

	data, err := a.gather(ctx, req.UserID, msg)
	if err != nil {
		return ChatResponse{}, err
	}
	stats := core.ComputeStats(data.transactions)

	reply, err := a.gen.Generate(ctx, chatPrompt(req, data, stats))
	if err != nil {
		a.logger.WarnContext(ctx, "Model unavailable, using fallback reply", log.FieldUserID, req.UserID, log.FieldError, err)
		return ChatResponse{
			Message:     fallbackMessage,
			Suggestions: []string{"Create a budget", "Add a transaction", "Plan an expense"},
			Stats:       stats,
		}, nil
	}
	reply = strings.TrimSpace(reply)

	if _, err := a.store.SaveConversation(ctx, core.Conversation{
		UserID:      req.UserID,
		UserMessage: msg,
		AIResponse:  reply,
		Context: core.ConversationContext{
			Page:               req.Page,
			Balance:            stats.Balance,
			RecentTransactions: len(data.transactions),
		},
	}); err != nil {
		a.logger.ErrorContext(ctx, "Failed to save conversation", log.FieldUserID, req.UserID, log.FieldError, err)
	}

	return ChatResponse{
		Message:     reply,
		Success:     true,
		IsFinancial: isFinancial(msg),
		Confidence:  0.9,
		SearchUsed:  len(data.results) > 0,
		Suggestions: []string{},
		Stats:       stats,
	}, nil
}

// gather loads the prompt inputs concurrently.
func (a *Assistant) gather(ctx context.Context, userID int64, msg string) (chatData, error) {
	var d chatData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		d.profile, err = a.store.GetUser(gctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		d.transactions, err = a.transactions.List(gctx, userID, store.DefaultTransactionLimit)
		return err
	})
	g.Go(func() error {
		var err error
		d.budgets, err = a.budgets.List(gctx, userID, 0, 0)
		return err
	})
	g.Go(func() error {
		var err error
		d.memory, err = a.BuildContext(gctx, userID)
		return err
	})
	if a.searcher != nil && search.NeedsWebSearch(msg) {
		g.Go(func() error {
			d.results = a.searcher.Search(gctx, msg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return chatData{}, fmt.Errorf("gather chat context: %w", err)
	}
	return d, nil
}

func displayName(u core.UserProfile) string {
	if u.Name != "" {
		return u.Name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return "friend"
}

func isFinancial(msg string) bool {
	lower := strings.ToLower(msg)
	for _, k := range []string{"money", "budget", "expense", "save"} {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func recentLines(txs []core.Transaction, n int) string {
	if len(txs) > n {
		txs = txs[:n]
	}
	lines := make([]string, 0, len(txs))
	for _, t := range txs {
		sign := "-"
		if t.Type == core.Income {
			sign = "+"
		}
		lines = append(lines, fmt.Sprintf("%s%s - %s (%s)", sign, t.Amount, t.Title, t.Category))
	}
	return strings.Join(lines, "\n")
}

func budgetLines(budgets []core.Budget) string {
	lines := make([]string, 0, len(budgets))
	for _, b := range budgets {
		lines = append(lines, fmt.Sprintf("%s: %s/%s (%d%%)", b.Category, b.Spent, b.Limit, b.UsedPercent()))
	}
	return strings.Join(lines, "\n")
}

func chatPrompt(req ChatRequest, d chatData, stats core.Stats) string {
	name := displayName(d.profile)

	var b strings.Builder
	fmt.Fprintf(&b, `You are Stephly, a smart AI assistant with TWO superpowers! 💰🧠
I help with money AND everything else!

**WHO YOU ARE:**
- Primary role: Budget assistant for %[1]s
- Secondary role: General AI assistant
- You can discuss ANY topic: science, history, coding, entertainment, advice, facts, etc.
- You're knowledgeable, helpful, and conversational

**Important: The user's name is %[1]s. Only use their name in your FIRST message if this is a new conversation. Don't repeat it in follow-up messages.**

**FINANCIAL POWERS (when discussing money):**
- Create transactions with ANY category (Gym, Haircut, Netflix, Uber, etc.)
- Create TODOs for planned expenses ("plan to", "need to pay", "upcoming")
- Help users edit/delete transactions (guide them to ✏️ and 🗑️ icons)
- Budget advice and financial analysis
- Custom categories allowed!

**YOUR STYLE:**
- Keep responses SHORT (2-4 sentences for budget, longer if explaining complex topics)
- Be conversational and natural like a friend
- Use emojis occasionally 😊
- Explain simply - no unnecessary jargon
- DON'T repeat the user's name in every message
`, name)

	if block := search.FormatResults(d.results); block != "" {
		fmt.Fprintf(&b, "\n🔍 **WEB SEARCH RESULTS (Use this to answer!):**\n%s\n⚠️ Answer based ONLY on these web results!\n", block)
	}

	fmt.Fprintf(&b, "\n**%s's Money:**\nBalance: %s | Income: %s | Expenses: %s\n", name, stats.Balance, stats.TotalIncome, stats.TotalExpenses)
	if budgets := budgetLines(d.budgets); budgets != "" {
		fmt.Fprintf(&b, "Budgets this month:\n%s\n", budgets)
	}
	if recent := recentLines(d.transactions, 5); recent != "" {
		fmt.Fprintf(&b, "\nRecent: %s\n", truncate(recent, 100))
	}
	if d.memory != "" {
		fmt.Fprintf(&b, "Past: %s...\n", truncate(d.memory, 100))
	}
	if req.Page != "" {
		fmt.Fprintf(&b, "Current page: %s\n", req.Page)
	}

	fmt.Fprintf(&b, "\nUser: %s\nStephly:", req.Message)
	return b.String()
}
