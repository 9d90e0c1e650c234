package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stephly/internal/core"
	"stephly/internal/intent"
	"stephly/internal/llm"
	"stephly/internal/log"
	"stephly/internal/store"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type FinancialAdvice struct {
	Advice      string    `json:"advice"`
	Insights    []string  `json:"insights"`
	ActionItems []string  `json:"actionItems"`
	RiskLevel   RiskLevel `json:"riskLevel"`
}

type BudgetSuggestion struct {
	Category        string        `json:"category"`
	SuggestedAmount intent.Number `json:"suggestedAmount"`
	Reason          string        `json:"reason"`
}

// snapshot is the financial picture the advice prompts are built from.
type snapshot struct {
	stats   core.Stats
	income  core.Money
	budgets []core.Budget
	top     []core.CategoryAmount
}

func (a *Assistant) snapshot(ctx context.Context, userID int64) (snapshot, error) {
	txs, err := a.transactions.List(ctx, userID, store.DefaultTransactionLimit)
	if err != nil {
		return snapshot{}, err
	}
	budgets, err := a.budgets.List(ctx, userID, 0, 0)
	if err != nil {
		return snapshot{}, err
	}
	s := snapshot{
		stats:   core.ComputeStats(txs),
		budgets: budgets,
		top:     core.ExpenseTotals(txs),
	}
	if len(s.top) > 5 {
		s.top = s.top[:5]
	}
	// Transaction income unless the profile states a monthly figure.
	s.income = s.stats.TotalIncome
	u, err := a.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		if u.MonthlyIncome.Cents > 0 {
			s.income = u.MonthlyIncome
		}
	case !errors.Is(err, store.ErrNotFound):
		return snapshot{}, fmt.Errorf("load profile: %w", err)
	}
	return s, nil
}

func ratio(part, whole core.Money) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	return float64(part.Cents) * 100 / float64(whole.Cents)
}

func (s snapshot) categoryLines() string {
	lines := make([]string, 0, len(s.top))
	for _, c := range s.top {
		lines = append(lines, fmt.Sprintf("- %s: %s", c.Name, c.Amount))
	}
	return strings.Join(lines, "\n")
}

func advicePrompt(s snapshot) string {
	savings := s.stats.TotalIncome.Sub(s.stats.TotalExpenses)
	return fmt.Sprintf(`You are a professional financial advisor in Ghana. Analyze this user's financial situation and provide personalized advice.

Financial Data:
- Balance: %s
- Monthly Income: %s
- Monthly Expenses: %s
- Savings Rate: %.1f%%
- Expense Ratio: %.1f%%
- Active Budgets: %d

Top Spending Categories:
%s

Provide:
1. A brief personalized advice (2-3 sentences)
2. 3 key insights about their spending
3. 3 actionable steps they can take
4. Risk level (low/medium/high)

Format your response as JSON:
{
  "advice": "your advice here",
  "insights": ["insight 1", "insight 2", "insight 3"],
  "actionItems": ["action 1", "action 2", "action 3"],
  "riskLevel": "low|medium|high"
}`,
		s.stats.Balance, s.income, s.stats.TotalExpenses,
		ratio(savings, s.stats.TotalIncome), ratio(s.stats.TotalExpenses, s.stats.TotalIncome),
		len(s.budgets), s.categoryLines())
}

// Advice asks the model for a personalised assessment. A reply without JSON
// keeps its text with generic insights; a model failure yields canned
// advice with a risk level computed from the numbers.
func (a *Assistant) Advice(ctx context.Context, userID int64) (FinancialAdvice, error) {
	s, err := a.snapshot(ctx, userID)
	if err != nil {
		return FinancialAdvice{}, err
	}

	reply, err := a.gen.Generate(ctx, advicePrompt(s))
	if err != nil {
		a.logger.WarnContext(ctx, "Advice generation failed", log.FieldUserID, userID, log.FieldError, err)
		return fallbackAdvice(s), nil
	}

	var adv FinancialAdvice
	if err := llm.DecodeJSON(reply, &adv); err != nil || adv.Advice == "" {
		return FinancialAdvice{
			Advice:      truncate(reply, 300),
			Insights:    []string{"Review your spending patterns", "Set realistic budgets", "Track expenses regularly"},
			ActionItems: []string{"Create a monthly budget", "Reduce unnecessary expenses", "Build an emergency fund"},
			RiskLevel:   RiskMedium,
		}, nil
	}
	switch adv.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		adv.RiskLevel = RiskMedium
	}
	return adv, nil
}

func fallbackAdvice(s snapshot) FinancialAdvice {
	risk := RiskLow
	switch {
	case s.stats.Balance.Cents < 0:
		risk = RiskHigh
	case s.stats.TotalExpenses.Cents*10 > s.stats.TotalIncome.Cents*8:
		risk = RiskMedium
	}
	return FinancialAdvice{
		Advice:      "Focus on tracking your expenses and creating realistic budgets. Aim to save at least 20% of your income.",
		Insights:    []string{"Your financial data is being analyzed", "Consider reviewing your spending habits", "Building an emergency fund is crucial"},
		ActionItems: []string{"Set up automatic savings", "Review and cut unnecessary subscriptions", "Create category-based budgets"},
		RiskLevel:   risk,
	}
}

// BudgetSuggestions proposes category budgets sized to the user's income.
// A model failure or malformed JSON yields none; a reply without any JSON
// yields the 25/15/20 defaults.
func (a *Assistant) BudgetSuggestions(ctx context.Context, userID int64) ([]BudgetSuggestion, error) {
	s, err := a.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Based on this financial data, suggest optimal budget allocations for a user in Ghana:

Monthly Income: %s
Current Expenses by Category:
%s

Suggest 4-6 budget categories with recommended amounts. Consider Ghana's cost of living.
Format as JSON array: [{"category": "name", "suggestedAmount": number, "reason": "why"}]`,
		s.income, s.categoryLines())

	reply, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.WarnContext(ctx, "Budget suggestion generation failed", log.FieldUserID, userID, log.FieldError, err)
		return []BudgetSuggestion{}, nil
	}

	raw, ok := llm.ExtractJSON(reply)
	if !ok || !strings.HasPrefix(raw, "[") {
		return defaultBudgetSuggestions(s.income), nil
	}
	var out []BudgetSuggestion
	if err := llm.DecodeJSON(raw, &out); err != nil {
		a.logger.WarnContext(ctx, "Malformed budget suggestions", log.FieldUserID, userID, log.FieldError, err)
		return []BudgetSuggestion{}, nil
	}
	return out, nil
}

func defaultBudgetSuggestions(income core.Money) []BudgetSuggestion {
	share := func(pct int64) intent.Number {
		return intent.Number(core.Money{Cents: income.Cents * pct / 100}.Float())
	}
	return []BudgetSuggestion{
		{Category: "Food & Groceries", SuggestedAmount: share(25), Reason: "Essential expenses"},
		{Category: "Transportation", SuggestedAmount: share(15), Reason: "Commute and travel"},
		{Category: "Savings", SuggestedAmount: share(20), Reason: "Build emergency fund"},
	}
}

// ProactiveSuggestions returns three short tips for the user's situation.
func (a *Assistant) ProactiveSuggestions(ctx context.Context, userID int64) ([]string, error) {
	s, err := a.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	memory, err := a.BuildContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Based on this user's financial situation and history, generate 3 proactive, actionable suggestions.

%s

Current Status:
- Balance: %s
- Income: %s
- Expenses: %s
- Active Budgets: %d

Generate 3 brief, specific suggestions (one line each) that would help improve their financial health.
Format as JSON array: ["suggestion 1", "suggestion 2", "suggestion 3"]`,
		memory, s.stats.Balance, s.stats.TotalIncome, s.stats.TotalExpenses, len(s.budgets))

	reply, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.WarnContext(ctx, "Suggestion generation failed", log.FieldUserID, userID, log.FieldError, err)
		return []string{}, nil
	}

	raw, ok := llm.ExtractJSON(reply)
	if !ok || !strings.HasPrefix(raw, "[") {
		return []string{"Review your spending patterns", "Set up a monthly budget", "Track your expenses regularly"}, nil
	}
	var out []string
	if err := llm.DecodeJSON(raw, &out); err != nil {
		return []string{}, nil
	}
	return out, nil
}

// AnalyzeTransaction comments on one transaction in the light of the user's
// income and balance.
func (a *Assistant) AnalyzeTransaction(ctx context.Context, userID, transactionID int64) (string, error) {
	t, err := a.transactions.Get(ctx, userID, transactionID)
	if err != nil {
		return "", err
	}
	s, err := a.snapshot(ctx, userID)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Analyze this transaction and provide a brief insight (1-2 sentences):

Transaction: %s
Amount: %s
Category: %s
Type: %s
Date: %s

User's Monthly Income: %s
Current Balance: %s

Is this a reasonable expense? Any concerns or tips?`,
		t.Title, t.Amount, t.Category, t.Type, t.Date, s.income, s.stats.Balance)

	reply, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.WarnContext(ctx, "Transaction analysis failed", log.FieldUserID, userID, log.FieldTransactionID, transactionID, log.FieldError, err)
		return "Transaction recorded successfully.", nil
	}
	return strings.TrimSpace(reply), nil
}
