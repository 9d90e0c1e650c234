package http

import (
	"time"

	"stephly/internal/analysis"
	"stephly/internal/core"
)

// JSON views of domain values. Amounts are sent in cedis with two decimals
// and in cents so clients never have to round.

type moneyView struct {
	Amount    float64 `json:"amount"`
	Cents     int64   `json:"cents"`
	Formatted string  `json:"formatted"`
}

func newMoneyView(m core.Money) moneyView {
	return moneyView{Amount: m.Float(), Cents: m.Cents, Formatted: m.String()}
}

type userView struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PreferredCurrency string    `json:"preferredCurrency"`
	MonthlyIncome     moneyView `json:"monthlyIncome"`
	CreatedAt         time.Time `json:"createdAt"`
}

func newUserView(u core.UserProfile) userView {
	return userView{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		PreferredCurrency: u.PreferredCurrency,
		MonthlyIncome:     newMoneyView(u.MonthlyIncome),
		CreatedAt:         u.CreatedAt,
	}
}

type transactionView struct {
	ID       int64     `json:"id"`
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	Amount   moneyView `json:"amount"`
	Category string    `json:"category"`
	Date     string    `json:"date"`
	Note     string    `json:"note,omitempty"`
	Version  int64     `json:"version"`
}

func newTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:       t.ID,
		Type:     string(t.Type),
		Title:    t.Title,
		Amount:   newMoneyView(t.Amount),
		Category: t.Category,
		Date:     t.Date.String(),
		Note:     t.Note,
		Version:  t.Version,
	}
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionView(t))
	}
	return out
}

type budgetView struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Limit       moneyView `json:"limit"`
	Spent       moneyView `json:"spent"`
	Remaining   moneyView `json:"remaining"`
	UsedPercent int       `json:"usedPercent"`
	Month       int       `json:"month"`
	Year        int       `json:"year"`
}

func newBudgetView(b core.Budget) budgetView {
	return budgetView{
		ID:          b.ID,
		Category:    b.Category,
		Limit:       newMoneyView(b.Limit),
		Spent:       newMoneyView(b.Spent),
		Remaining:   newMoneyView(b.Remaining()),
		UsedPercent: b.UsedPercent(),
		Month:       b.Month,
		Year:        b.Year,
	}
}

func newBudgetViews(budgets []core.Budget) []budgetView {
	out := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, newBudgetView(b))
	}
	return out
}

type todoView struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Amount    moneyView `json:"amount"`
	Category  string    `json:"category"`
	DueDate   string    `json:"dueDate,omitempty"`
	Note      string    `json:"note,omitempty"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

func newTodoView(t core.Todo) todoView {
	return todoView{
		ID:        t.ID,
		Title:     t.Title,
		Amount:    newMoneyView(t.Amount),
		Category:  t.Category,
		DueDate:   t.DueDate.String(),
		Note:      t.Note,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
	}
}

type statsView struct {
	TotalIncome   moneyView `json:"totalIncome"`
	TotalExpenses moneyView `json:"totalExpenses"`
	Balance       moneyView `json:"balance"`
}

func newStatsView(s core.Stats) statsView {
	return statsView{
		TotalIncome:   newMoneyView(s.TotalIncome),
		TotalExpenses: newMoneyView(s.TotalExpenses),
		Balance:       newMoneyView(s.Balance),
	}
}

type conversationView struct {
	ID          int64     `json:"id"`
	UserMessage string    `json:"userMessage"`
	AIResponse  string    `json:"aiResponse"`
	Page        string    `json:"page,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type insightView struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

type affordabilityView struct {
	analysis.Affordability
	SuggestedAmount moneyView `json:"suggestedAmount"`
}

type patternView struct {
	analysis.SpendingPattern
	Amount moneyView `json:"amount"`
}

type allocationView struct {
	Label  string    `json:"label"`
	Amount moneyView `json:"amount"`
}

type predictionView struct {
	analysis.Prediction
	ProjectedAmount moneyView `json:"projectedAmount"`
}

// summaryView is the cached analytics payload for one user and month.
type summaryView struct {
	Year        int                      `json:"year"`
	Month       int                      `json:"month"`
	Stats       statsView                `json:"stats"`
	MonthStats  statsView                `json:"monthStats"`
	Budgets     []budgetView             `json:"budgets"`
	Patterns    []patternView            `json:"patterns"`
	Health      analysis.FinancialHealth `json:"health"`
	Allocation  []allocationView         `json:"allocation"`
	Predictions []predictionView         `json:"predictions"`
}
