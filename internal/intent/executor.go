package intent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/store"
)

type (
	BudgetSetter interface {
		Set(ctx context.Context, b core.Budget) (core.Budget, error)
	}
	TransactionAdder interface {
		Add(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}
	TodoAdder interface {
		Add(ctx context.Context, t core.Todo) (core.Todo, error)
	}
)

const (
	msgDeleteTransaction = "To delete a specific transaction, please go to the Recent Transactions section on your dashboard and click the delete icon (🗑️) next to the transaction you want to remove. I can't identify specific transactions from your description alone."
	msgEditTransaction   = "To edit a transaction, please go to the Recent Transactions section on your dashboard and click the edit icon (✏️) next to the transaction. This will let you modify the amount, category, or details."
	msgDeleteTodo        = "To delete a planned expense, go to the TODO page and click the delete icon (🗑️) next to the item you want to remove."
	msgViewReport        = "I'll show you the reports. Navigate to the Analytics page to see detailed insights!"
	msgUnknownAction     = "I'm not sure how to help with that action yet."
	msgActionFailed      = "Sorry, I couldn't complete that action. Please try again."
	msgBudgetFailed      = "Sorry, I couldn't create the budget. Please try again or create it manually."
	msgTransactionFailed = "Sorry, I couldn't add the transaction. Please try again or add it manually."
	msgTodoNeedsAmount   = "I'd love to add that to your TODOs! 📝 But I need the amount. For example: 'Create a todo for apple and banana 200'"
	msgTodoFailed        = "Sorry, I couldn't add the TODO. Please try again."
)

// Executor carries out detected actions through the services.
type Executor struct {
	budgets      BudgetSetter
	transactions TransactionAdder
	todos        TodoAdder
	memory       store.MemoryRepository
	logger       *log.Logger
	now          func() time.Time
}

func NewExecutor(budgets BudgetSetter, transactions TransactionAdder, todos TodoAdder, memory store.MemoryRepository, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Executor{
		budgets:      budgets,
		transactions: transactions,
		todos:        todos,
		memory:       memory,
		logger:       logger.WithComponent(log.ComponentIntent),
		now:          time.Now,
	}
}

// Execute runs action for userID. Failures are reported in the Result, never
// as an error.
func (e *Executor) Execute(ctx context.Context, action Action, userID int64) Result {
	res := e.execute(ctx, action, userID)
	res.Action = &action
	e.logger.InfoContext(ctx, "Action executed",
		log.FieldUserID, userID,
		log.FieldIntent, string(action.Type),
		log.FieldSuccess, res.Success)
	return res
}

func (e *Executor) execute(ctx context.Context, action Action, userID int64) Result {
	switch action.Type {
	case CreateBudget:
		return e.createBudget(ctx, action.Data, userID)
	case AddTransaction:
		return e.addTransaction(ctx, action.Data, userID)
	case CreateTodo:
		return e.createTodo(ctx, action.Data, userID)
	case DeleteTransaction:
		return Result{Message: msgDeleteTransaction}
	case EditTransaction:
		return Result{Message: msgEditTransaction}
	case DeleteTodo:
		return Result{Message: msgDeleteTodo}
	case ViewReport:
		return Result{Message: msgViewReport, Success: true}
	case SetGoal:
		return e.setGoal(ctx, action.Data, userID)
	default:
		return Result{Message: msgUnknownAction}
	}
}

// amountText renders a major-unit amount without trailing zeros, like 500
// or 12.5.
func amountText(m core.Money) string {
	return strconv.FormatFloat(m.Float(), 'f', -1, 64)
}

func (e *Executor) createBudget(ctx context.Context, d Data, userID int64) Result {
	now := e.now()
	month, year := d.Month.Int(), d.Year.Int()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = "General"
	}

	b, err := e.budgets.Set(ctx, core.Budget{
		UserID:   userID,
		Category: category,
		Limit:    core.FromFloat(d.Amount.Float()),
		Month:    month,
		Year:     year,
	})
	if err != nil {
		e.logFailure(ctx, "create budget", userID, err)
		return Result{Message: msgBudgetFailed}
	}

	return Result{
		Message: fmt.Sprintf("✅ Budget created successfully!\n\n📊 Category: %s\n💰 Limit: %s%s\n📅 Period: %d/%d\n\nI'll help you track your spending against this budget!",
			b.Category, core.CurrencySymbol, amountText(b.Limit), b.Month, b.Year),
		Success: true,
	}
}

func (e *Executor) addTransaction(ctx context.Context, d Data, userID int64) Result {
	now := e.now().UTC()
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if d.Date != "" {
		if parsed, err := core.ParseDate(d.Date); err == nil {
			date = parsed
		}
	}

	typ := core.TransactionType(strings.ToLower(strings.TrimSpace(d.Type)))
	if !typ.IsValid() {
		typ = core.Expense
	}
	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = "Other"
	}

	t, err := e.transactions.Add(ctx, core.Transaction{
		UserID:   userID,
		Type:     typ,
		Title:    d.title("Transaction"),
		Amount:   core.FromFloat(d.Amount.Float()),
		Category: category,
		Date:     date,
		Note:     d.Note,
	})
	if err != nil {
		e.logFailure(ctx, "add transaction", userID, err)
		return Result{Message: msgTransactionFailed}
	}

	emoji, trend := "💸", "📉"
	if t.Type == core.Income {
		emoji, trend = "💰", "📈"
	}
	typeName := string(t.Type)
	typeName = strings.ToUpper(typeName[:1]) + typeName[1:]

	return Result{
		Message: fmt.Sprintf("%s Transaction added successfully!\n\n%s Type: %s\n💵 Amount: %s%s\n📁 Category: %s\n📝 Title: %s\n📅 Date: %s\n\nYour balance has been updated!",
			emoji, trend, typeName, core.CurrencySymbol, amountText(t.Amount), t.Category, t.Title, t.Date.Format("1/2/2006")),
		Success: true,
	}
}

func (e *Executor) createTodo(ctx context.Context, d Data, userID int64) Result {
	amount := core.FromFloat(d.Amount.Float())
	if amount.Cents <= 0 {
		return Result{Message: msgTodoNeedsAmount}
	}
	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = "Other"
	}

	t, err := e.todos.Add(ctx, core.Todo{
		UserID:   userID,
		Title:    d.title("Planned expense"),
		Amount:   amount,
		Category: category,
		Note:     d.Note,
	})
	if err != nil {
		e.logFailure(ctx, "create todo", userID, err)
		return Result{Message: msgTodoFailed}
	}

	return Result{
		Message: fmt.Sprintf("📝 Added to your planned expenses!\n\n✅ TODO: %s\n💰 Amount: %s%s\n📁 Category: %s\n\nCheck it off when paid, and it'll be added to your expenses automatically! 🎯",
			t.Title, core.CurrencySymbol, amountText(t.Amount), t.Category),
		Success: true,
	}
}

// setGoal appends the goal to the user's remembered preferences.
func (e *Executor) setGoal(ctx context.Context, d Data, userID int64) Result {
	goal := strings.TrimSpace(d.Goal)
	if goal == "" || e.memory == nil {
		return Result{Message: msgUnknownAction}
	}

	m, err := e.memory.GetMemory(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		e.logFailure(ctx, "load memory", userID, err)
		return Result{Message: msgActionFailed}
	}
	m.UserID = userID
	m.Preferences.FinancialGoals = append(m.Preferences.FinancialGoals, goal)
	if err := e.memory.SaveMemory(ctx, m); err != nil {
		e.logFailure(ctx, "save goal", userID, err)
		return Result{Message: msgActionFailed}
	}

	return Result{
		Message: fmt.Sprintf("Great! I've noted your goal: %s. I'll help you track progress towards it!", goal),
		Success: true,
	}
}

func (e *Executor) logFailure(ctx context.Context, op string, userID int64, err error) {
	e.logger.ErrorContext(ctx, "Action failed",
		log.FieldOperation, op,
		log.FieldUserID, userID,
		log.FieldError, err)
}
