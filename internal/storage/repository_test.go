package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stephly/internal/core"
	"stephly/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b = ? LIMIT ?`
	if got := SQLite.Rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	want := `SELECT * FROM t WHERE a = $1 AND b = $2 LIMIT $3`
	if got := Postgres.Rebind(q); got != want {
		t.Errorf("postgres rebind = %s, want %s", got, want)
	}
}

func TestMonthRange(t *testing.T) {
	start, end := monthRange(2024, 12)
	if start != "2024-12-01" || end != "2025-01-01" {
		t.Fatalf("unexpected range %s..%s", start, end)
	}
}

func TestRepository_Users(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, core.UserProfile{Name: "Kofi", Email: "Kofi@Example.com", PreferredCurrency: "USD"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := repo.CreateUser(ctx, core.UserProfile{Name: "Dup", Email: "kofi@example.com"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	u.MonthlyIncome = core.Money{Cents: 500000}
	u.Name = "Kofi A."
	updated, err := repo.UpdateUser(ctx, u)
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.MonthlyIncome.Cents != 500000 || updated.Name != "Kofi A." {
		t.Fatalf("unexpected user: %+v", updated)
	}

	byEmail, err := repo.GetUserByEmail(ctx, "KOFI@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("get by email: %+v %v", byEmail, err)
	}
}

func TestRepository_Transactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	add := func(uid int64, typ core.TransactionType, cents int64, cat string, d core.Date) core.Transaction {
		t.Helper()
		tx, err := repo.AddTransaction(ctx, core.Transaction{UserID: uid, Type: typ, Title: "x", Amount: core.Money{Cents: cents}, Category: cat, Date: d})
		if err != nil {
			t.Fatalf("add transaction: %v", err)
		}
		return tx
	}

	jan := add(1, core.Expense, 1000, "Food", core.NewDate(2025, 1, 31))
	feb := add(1, core.Income, 90000, "Salary", core.NewDate(2025, 2, 1))
	add(2, core.Expense, 50, "Food", core.NewDate(2025, 2, 2))

	list, err := repo.ListTransactions(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != feb.ID || list[1].ID != jan.ID {
		t.Fatalf("unexpected list order: %+v", list)
	}
	if list[1].Date.String() != "2025-01-31" {
		t.Fatalf("date round-trip failed: %s", list[1].Date)
	}

	month, err := repo.ListTransactionsInMonth(ctx, 1, 2025, 1)
	if err != nil || len(month) != 1 || month[0].ID != jan.ID {
		t.Fatalf("unexpected month list: %+v %v", month, err)
	}

	jan.Amount = core.Money{Cents: 1500}
	updated, err := repo.UpdateTransaction(ctx, jan)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount.Cents != 1500 || updated.Version != 2 {
		t.Fatalf("unexpected updated transaction: %+v", updated)
	}

	if err := repo.DeleteTransaction(ctx, 2, jan.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete from other user should be not found, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, 1, jan.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, 1, jan.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepository_BudgetUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b1, err := repo.SetBudget(ctx, core.Budget{UserID: 1, Category: "Food", Limit: core.Money{Cents: 10000}, Month: 4, Year: 2025})
	if err != nil {
		t.Fatalf("set budget: %v", err)
	}
	b2, err := repo.SetBudget(ctx, core.Budget{UserID: 1, Category: "Food", Limit: core.Money{Cents: 20000}, Month: 4, Year: 2025})
	if err != nil {
		t.Fatalf("set budget again: %v", err)
	}
	if b1.ID != b2.ID {
		t.Fatalf("expected upsert to keep id %d, got %d", b1.ID, b2.ID)
	}
	got, err := repo.GetBudget(ctx, 1, "Food", 4, 2025)
	if err != nil || got.Limit.Cents != 20000 {
		t.Fatalf("unexpected budget: %+v %v", got, err)
	}
	list, _ := repo.ListBudgets(ctx, 1, 4, 2025)
	if len(list) != 1 {
		t.Fatalf("expected one budget, got %d", len(list))
	}
}

func TestRepository_TodosAndTx(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	todo, err := repo.AddTodo(ctx, core.Todo{UserID: 1, Title: "Rent", Amount: core.Money{Cents: 70000}, Category: "Housing", DueDate: core.NewDate(2025, 6, 1)})
	if err != nil {
		t.Fatalf("add todo: %v", err)
	}

	due, err := repo.ListDueTodos(ctx, core.NewDate(2025, 6, 1))
	if err != nil || len(due) != 1 {
		t.Fatalf("expected one due todo, got %v %v", due, err)
	}

	boom := errors.New("boom")
	err = repo.WithTx(ctx, func(s store.Store) error {
		if _, err := s.AddTransaction(ctx, todo.ToTransaction(core.NewDate(2025, 6, 1))); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	txs, _ := repo.ListTransactions(ctx, 1, 0)
	if len(txs) != 0 {
		t.Fatalf("expected rollback, got %d transactions", len(txs))
	}

	if err := repo.MarkTodoCompleted(ctx, 1, todo.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ := repo.GetTodo(ctx, 1, todo.ID)
	if !got.Completed {
		t.Fatalf("todo not completed")
	}
	if err := repo.MarkTodoCompleted(ctx, 1, todo.ID); !errors.Is(err, store.ErrAlreadyCompleted) {
		t.Fatalf("second mark = %v, want ErrAlreadyCompleted", err)
	}
	if err := repo.MarkTodoCompleted(ctx, 2, todo.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("other user's mark = %v, want ErrNotFound", err)
	}
	due, _ = repo.ListDueTodos(ctx, core.NewDate(2025, 6, 1))
	if len(due) != 0 {
		t.Fatalf("completed todo should not be due")
	}
}

func TestRepository_AIData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	since := time.Now().Add(-time.Hour)

	if _, err := repo.SaveConversation(ctx, core.Conversation{UserID: 1, UserMessage: "hi", AIResponse: "hello", Context: core.ConversationContext{Page: "chat"}}); err != nil {
		t.Fatalf("save conversation: %v", err)
	}
	ins, err := repo.SaveInsight(ctx, core.Insight{UserID: 1, Type: core.InsightTip, Message: "Food budget at 80%"})
	if err != nil {
		t.Fatalf("save insight: %v", err)
	}
	if ok, err := repo.HasInsight(ctx, 1, "Food budget at 80%", since); err != nil || !ok {
		t.Fatalf("expected insight present: %v %v", ok, err)
	}
	if err := repo.AcknowledgeInsight(ctx, 1, ins.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	unack, _ := repo.ListInsights(ctx, 1, true)
	if len(unack) != 0 {
		t.Fatalf("expected no unacknowledged insights")
	}

	if err := repo.SaveMemory(ctx, core.AIMemory{UserID: 1, Preferences: core.Preferences{FinancialGoals: []string{"emergency fund"}, RiskTolerance: core.RiskMedium}}); err != nil {
		t.Fatalf("save memory: %v", err)
	}
	m, err := repo.GetMemory(ctx, 1)
	if err != nil || len(m.Preferences.FinancialGoals) != 1 || m.Preferences.RiskTolerance != core.RiskMedium {
		t.Fatalf("unexpected memory: %+v %v", m, err)
	}

	if err := repo.ClearAIData(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	convs, _ := repo.ListConversations(ctx, 1, 10)
	all, _ := repo.ListInsights(ctx, 1, false)
	if len(convs) != 0 || len(all) != 0 {
		t.Fatalf("AI data not cleared: %d conversations, %d insights", len(convs), len(all))
	}
}
