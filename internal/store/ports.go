package store

import (
	"context"
	"errors"
	"time"

	"stephly/internal/core"
)

var (
	// ErrNotFound is returned when a record does not exist for the given user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique constraint violations (duplicate email).
	ErrConflict = errors.New("conflict")
	// ErrAlreadyCompleted is returned by MarkTodoCompleted when the todo was
	// completed before the call.
	ErrAlreadyCompleted = errors.New("todo already completed")
)

// DefaultTransactionLimit applies when a caller passes limit <= 0.
const DefaultTransactionLimit = 50

// MaxInsights bounds ListInsights.
const MaxInsights = 50

// Ports for outbound adapters. Every read and write is scoped by user ID.
type (
	UserRepository interface {
		CreateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error)
		GetUser(ctx context.Context, id int64) (core.UserProfile, error)
		GetUserByEmail(ctx context.Context, email string) (core.UserProfile, error)
		UpdateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error)
	}

	TransactionRepository interface {
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		// ListTransactions returns the newest transactions by date.
		ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
		ListTransactionsInMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id int64) error
	}

	BudgetRepository interface {
		// SetBudget inserts the budget or, when (user, category, month, year)
		// already exists, replaces only its limit.
		SetBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, userID int64, category string, month, year int) (core.Budget, error)
		ListBudgets(ctx context.Context, userID int64, month, year int) ([]core.Budget, error)
		DeleteBudget(ctx context.Context, userID, id int64) error
	}

	TodoRepository interface {
		AddTodo(ctx context.Context, t core.Todo) (core.Todo, error)
		GetTodo(ctx context.Context, userID, id int64) (core.Todo, error)
		// ListTodos returns pending todos first, newest first within each group.
		ListTodos(ctx context.Context, userID int64) ([]core.Todo, error)
		// ListDueTodos returns pending todos of every user due on or before the date.
		ListDueTodos(ctx context.Context, before core.Date) ([]core.Todo, error)
		UpdateTodo(ctx context.Context, t core.Todo) (core.Todo, error)
		// MarkTodoCompleted flips a pending todo to completed. It fails with
		// ErrAlreadyCompleted when the todo is no longer pending.
		MarkTodoCompleted(ctx context.Context, userID, id int64) error
		DeleteTodo(ctx context.Context, userID, id int64) error
	}

	ConversationRepository interface {
		SaveConversation(ctx context.Context, c core.Conversation) (core.Conversation, error)
		ListConversations(ctx context.Context, userID int64, limit int) ([]core.Conversation, error)
	}

	InsightRepository interface {
		SaveInsight(ctx context.Context, i core.Insight) (core.Insight, error)
		ListInsights(ctx context.Context, userID int64, unacknowledgedOnly bool) ([]core.Insight, error)
		AcknowledgeInsight(ctx context.Context, userID, id int64) error
		// HasInsight reports whether an insight with this exact message was
		// stored for the user at or after since.
		HasInsight(ctx context.Context, userID int64, message string, since time.Time) (bool, error)
	}

	MemoryRepository interface {
		SaveMemory(ctx context.Context, m core.AIMemory) error
		GetMemory(ctx context.Context, userID int64) (core.AIMemory, error)
	}

	// Store is the full persistence surface used by services.
	Store interface {
		UserRepository
		TransactionRepository
		BudgetRepository
		TodoRepository
		ConversationRepository
		InsightRepository
		MemoryRepository

		// ClearAIData removes the user's conversations and insights.
		ClearAIData(ctx context.Context, userID int64) error
		Ping(ctx context.Context) error
		Close() error
	}

	// Transactor runs fn against a store view whose writes commit together.
	Transactor interface {
		WithTx(ctx context.Context, fn func(Store) error) error
	}
)
