package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stephly/internal/amqp"
	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/store"
)

// TodoService manages planned expenses.
type TodoService struct {
	store  store.Store
	txs    *TransactionService
	atomic bool
	locks  todoLocks
	logger *log.Logger
	now    func() time.Time
}

type TodoOption func(*TodoService)

// WithAtomicCompletion runs Complete inside a single store transaction when
// the store supports it.
func WithAtomicCompletion(enabled bool) TodoOption {
	return func(s *TodoService) { s.atomic = enabled }
}

func NewTodoService(st store.Store, txs *TransactionService, logger *log.Logger, opts ...TodoOption) *TodoService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &TodoService{
		store:  st,
		txs:    txs,
		logger: logger.WithComponent(log.ComponentTodo),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TodoService) Add(ctx context.Context, t core.Todo) (core.Todo, error) {
	t.Completed = false
	if err := t.Validate(); err != nil {
		return core.Todo{}, err
	}
	saved, err := s.store.AddTodo(ctx, t)
	if err != nil {
		return core.Todo{}, fmt.Errorf("save todo: %w", err)
	}
	s.logger.InfoContext(ctx, "Todo added",
		log.FieldUserID, saved.UserID,
		log.FieldTitle, saved.Title,
		log.FieldAmountCents, saved.Amount.Cents)
	return saved, nil
}

func (s *TodoService) Get(ctx context.Context, userID, id int64) (core.Todo, error) {
	return s.store.GetTodo(ctx, userID, id)
}

func (s *TodoService) List(ctx context.Context, userID int64) ([]core.Todo, error) {
	return s.store.ListTodos(ctx, userID)
}

func (s *TodoService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteTodo(ctx, userID, id)
}

// Complete records the todo as an expense dated today and marks it
// completed. Completions of the same todo are serialised; a todo that is no
// longer pending yields ErrTodoAlreadyCompleted. The two writes are
// independent unless atomic completion is enabled: when marking fails the
// expense is kept and returned together with an error wrapping
// ErrPartialCompletion.
func (s *TodoService) Complete(ctx context.Context, userID, id int64) (core.Transaction, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	if tr, ok := s.store.(store.Transactor); s.atomic && ok {
		return s.completeAtomic(ctx, tr, userID, id)
	}

	todo, err := s.store.GetTodo(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if todo.Completed {
		return core.Transaction{}, ErrTodoAlreadyCompleted
	}

	created, err := s.txs.Add(ctx, s.expenseFor(todo))
	if err != nil {
		return core.Transaction{}, err
	}
	err = s.store.MarkTodoCompleted(ctx, userID, id)
	switch {
	case errors.Is(err, store.ErrAlreadyCompleted):
		// Completed elsewhere between the read and the mark.
		if delErr := s.txs.Delete(ctx, userID, created.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "Duplicate expense could not be removed",
				log.FieldUserID, userID,
				"todo_id", id,
				log.FieldTransactionID, created.ID,
				log.FieldError, delErr)
			return created, fmt.Errorf("%w: %v", ErrPartialCompletion, err)
		}
		return core.Transaction{}, ErrTodoAlreadyCompleted
	case err != nil:
		s.logger.ErrorContext(ctx, "Expense recorded but todo not marked completed",
			log.FieldUserID, userID,
			"todo_id", id,
			log.FieldTransactionID, created.ID,
			log.FieldError, err)
		return created, fmt.Errorf("%w: %v", ErrPartialCompletion, err)
	}

	s.logger.InfoContext(ctx, "Todo completed",
		log.FieldUserID, userID, "todo_id", id, log.FieldTransactionID, created.ID)
	return created, nil
}

func (s *TodoService) expenseFor(todo core.Todo) core.Transaction {
	now := s.now().UTC()
	return todo.ToTransaction(core.NewDate(now.Year(), int(now.Month()), now.Day()))
}

// completeAtomic reads, marks and records inside one store transaction. The
// conditional mark comes first so a concurrent completion rolls the expense
// back.
func (s *TodoService) completeAtomic(ctx context.Context, tr store.Transactor, userID, id int64) (core.Transaction, error) {
	var created core.Transaction
	err := tr.WithTx(ctx, func(tx store.Store) error {
		todo, err := tx.GetTodo(ctx, userID, id)
		if err != nil {
			return err
		}
		if todo.Completed {
			return ErrTodoAlreadyCompleted
		}
		expense := s.expenseFor(todo)
		if err := expense.Validate(); err != nil {
			return err
		}
		if err := tx.MarkTodoCompleted(ctx, userID, id); err != nil {
			return err
		}
		created, err = tx.AddTransaction(ctx, expense)
		if err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAlreadyCompleted) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("complete todo: %w", err)
	}

	s.txs.announce(ctx, created, amqp.EventCreated, log.OpComplete)
	s.logger.InfoContext(ctx, "Todo completed atomically",
		log.FieldUserID, userID, "todo_id", id, log.FieldTransactionID, created.ID)
	return created, nil
}

// todoLocks serialises work on the same todo ID within the process.
type todoLocks struct {
	mu    sync.Mutex
	locks map[int64]*todoLock
}

type todoLock struct {
	mu   sync.Mutex
	refs int
}

func (l *todoLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*todoLock)
	}
	k := l.locks[id]
	if k == nil {
		k = &todoLock{}
		l.locks[id] = k
	}
	k.refs++
	l.mu.Unlock()

	k.mu.Lock()
	return func() {
		k.mu.Unlock()
		l.mu.Lock()
		k.refs--
		if k.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
