// Package assistant is the chat assistant: it routes action requests to the
// intent executor and answers everything else with the language model,
// grounded on the user's transactions, budgets and AI memory.
package assistant

import (
	"context"
	"time"

	"stephly/internal/intent"
	"stephly/internal/llm"
	"stephly/internal/log"
	"stephly/internal/search"
	"stephly/internal/services"
	"stephly/internal/store"
)

// Searcher looks up web results for questions about the outside world.
type Searcher interface {
	Search(ctx context.Context, query string) []search.Result
}

// HistoryLimit is how many past conversations feed the model context.
const HistoryLimit = 10

type Assistant struct {
	store        store.Store
	transactions *services.TransactionService
	budgets      *services.BudgetService
	detector     *intent.Detector
	executor     *intent.Executor
	gen          llm.Generator
	searcher     Searcher
	logger       *log.Logger
	now          func() time.Time
}

type Option func(*Assistant)

// WithSearcher enables web search for questions that need it.
func WithSearcher(s Searcher) Option {
	return func(a *Assistant) { a.searcher = s }
}

func New(st store.Store, transactions *services.TransactionService, budgets *services.BudgetService, todos *services.TodoService, gen llm.Generator, logger *log.Logger, opts ...Option) *Assistant {
	if gen == nil {
		gen = llm.Disabled{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	a := &Assistant{
		store:        st,
		transactions: transactions,
		budgets:      budgets,
		detector:     intent.NewDetector(intent.NewExtractor(gen, logger), logger),
		executor:     intent.NewExecutor(budgets, transactions, todos, st, logger),
		gen:          gen,
		logger:       logger.WithComponent(log.ComponentAssistant),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
