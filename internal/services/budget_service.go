package services

import (
	"context"
	"fmt"
	"time"

	"stephly/internal/analysis"
	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/store"
)

// BudgetService manages monthly category budgets. Spent is always derived
// from the month's transactions.
type BudgetService struct {
	store    store.Store
	logger   *log.Logger
	now      func() time.Time
	onChange []func(userID int64)
}

func NewBudgetService(st store.Store, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetService{
		store:  st,
		logger: logger.WithComponent(log.ComponentBudget),
		now:    time.Now,
	}
}

func (s *BudgetService) OnChange(fn func(userID int64)) {
	s.onChange = append(s.onChange, fn)
}

func (s *BudgetService) changed(userID int64) {
	for _, fn := range s.onChange {
		fn(userID)
	}
}

// currentPeriod fills a zero month or year with the current one.
func (s *BudgetService) currentPeriod(month, year int) (int, int) {
	now := s.now()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return month, year
}

// Set creates the budget or replaces the limit of the existing one for the
// same category and month.
func (s *BudgetService) Set(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Month, b.Year = s.currentPeriod(b.Month, b.Year)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.SetBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}

	txs, err := s.store.ListTransactionsInMonth(ctx, saved.UserID, saved.Year, saved.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("load month transactions: %w", err)
	}
	saved.Spent = core.SpentFor(saved, txs)

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldUserID, saved.UserID,
		log.FieldCategory, saved.Category,
		log.FieldAmountCents, saved.Limit.Cents,
		log.FieldMonth, saved.Month,
		log.FieldYear, saved.Year)
	s.changed(saved.UserID)
	return saved, nil
}

// List returns the month's budgets with Spent filled in.
func (s *BudgetService) List(ctx context.Context, userID int64, month, year int) ([]core.Budget, error) {
	month, year = s.currentPeriod(month, year)
	if month < 1 || month > 12 {
		return nil, core.ErrInvalidMonth
	}
	budgets, err := s.store.ListBudgets(ctx, userID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	txs, err := s.store.ListTransactionsInMonth(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("load month transactions: %w", err)
	}
	return core.WithSpent(budgets, txs), nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	s.changed(userID)
	return nil
}

// Affordability checks a proposed budget against the user's balance, income
// and the budgets already set for that month.
func (s *BudgetService) Affordability(ctx context.Context, userID int64, proposed core.Money, month, year int) (analysis.Affordability, error) {
	if err := proposed.Validate(); err != nil {
		return analysis.Affordability{}, err
	}
	month, year = s.currentPeriod(month, year)

	profile, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return analysis.Affordability{}, fmt.Errorf("load profile: %w", err)
	}
	txs, err := s.store.ListTransactions(ctx, userID, store.DefaultTransactionLimit)
	if err != nil {
		return analysis.Affordability{}, fmt.Errorf("load transactions: %w", err)
	}
	existing, err := s.store.ListBudgets(ctx, userID, month, year)
	if err != nil {
		return analysis.Affordability{}, fmt.Errorf("list budgets: %w", err)
	}

	stats := core.ComputeStats(txs)
	return analysis.CheckAffordability(proposed, stats.Balance, profile.MonthlyIncome, existing), nil
}
