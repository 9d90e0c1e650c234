// Package services holds the application's use cases. Services validate
// input through core, persist through the store ports and announce
// transaction writes on the event bus.
package services

import (
	"context"
	"fmt"

	"stephly/internal/amqp"
	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/store"
)

// EventPublisher is satisfied by *amqp.Client. A nil publisher disables
// event publishing.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction writes across the store and AMQP
type TransactionService struct {
	repo      store.TransactionRepository
	publisher EventPublisher
	logger    *log.Logger
	audit     *log.StructuredLogger
	onChange  []func(userID int64)
}

func NewTransactionService(repo store.TransactionRepository, publisher EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentTransaction)
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		audit:     log.NewStructuredLogger(logger),
	}
}

// OnChange registers fn to run after every successful write for a user.
func (s *TransactionService) OnChange(fn func(userID int64)) {
	s.onChange = append(s.onChange, fn)
}

// Add saves a transaction and publishes a created event.
func (s *TransactionService) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.repo.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.announce(ctx, saved, amqp.EventCreated, log.OpCreate)
	return saved, nil
}

// Update replaces an existing transaction of the same user.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.repo.GetTransaction(ctx, t.UserID, t.ID); err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.repo.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.announce(ctx, saved, amqp.EventUpdated, log.OpUpdate)
	return saved, nil
}

// Delete removes a transaction and publishes a deleted event.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	existing, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	existing.Version++
	s.announce(ctx, existing, amqp.EventDeleted, log.OpDelete)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

// List returns the newest transactions; limit <= 0 means the default page.
func (s *TransactionService) List(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = store.DefaultTransactionLimit
	}
	return s.repo.ListTransactions(ctx, userID, limit)
}

func (s *TransactionService) ListInMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	if month < 1 || month > 12 {
		return nil, core.ErrInvalidMonth
	}
	return s.repo.ListTransactionsInMonth(ctx, userID, year, month)
}

// Stats totals the user's latest page of transactions.
func (s *TransactionService) Stats(ctx context.Context, userID int64) (core.Stats, error) {
	txs, err := s.List(ctx, userID, store.DefaultTransactionLimit)
	if err != nil {
		return core.Stats{}, err
	}
	return core.ComputeStats(txs), nil
}

// announce logs the write, notifies listeners and publishes the event. A
// publish failure never fails the write.
func (s *TransactionService) announce(ctx context.Context, t core.Transaction, kind amqp.EventKind, op string) {
	s.audit.LogTransactionSaved(ctx, op, t.UserID, t.ID, string(t.Type), t.Title, t.Amount.Cents, t.Category)

	for _, fn := range s.onChange {
		fn(t.UserID)
	}

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping transaction event")
		return
	}
	ev := amqp.NewTransactionEvent(t.ID, t.UserID, kind, t.Version)
	if err := s.publisher.PublishTransactionEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, t.ID,
			"kind", string(kind),
			log.FieldError, err)
	}
}
