// Package worker runs the background side of Stephly: it reacts to
// transaction events from the broker and scans for todo reminders.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stephly/internal/amqp"
	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/sheets"
	"stephly/internal/store"
)

// Budget usage thresholds, in percent.
const (
	TipThreshold     = 80
	WarningThreshold = 100
)

// EventWorker exports transactions and raises budget insights.
type EventWorker struct {
	store    store.Store
	exporter sheets.Exporter
	logger   *log.Logger
}

// NewEventWorker returns a worker; exporter may be nil to skip exports.
func NewEventWorker(st store.Store, exporter sheets.Exporter, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &EventWorker{
		store:    st,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one event. A returned error asks the broker to
// redeliver it.
func (w *EventWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldTransactionID, ev.ID,
		log.FieldUserID, ev.UserID,
		"kind", string(ev.Kind),
		"version", ev.Version)

	if ev.Kind == amqp.EventDeleted {
		if w.exporter == nil {
			return nil
		}
		if err := w.exporter.Delete(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete exported transaction: %w", err)
		}
		return nil
	}

	t, err := w.store.GetTransaction(ctx, ev.UserID, ev.ID)
	if errors.Is(err, store.ErrNotFound) {
		// deleted before we got here; the delete event cleans up
		w.logger.DebugContext(ctx, "Transaction gone, skipping", log.FieldTransactionID, ev.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	if w.exporter != nil {
		if err := w.exporter.Upsert(ctx, t); err != nil {
			return fmt.Errorf("export transaction: %w", err)
		}
	}

	if t.Type == core.Expense {
		if err := w.checkBudget(ctx, t); err != nil {
			return fmt.Errorf("check budget: %w", err)
		}
	}
	return nil
}

// checkBudget stores at most one tip and one warning per budget and month.
func (w *EventWorker) checkBudget(ctx context.Context, t core.Transaction) error {
	month, year := t.Date.Month(), t.Date.Year()
	b, err := w.store.GetBudget(ctx, t.UserID, t.Category, month, year)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	txs, err := w.store.ListTransactionsInMonth(ctx, t.UserID, year, month)
	if err != nil {
		return err
	}
	b.Spent = core.SpentFor(b, txs)

	typ, msg, ok := budgetInsight(b)
	if !ok {
		return nil
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	seen, err := w.store.HasInsight(ctx, t.UserID, msg, monthStart)
	if err != nil || seen {
		return err
	}
	if _, err := w.store.SaveInsight(ctx, core.Insight{UserID: t.UserID, Type: typ, Message: msg}); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Budget insight stored",
		log.FieldUserID, t.UserID,
		log.FieldCategory, b.Category,
		"used_percent", b.UsedPercent(),
		"type", string(typ))
	return nil
}

// budgetInsight picks the insight for b's usage. Messages depend only on the
// budget and threshold so that HasInsight can deduplicate them.
func budgetInsight(b core.Budget) (core.InsightType, string, bool) {
	used := b.UsedPercent()
	switch {
	case used >= WarningThreshold:
		return core.InsightWarning, fmt.Sprintf("⚠️ You've exceeded your %s budget of %s for %d/%d.",
			b.Category, b.Limit, b.Month, b.Year), true
	case used >= TipThreshold:
		return core.InsightTip, fmt.Sprintf("💡 You've used over %d%% of your %s budget for %d/%d. Slow down to stay on track.",
			TipThreshold, b.Category, b.Month, b.Year), true
	}
	return "", "", false
}
