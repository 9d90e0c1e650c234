package services

import (
	"context"
	"fmt"
	"time"

	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/store"
)

// ReminderScanner turns pending todos near their due date into warning
// insights, at most one per todo and day.
type ReminderScanner struct {
	todos    store.TodoRepository
	insights store.InsightRepository
	logger   *log.Logger
	now      func() time.Time
}

func NewReminderScanner(todos store.TodoRepository, insights store.InsightRepository, logger *log.Logger) *ReminderScanner {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderScanner{
		todos:    todos,
		insights: insights,
		logger:   logger.WithComponent(log.ComponentTodo),
		now:      time.Now,
	}
}

// Scan stores reminders for every pending todo due within DueSoonDays and
// returns how many new insights were written.
func (s *ReminderScanner) Scan(ctx context.Context) (int, error) {
	now := s.now().UTC()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	horizon := core.Date{Time: today.AddDate(0, 0, DueSoonDays)}

	todos, err := s.todos.ListDueTodos(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("list due todos: %w", err)
	}

	created := 0
	for _, t := range todos {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		kind, rule, ok := MatchReminder(t, today)
		if !ok {
			continue
		}
		msg := rule.Message(t, today)

		seen, err := s.insights.HasInsight(ctx, t.UserID, msg, today.Time)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to check existing reminder",
				log.FieldUserID, t.UserID, "todo_id", t.ID, log.FieldError, err)
			continue
		}
		if seen {
			continue
		}

		if _, err := s.insights.SaveInsight(ctx, core.Insight{
			UserID:  t.UserID,
			Type:    core.InsightWarning,
			Message: msg,
		}); err != nil {
			s.logger.ErrorContext(ctx, "Failed to save reminder",
				log.FieldUserID, t.UserID, "todo_id", t.ID, log.FieldError, err)
			continue
		}
		created++
		s.logger.DebugContext(ctx, "Reminder stored",
			log.FieldUserID, t.UserID, "todo_id", t.ID, "kind", string(kind))
	}

	if created > 0 {
		s.logger.InfoContext(ctx, "Todo reminders stored", "count", created, "scanned", len(todos))
	}
	return created, nil
}
