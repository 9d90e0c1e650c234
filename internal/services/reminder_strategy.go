// This file implements the strategy registry for todo reminders. Each
// reminder kind (overdue, due today, due soon) decides on its own whether a
// pending todo qualifies and how the reminder reads.

package services

import (
	"fmt"
	"sort"

	"stephly/internal/core"
)

type ReminderKind string

const (
	ReminderOverdue  ReminderKind = "overdue"
	ReminderDueToday ReminderKind = "due_today"
	ReminderDueSoon  ReminderKind = "due_soon"
)

// DueSoonDays is how far ahead the due-soon rule looks.
const DueSoonDays = 3

// ReminderRule is the strategy interface for one kind of todo reminder.
type ReminderRule interface {
	// Priority orders rules; the lowest matching priority wins.
	Priority() int
	// Applies reports whether a todo due on due deserves this reminder today.
	Applies(due, today core.Date) bool
	Message(t core.Todo, today core.Date) string
}

func daysBetween(from, to core.Date) int {
	return int(to.Sub(from.Time).Hours() / 24)
}

// OverdueRule matches todos whose due date has passed.
type OverdueRule struct{}

func (OverdueRule) Priority() int { return 0 }

func (OverdueRule) Applies(due, today core.Date) bool {
	return due.Before(today.Time)
}

func (OverdueRule) Message(t core.Todo, today core.Date) string {
	days := daysBetween(t.DueDate, today)
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("⏰ Planned expense \"%s\" (%s) is %d %s overdue.", t.Title, t.Amount, days, unit)
}

// DueTodayRule matches todos due today.
type DueTodayRule struct{}

func (DueTodayRule) Priority() int { return 1 }

func (DueTodayRule) Applies(due, today core.Date) bool {
	return due.Equal(today.Time)
}

func (DueTodayRule) Message(t core.Todo, _ core.Date) string {
	return fmt.Sprintf("📅 Planned expense \"%s\" (%s) is due today.", t.Title, t.Amount)
}

// DueSoonRule matches todos due within Days days.
type DueSoonRule struct {
	Days int
}

func (DueSoonRule) Priority() int { return 2 }

func (r DueSoonRule) Applies(due, today core.Date) bool {
	if !due.After(today.Time) {
		return false
	}
	return daysBetween(today, due) <= r.Days
}

func (DueSoonRule) Message(t core.Todo, _ core.Date) string {
	return fmt.Sprintf("🔔 Planned expense \"%s\" (%s) is due on %s.", t.Title, t.Amount, t.DueDate)
}

var reminderRules = map[ReminderKind]ReminderRule{
	ReminderOverdue:  OverdueRule{},
	ReminderDueToday: DueTodayRule{},
	ReminderDueSoon:  DueSoonRule{Days: DueSoonDays},
}

// GetReminderRule returns the rule registered for kind.
func GetReminderRule(kind ReminderKind) (ReminderRule, error) {
	rule, ok := reminderRules[kind]
	if !ok {
		return nil, fmt.Errorf("unknown reminder kind: %s", kind)
	}
	return rule, nil
}

// RegisterReminderRule adds or replaces the rule for kind.
func RegisterReminderRule(kind ReminderKind, rule ReminderRule) {
	reminderRules[kind] = rule
}

// MatchReminder returns the highest-priority rule that applies to the todo.
func MatchReminder(t core.Todo, today core.Date) (ReminderKind, ReminderRule, bool) {
	if t.Completed || t.DueDate.IsEmpty() {
		return "", nil, false
	}
	kinds := make([]ReminderKind, 0, len(reminderRules))
	for k := range reminderRules {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		pi, pj := reminderRules[kinds[i]].Priority(), reminderRules[kinds[j]].Priority()
		if pi != pj {
			return pi < pj
		}
		return kinds[i] < kinds[j]
	})
	for _, k := range kinds {
		if rule := reminderRules[k]; rule.Applies(t.DueDate, today) {
			return k, rule, true
		}
	}
	return "", nil, false
}
