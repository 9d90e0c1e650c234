package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-04")
	if err != nil || d.Year() != 2025 || d.Month() != 3 || d.Day() != 4 {
		t.Fatalf("unexpected %v err=%v", d, err)
	}
	d, err = ParseDate("2025-03-04T22:10:00Z")
	if err != nil || d.String() != "2025-03-04" {
		t.Fatalf("rfc3339: got %q err=%v", d.String(), err)
	}
	if _, err := ParseDate("yesterday"); err == nil {
		t.Fatalf("expected error for free text")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:     Expense,
		Title:    "Lunch",
		Amount:   Money{Cents: 2500},
		Category: "Food",
		Date:     NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"bad type", func(t *Transaction) { t.Type = "transfer" }, ErrInvalidType},
		{"empty title", func(t *Transaction) { t.Title = "  " }, ErrEmptyTitle},
		{"long title", func(t *Transaction) { t.Title = strings.Repeat("x", 201) }, ErrTitleTooLong},
		{"negative amount", func(t *Transaction) { t.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"zero amount", func(t *Transaction) { t.Amount = Money{} }, ErrInvalidAmount},
		{"no category", func(t *Transaction) { t.Category = "" }, ErrEmptyCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := good
			tt.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}

	zeroDate := good
	zeroDate.Date = Date{}
	if err := zeroDate.Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{Category: "Food", Limit: Money{Cents: 50000}, Month: 6, Year: 2025}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Budget{
		{Category: "", Limit: Money{Cents: 1}, Month: 6, Year: 2025},
		{Category: "Food", Limit: Money{}, Month: 6, Year: 2025},
		{Category: "Food", Limit: Money{Cents: 1}, Month: 13, Year: 2025},
		{Category: "Food", Limit: Money{Cents: 1}, Month: 6, Year: 0},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetRemainingAndPercent(t *testing.T) {
	b := Budget{Limit: Money{Cents: 10000}, Spent: Money{Cents: 12500}}
	if got := b.Remaining().Cents; got != -2500 {
		t.Fatalf("remaining = %d", got)
	}
	if got := b.UsedPercent(); got != 125 {
		t.Fatalf("percent = %d", got)
	}
	if (Budget{}).UsedPercent() != 0 {
		t.Fatalf("zero limit should be 0%%")
	}
}

func TestTodoValidateAndConvert(t *testing.T) {
	todo := Todo{UserID: 7, Title: "Rent", Amount: Money{Cents: 120000}, Category: "Bills", Note: "March"}
	if err := todo.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Todo{Title: "x", Amount: Money{}, Category: "c"}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	on := NewDate(2025, 3, 1)
	tx := todo.ToTransaction(on)
	if tx.Type != Expense || tx.UserID != 7 || tx.Amount != todo.Amount || tx.Category != "Bills" || tx.Note != "March" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if !tx.Date.Equal(on.Time) {
		t.Fatalf("date not carried over")
	}
}

func TestUserProfileValidate(t *testing.T) {
	if err := (UserProfile{Name: "Ama", Email: "ama@example.com"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (UserProfile{Name: "", Email: "ama@example.com"}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (UserProfile{Name: "Ama", Email: "nope"}).Validate(); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if NormalizeEmail("  Ama@Example.COM ") != "ama@example.com" {
		t.Fatalf("normalize failed")
	}
}

func TestInsightAndPreferencesValidate(t *testing.T) {
	if err := (Insight{Type: InsightTip, Message: "save more"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Insight{Type: "rant", Message: "x"}).Validate(); !errors.Is(err, ErrInvalidInsightType) {
		t.Fatalf("expected ErrInvalidInsightType, got %v", err)
	}
	if err := (Preferences{RiskTolerance: "yolo"}).Validate(); !errors.Is(err, ErrInvalidRiskTolerance) {
		t.Fatalf("expected ErrInvalidRiskTolerance, got %v", err)
	}
}
