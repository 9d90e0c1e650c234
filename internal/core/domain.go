package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	InsightWarning     InsightType = "warning"
	InsightTip         InsightType = "tip"
	InsightAchievement InsightType = "achievement"
	InsightSuggestion  InsightType = "suggestion"
)

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// DefaultCurrency is the currency amounts are recorded in.
const DefaultCurrency = "GHS"

// DefaultPreferredCurrency is assigned to new profiles.
const DefaultPreferredCurrency = "USD"

const maxTitleLen = 200

type (
	TransactionType string
	InsightType     string
	RiskTolerance   string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	UserProfile struct {
		ID                int64
		Name              string
		Email             string
		PasswordHash      string
		PreferredCurrency string
		MonthlyIncome     Money
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	Transaction struct {
		ID        int64
		UserID    int64
		Type      TransactionType
		Title     string
		Amount    Money
		Category  string
		Date      Date
		Note      string
		Version   int64 // bumped on every update
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Budget is a monthly spending ceiling for one category. Spent is derived
	// from transactions and never persisted.
	Budget struct {
		ID       int64
		UserID   int64
		Category string
		Limit    Money
		Spent    Money
		Month    int
		Year     int
	}

	// Todo is a planned expense that turns into a Transaction on completion.
	Todo struct {
		ID        int64
		UserID    int64
		Title     string
		Amount    Money
		Category  string
		DueDate   Date // zero when unset
		Note      string
		Completed bool
		CreatedAt time.Time
	}

	ConversationContext struct {
		Page               string
		Balance            Money
		RecentTransactions int
	}

	Conversation struct {
		ID          int64
		UserID      int64
		UserMessage string
		AIResponse  string
		Context     ConversationContext
		Timestamp   time.Time
	}

	Insight struct {
		ID           int64
		UserID       int64
		Type         InsightType
		Message      string
		Timestamp    time.Time
		Acknowledged bool
	}

	Preferences struct {
		FinancialGoals []string      `json:"financialGoals,omitempty"`
		RiskTolerance  RiskTolerance `json:"riskTolerance,omitempty"`
		SavingsTarget  int64         `json:"savingsTargetCents,omitempty"`
	}

	AIMemory struct {
		UserID      int64
		Preferences Preferences
		LastUpdated time.Time
	}
)

var (
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidYear          = errors.New("invalid year")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyTitle           = errors.New("empty title")
	ErrTitleTooLong         = errors.New("title too long (max 200 characters)")
	ErrEmptyCategory        = errors.New("empty category")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrEmptyName            = errors.New("empty name")
	ErrInvalidInsightType   = errors.New("invalid insight type")
	ErrInvalidRiskTolerance = errors.New("invalid risk tolerance")
	ErrEmptyMessage         = errors.New("empty message")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// IsEmpty reports whether an optional date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// ParseDate parses YYYY-MM-DD, falling back to RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t InsightType) IsValid() bool {
	switch t {
	case InsightWarning, InsightTip, InsightAchievement, InsightSuggestion:
		return true
	}
	return false
}

func (r RiskTolerance) IsValid() bool {
	switch r {
	case "", RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > maxTitleLen {
		return ErrTitleTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return t.Date.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1970 || b.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Remaining is the limit minus what has been spent; negative when over.
func (b Budget) Remaining() Money {
	return Money{Cents: b.Limit.Cents - b.Spent.Cents}
}

// UsedPercent returns spent as a whole-number percentage of the limit.
func (b Budget) UsedPercent() int {
	if b.Limit.Cents <= 0 {
		return 0
	}
	return int(b.Spent.Cents * 100 / b.Limit.Cents)
}

func (t Todo) Validate() error {
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.DueDate.IsEmpty() {
		if err := t.DueDate.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToTransaction builds the expense recorded when the todo is completed.
func (t Todo) ToTransaction(on Date) Transaction {
	return Transaction{
		UserID:   t.UserID,
		Type:     Expense,
		Title:    t.Title,
		Amount:   t.Amount,
		Category: t.Category,
		Date:     on,
		Note:     t.Note,
	}
}

func (u UserProfile) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if _, err := mail.ParseAddress(u.Email); err != nil || !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	if u.MonthlyIncome.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (i Insight) Validate() error {
	if !i.Type.IsValid() {
		return ErrInvalidInsightType
	}
	if strings.TrimSpace(i.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}

func (p Preferences) Validate() error {
	if !p.RiskTolerance.IsValid() {
		return ErrInvalidRiskTolerance
	}
	if p.SavingsTarget < 0 {
		return ErrInvalidAmount
	}
	return nil
}
