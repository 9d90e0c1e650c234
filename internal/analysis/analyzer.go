// Package analysis holds the pure budgeting maths behind the analytics
// endpoints and the assistant: affordability, spending patterns, a financial
// health score, the 50/30/20 allocation and month-end projections.
package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"stephly/internal/core"
)

type Severity string

const (
	SeveritySafe    Severity = "safe"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

type HealthStatus string

const (
	StatusExcellent HealthStatus = "excellent"
	StatusGood      HealthStatus = "good"
	StatusFair      HealthStatus = "fair"
	StatusPoor      HealthStatus = "poor"
	StatusCritical  HealthStatus = "critical"
)

// Affordability thresholds, as a percentage of monthly income.
var (
	dangerRatio  = decimal.NewFromInt(80)
	warningRatio = decimal.NewFromInt(60)
	hundred      = decimal.NewFromInt(100)
)

type Affordability struct {
	CanAfford           bool       `json:"canAfford"`
	Recommendation      string     `json:"recommendation"`
	Severity            Severity   `json:"severity"`
	SuggestedAmount     core.Money `json:"-"`
	Reasoning           string     `json:"reasoning"`
	Tips                []string   `json:"tips"`
	BudgetToIncomeRatio float64    `json:"budgetToIncomeRatio"`
}

type SpendingPattern struct {
	Category     string     `json:"category"`
	Amount       core.Money `json:"-"`
	Percentage   float64    `json:"percentage"`
	Trend        string     `json:"trend"`
	IsOverBudget bool       `json:"isOverBudget"`
}

type FinancialHealth struct {
	Score           int          `json:"score"`
	Status          HealthStatus `json:"status"`
	SavingsRate     float64      `json:"savingsRate"`
	ExpenseRatio    float64      `json:"expenseRatio"`
	Recommendations []string     `json:"recommendations"`
	Warnings        []string     `json:"warnings"`
}

type Allocation struct {
	Label  string     `json:"label"`
	Amount core.Money `json:"-"`
}

type Prediction struct {
	Category        string     `json:"category"`
	WillExceed      bool       `json:"willExceed"`
	ProjectedAmount core.Money `json:"-"`
	Confidence      float64    `json:"confidence"`
}

func dec(m core.Money) decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func money(d decimal.Decimal) core.Money {
	return core.Money{Cents: d.Shift(2).Round(0).IntPart()}
}

func cedis(d decimal.Decimal) string {
	return core.CurrencySymbol + d.StringFixed(2)
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func sumLimits(budgets []core.Budget) decimal.Decimal {
	total := decimal.Zero
	for _, b := range budgets {
		total = total.Add(dec(b.Limit))
	}
	return total
}

// CheckAffordability decides whether a new budget of proposed fits the
// user's balance and income given the budgets already set.
func CheckAffordability(proposed, balance, monthlyIncome core.Money, existing []core.Budget) Affordability {
	totalExisting := sumLimits(existing)
	proposedD := dec(proposed)
	balanceD := dec(balance)
	totalProposed := totalExisting.Add(proposedD)

	remaining := balanceD.Sub(proposedD)
	ratio := percent(totalProposed, dec(monthlyIncome))
	canAfford := !remaining.IsNegative() && ratio.LessThanOrEqual(dangerRatio)

	severity := SeveritySafe
	switch {
	case ratio.GreaterThan(dangerRatio) || remaining.IsNegative():
		severity = SeverityDanger
	case ratio.GreaterThan(warningRatio) || remaining.LessThan(balanceD.Mul(decimal.NewFromFloat(0.2))):
		severity = SeverityWarning
	}

	a := Affordability{
		CanAfford:           canAfford,
		Severity:            severity,
		SuggestedAmount:     proposed,
		BudgetToIncomeRatio: ratio.Round(2).InexactFloat64(),
	}

	switch severity {
	case SeverityDanger:
		left := "only"
		if remaining.IsNegative() {
			left = "negative"
		}
		a.Recommendation = "This budget is too high! You'll have " + left + " " + cedis(remaining.Abs()) + " left."
		a.Reasoning = "Your total budgets (" + cedis(totalProposed) + ") would be " + ratio.StringFixed(0) +
			"% of your income. Financial experts recommend keeping it under 80%."
		a.Tips = []string{
			"Consider reducing this budget amount",
			"Review and cut unnecessary expenses",
			"Look for ways to increase your income",
		}
		suggested := balanceD.Mul(decimal.NewFromFloat(0.6)).Sub(totalExisting)
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		a.SuggestedAmount = money(suggested)
	case SeverityWarning:
		a.Recommendation = "This budget is manageable but tight. You'll have " + cedis(remaining) + " remaining."
		a.Reasoning = "Your budgets will be " + ratio.StringFixed(0) +
			"% of your income. This leaves little room for savings or emergencies."
		a.Tips = []string{
			"Try to save at least 20% of your income",
			"Build an emergency fund",
			"Track your spending closely",
		}
	default:
		a.Recommendation = "This budget looks good! You'll have " + cedis(remaining) + " for savings and emergencies."
		a.Reasoning = "Your total budgets (" + ratio.StringFixed(0) +
			"% of income) leave room for savings and unexpected expenses."
		a.Tips = []string{
			"Great job budgeting responsibly!",
			"Consider investing your savings",
			"Keep tracking your expenses",
		}
	}
	return a
}

// SpendingPatterns breaks expenses down by category, largest first, and
// flags categories that went over a budget of the same name.
func SpendingPatterns(txs []core.Transaction, budgets []core.Budget) []SpendingPattern {
	totals := core.ExpenseTotals(txs)
	total := decimal.Zero
	for _, c := range totals {
		total = total.Add(dec(c.Amount))
	}

	limits := make(map[string]core.Money, len(budgets))
	for _, b := range budgets {
		if _, ok := limits[b.Category]; !ok {
			limits[b.Category] = b.Limit
		}
	}

	out := make([]SpendingPattern, 0, len(totals))
	for _, c := range totals {
		p := SpendingPattern{
			Category:   c.Name,
			Amount:     c.Amount,
			Percentage: percent(dec(c.Amount), total).Round(2).InexactFloat64(),
			Trend:      "stable",
		}
		if limit, ok := limits[c.Name]; ok {
			p.IsOverBudget = c.Amount.Cents > limit.Cents
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.Cents > out[j].Amount.Cents })
	return out
}

// Health scores the user's finances from 0 to 100.
func Health(balance, income, expenses core.Money, budgets []core.Budget) FinancialHealth {
	score := 100
	var recs, warns []string

	incomeD, expensesD := dec(income), dec(expenses)
	savingsRate := percent(incomeD.Sub(expensesD), incomeD)
	expenseRatio := percent(expensesD, incomeD)
	utilization := percent(expensesD, sumLimits(budgets))

	if balance.Cents < 0 {
		score -= 30
		warns = append(warns, "⚠️ Negative balance - immediate action required")
		recs = append(recs, "Stop all non-essential spending", "Find ways to increase income urgently")
	}

	switch {
	case savingsRate.LessThan(decimal.NewFromInt(10)):
		score -= 20
		warns = append(warns, "⚠️ Low savings rate")
		recs = append(recs, "Aim to save at least 20% of your income")
	case savingsRate.GreaterThanOrEqual(decimal.NewFromInt(20)):
		score += 10
		recs = append(recs, "✓ Excellent savings rate! Keep it up")
	}

	if expenseRatio.GreaterThan(decimal.NewFromInt(90)) {
		score -= 25
		warns = append(warns, "⚠️ Spending almost all your income")
		recs = append(recs, "Reduce expenses or increase income")
	}

	if utilization.GreaterThan(decimal.NewFromInt(90)) {
		score -= 15
		warns = append(warns, "⚠️ Exceeding budget limits")
		recs = append(recs, "Review and adjust your budgets")
	}

	var status HealthStatus
	switch {
	case score >= 80:
		status = StatusExcellent
	case score >= 60:
		status = StatusGood
	case score >= 40:
		status = StatusFair
	case score >= 20:
		status = StatusPoor
	default:
		status = StatusCritical
	}

	if status == StatusExcellent || status == StatusGood {
		recs = append(recs, "Consider investing your savings", "Build a 6-month emergency fund")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return FinancialHealth{
		Score:           score,
		Status:          status,
		SavingsRate:     savingsRate.Round(2).InexactFloat64(),
		ExpenseRatio:    expenseRatio.Round(2).InexactFloat64(),
		Recommendations: recs,
		Warnings:        warns,
	}
}

// SuggestAllocation splits income by the 50/30/20 rule.
func SuggestAllocation(income core.Money) []Allocation {
	incomeD := dec(income)
	return []Allocation{
		{Label: "Needs (Housing, Food, Transport)", Amount: money(incomeD.Mul(decimal.NewFromFloat(0.5)))},
		{Label: "Wants (Entertainment, Dining)", Amount: money(incomeD.Mul(decimal.NewFromFloat(0.3)))},
		{Label: "Savings & Debt", Amount: money(incomeD.Mul(decimal.NewFromFloat(0.2)))},
	}
}

// PredictExceedance projects month-end spending at the current daily rate.
// Confidence grows with the share of the month that has elapsed, up to 95.
func PredictExceedance(b core.Budget, spent core.Money, daysElapsed, daysInMonth int) Prediction {
	p := Prediction{Category: b.Category}
	if daysInMonth <= 0 {
		return p
	}
	projected := decimal.Zero
	if daysElapsed > 0 {
		projected = dec(spent).Div(decimal.NewFromInt(int64(daysElapsed))).Mul(decimal.NewFromInt(int64(daysInMonth)))
	}
	p.ProjectedAmount = money(projected)
	p.WillExceed = projected.GreaterThan(dec(b.Limit))

	confidence := decimal.NewFromInt(int64(daysElapsed)).Div(decimal.NewFromInt(int64(daysInMonth))).Mul(hundred)
	if confidence.GreaterThan(decimal.NewFromInt(95)) {
		confidence = decimal.NewFromInt(95)
	}
	p.Confidence = confidence.Round(2).InexactFloat64()
	return p
}
