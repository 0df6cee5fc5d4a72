package core

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// UncategorizedName labels spend whose category could not be resolved.
const UncategorizedName = "sem categoria"

type Status string

// Thresholds is the single percent-of-budget table shared by summary status
// and budget alerts.
type Thresholds struct {
	Notice   float64 // info alert only, status stays ok
	Exceeded float64 // warning
	Critical float64 // critical
}

// DefaultThresholds returns the 80/100/120 table.
func DefaultThresholds() Thresholds {
	return Thresholds{Notice: 80, Exceeded: 100, Critical: 120}
}

// StatusFor classifies a percent-of-budget value.
func (t Thresholds) StatusFor(percent float64) Status {
	switch {
	case percent >= t.Critical:
		return StatusCritical
	case percent >= t.Exceeded:
		return StatusWarning
	default:
		return StatusOK
	}
}

// CategorySummary is the budget-vs-actual row of one category in one month.
type CategorySummary struct {
	CategoryID int64
	Category   string
	Icon       string
	Budget     Money
	Total      Money
	Percent    float64 // total/budget*100, one decimal; 0 when budget is 0
	Status     Status
	Excluded   bool
}

// Remaining is budget minus total; negative when over budget.
func (c CategorySummary) Remaining() Money {
	return c.Budget.Sub(c.Total)
}

// MonthlySummary aggregates every category for one month.
type MonthlySummary struct {
	Month          Month
	Categories     []CategorySummary
	Uncategorized  Money
	TotalSpent     Money // includes Uncategorized
	TotalBudget    Money
	Income         Money // profile income, the savings-rate denominator
	RecordedIncome Money // income entries in the ledger, informational
	SavingsRate    float64
}

// SummaryGroup is one side of a partitioned summary.
type SummaryGroup struct {
	Categories  []CategorySummary
	TotalSpent  Money
	TotalBudget Money
}

// PartitionedSummary splits categories by their Excluded flag. SavingsRate is
// computed over Included spend plus uncategorized spend only.
type PartitionedSummary struct {
	Month          Month
	Included       SummaryGroup
	Excluded       SummaryGroup
	Uncategorized  Money
	Income         Money
	RecordedIncome Money
	SavingsRate    float64
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategoryMonthTotal is one point of a category spending history.
type CategoryMonthTotal struct {
	Category string
	Month    Month
	Total    Money
}
