package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
	Refund  TransactionType = "refund"
)

const (
	SourceManual      Source = "manual"
	SourceStatement   Source = "statement"
	SourceInstallment Source = "installment"
	SourceDemo        Source = "demo"
)

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

type (
	TransactionType string
	Source          string
	PlanStatus      string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID       int64
		Name     string // lowercase token, e.g. "alimentacao"
		Icon     string
		Budget   Money
		Excluded bool // excluded from the savings-rate calculation
	}

	Transaction struct {
		ID             int64
		Date           Date
		Description    string
		Amount         Money // signed
		Type           TransactionType
		CategoryID     *int64 // nil means uncategorized
		CategoryName   string
		Source         Source
		Fingerprint    string
		InstallmentID  *int64
		InstallmentSeq *int
		CreatedAt      time.Time
	}

	InstallmentPlan struct {
		ID                 int64
		Description        string
		TotalAmount        Money
		InstallmentAmount  Money
		TotalInstallments  int
		CurrentInstallment int
		StartDate          Date
		EndDate            Date
		CategoryID         *int64
		CategoryName       string
		Status             PlanStatus
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyCategory       = errors.New("empty category name")
	ErrNegativeBudget      = errors.New("budget cannot be negative")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidSource       = errors.New("invalid transaction source")
	ErrInvalidInstallments = errors.New("invalid installment count")
	ErrInvalidPlanStatus   = errors.New("invalid plan status")
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

// ISO formats the date as YYYY-MM-DD, the storage representation.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// AddMonths moves the date n calendar months, clamping the day to the target month.
func (d Date) AddMonths(n int) Date {
	return MonthOf(d.Time).AddMonths(n).Day(d.Day())
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD or DD/MM/YYYY date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("parse date %q: unsupported format", s)
}

func (t TransactionType) Validate() error {
	switch t {
	case Expense, Income, Refund:
		return nil
	}
	return ErrInvalidType
}

func (s Source) Validate() error {
	switch s {
	case SourceManual, SourceStatement, SourceInstallment, SourceDemo:
		return nil
	}
	return ErrInvalidSource
}

func (s PlanStatus) Validate() error {
	switch s {
	case PlanActive, PlanCompleted, PlanCancelled:
		return nil
	}
	return ErrInvalidPlanStatus
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	if c.Budget.Cents < 0 {
		return ErrNegativeBudget
	}
	return nil
}

// NormalizeCategoryName turns user input into the lowercase token used as key.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	return t.Source.Validate()
}

// Categorized reports whether the transaction resolved to a known category.
func (t Transaction) Categorized() bool {
	return t.CategoryID != nil
}

// NewInstallmentPlan builds an active plan starting at start and splitting total
// into n equal parts rounded to the cent.
func NewInstallmentPlan(description string, total Money, n int, start Date, category string) (InstallmentPlan, error) {
	if n < 1 {
		return InstallmentPlan{}, ErrInvalidInstallments
	}
	p := InstallmentPlan{
		Description:        strings.TrimSpace(description),
		TotalAmount:        total,
		InstallmentAmount:  total.Split(n),
		TotalInstallments:  n,
		CurrentInstallment: 1,
		StartDate:          start,
		EndDate:            start.AddMonths(n - 1),
		CategoryName:       NormalizeCategoryName(category),
		Status:             PlanActive,
	}
	return p, p.Validate()
}

// NewInstallmentPlanFromCharge registers a plan first seen on a statement at
// installment current of total. The start is back-dated so that the charge
// month maps to index current.
func NewInstallmentPlanFromCharge(description string, perInstallment Money, current, total int, charged Date, category string) (InstallmentPlan, error) {
	if total < 1 || current < 1 || current > total {
		return InstallmentPlan{}, ErrInvalidInstallments
	}
	start := charged.AddMonths(-(current - 1))
	p := InstallmentPlan{
		Description:        strings.TrimSpace(description),
		TotalAmount:        Money{Cents: perInstallment.Cents * int64(total)},
		InstallmentAmount:  perInstallment,
		TotalInstallments:  total,
		CurrentInstallment: current,
		StartDate:          start,
		EndDate:            start.AddMonths(total - 1),
		CategoryName:       NormalizeCategoryName(category),
		Status:             PlanActive,
	}
	return p, p.Validate()
}

func (p InstallmentPlan) Validate() error {
	if p.Description == "" {
		return ErrEmptyDescription
	}
	if p.TotalInstallments < 1 {
		return ErrInvalidInstallments
	}
	if p.CurrentInstallment < 1 || p.CurrentInstallment > p.TotalInstallments {
		return ErrInvalidInstallments
	}
	if err := p.InstallmentAmount.Validate(); err != nil {
		return err
	}
	// one cent of rounding slack per installment
	diff := p.InstallmentAmount.Cents*int64(p.TotalInstallments) - p.TotalAmount.Cents
	if diff < 0 {
		diff = -diff
	}
	if diff > int64(p.TotalInstallments) {
		return fmt.Errorf("%w: %d x %d does not match total %d", ErrInvalidAmount,
			p.InstallmentAmount.Cents, p.TotalInstallments, p.TotalAmount.Cents)
	}
	if err := p.StartDate.Validate(); err != nil {
		return err
	}
	if p.EndDate.Before(p.StartDate.Time) {
		return fmt.Errorf("end date %s before start date %s", p.EndDate.ISO(), p.StartDate.ISO())
	}
	return p.Status.Validate()
}

func (p InstallmentPlan) StartMonth() Month { return MonthOf(p.StartDate.Time) }
func (p InstallmentPlan) EndMonth() Month   { return MonthOf(p.EndDate.Time) }

// IsDue reports whether m falls inside the plan's [start, end] month range.
func (p InstallmentPlan) IsDue(m Month) bool {
	return !m.Before(p.StartMonth()) && !m.After(p.EndMonth())
}

// IndexFor returns the 1-based installment number for m. It can exceed
// TotalInstallments when the stored end date drifted from the count.
func (p InstallmentPlan) IndexFor(m Month) int {
	return m.MonthsSince(p.StartMonth()) + 1
}

// Remaining is the number of installments still due after m.
func (p InstallmentPlan) Remaining(m Month) int {
	r := p.TotalInstallments - p.IndexFor(m)
	if r < 0 {
		return 0
	}
	if r > p.TotalInstallments {
		return p.TotalInstallments
	}
	return r
}

// LabelFor renders the synthesized ledger description for installment i.
func (p InstallmentPlan) LabelFor(i int) string {
	return fmt.Sprintf("%s %d/%d", p.Description, i, p.TotalInstallments)
}

// DaysUntilEnd counts whole days from today to the plan end date.
func (p InstallmentPlan) DaysUntilEnd(today time.Time) int {
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(p.EndDate.Sub(t).Hours() / 24)
}
