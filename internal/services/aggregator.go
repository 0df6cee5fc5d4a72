package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/storage"
)

// Aggregator builds budget-vs-actual summaries from the ledger.
type Aggregator struct {
	store   SummaryStore
	profile config.Profile
}

func NewAggregator(store SummaryStore, profile config.Profile) *Aggregator {
	return &Aggregator{store: store, profile: profile}
}

// income returns the profile income, which is the savings-rate denominator,
// and the income recorded in the ledger, which is reported alongside it.
func (a *Aggregator) income(ctx context.Context, m core.Month) (core.Money, core.Money, error) {
	recorded, err := a.store.IncomeForMonth(ctx, m)
	if err != nil {
		return core.Money{}, core.Money{}, err
	}
	return a.profile.MonthlyIncome, recorded, nil
}

func (a *Aggregator) rows(ctx context.Context, m core.Month) ([]core.CategorySummary, core.Money, error) {
	if err := m.Validate(); err != nil {
		return nil, core.Money{}, err
	}
	totals, uncategorized, err := a.store.MonthlyCategoryTotals(ctx, m)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("category totals for %s: %w", m, err)
	}
	rows := make([]core.CategorySummary, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, a.row(t))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total.Cents != rows[j].Total.Cents {
			return rows[i].Total.Cents > rows[j].Total.Cents
		}
		return rows[i].Category < rows[j].Category
	})
	return rows, uncategorized, nil
}

func (a *Aggregator) row(t storage.CategoryTotal) core.CategorySummary {
	pct := core.Percent(t.Total, t.Category.Budget)
	return core.CategorySummary{
		CategoryID: t.Category.ID,
		Category:   t.Category.Name,
		Icon:       t.Category.Icon,
		Budget:     t.Category.Budget,
		Total:      t.Total,
		Percent:    pct,
		Status:     a.profile.Thresholds.StatusFor(pct),
		Excluded:   t.Category.Excluded,
	}
}

// MonthlySummary returns one row per category, zero-spend categories included.
// TotalSpent covers every expense in the month, uncategorized ones too.
func (a *Aggregator) MonthlySummary(ctx context.Context, m core.Month) (core.MonthlySummary, error) {
	rows, uncategorized, err := a.rows(ctx, m)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	income, recorded, err := a.income(ctx, m)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("income for %s: %w", m, err)
	}

	s := core.MonthlySummary{
		Month:          m,
		Categories:     rows,
		Uncategorized:  uncategorized,
		TotalSpent:     uncategorized,
		Income:         income,
		RecordedIncome: recorded,
	}
	for _, r := range rows {
		s.TotalSpent = s.TotalSpent.Add(r.Total)
		s.TotalBudget = s.TotalBudget.Add(r.Budget)
	}
	s.SavingsRate = core.Percent(income.Sub(s.TotalSpent), income)

	slog.DebugContext(ctx, "Monthly summary computed",
		"month", m.String(),
		"total_spent_cents", s.TotalSpent.Cents,
		"total_budget_cents", s.TotalBudget.Cents,
		"savings_rate", s.SavingsRate)
	return s, nil
}

// PartitionedSummary splits categories into included and excluded groups.
// The savings rate only counts included and uncategorized spend.
func (a *Aggregator) PartitionedSummary(ctx context.Context, m core.Month) (core.PartitionedSummary, error) {
	rows, uncategorized, err := a.rows(ctx, m)
	if err != nil {
		return core.PartitionedSummary{}, err
	}
	income, recorded, err := a.income(ctx, m)
	if err != nil {
		return core.PartitionedSummary{}, fmt.Errorf("income for %s: %w", m, err)
	}

	p := core.PartitionedSummary{Month: m, Uncategorized: uncategorized, Income: income, RecordedIncome: recorded}
	for _, r := range rows {
		g := &p.Included
		if r.Excluded {
			g = &p.Excluded
		}
		g.Categories = append(g.Categories, r)
		g.TotalSpent = g.TotalSpent.Add(r.Total)
		g.TotalBudget = g.TotalBudget.Add(r.Budget)
	}
	spent := p.Included.TotalSpent.Add(uncategorized)
	p.SavingsRate = core.Percent(income.Sub(spent), income)
	return p, nil
}
