package services

import (
	"context"
	"testing"
	"time"

	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/storage"

	"github.com/stretchr/testify/require"
)

var jan2026 = core.Month{Year: 2026, Month: 1}

func findRow(t *testing.T, rows []core.CategorySummary, name string) core.CategorySummary {
	t.Helper()
	for _, r := range rows {
		if r.Category == name {
			return r
		}
	}
	t.Fatalf("category %q missing from summary", name)
	return core.CategorySummary{}
}

func TestMonthlySummaryIncludesEveryCategory(t *testing.T) {
	repo := newTestLedger(t)
	agg := NewAggregator(repo, config.DefaultProfile())

	s, err := agg.MonthlySummary(context.Background(), jan2026)
	require.NoError(t, err)
	require.Len(t, s.Categories, 11)
	for _, r := range s.Categories {
		require.Zero(t, r.Total.Cents, r.Category)
		require.Zero(t, r.Percent, r.Category)
		require.Equal(t, core.StatusOK, r.Status, r.Category)
	}
	require.Zero(t, s.TotalSpent.Cents)
	require.Equal(t, core.FromReais(55000), s.Income)
	require.Equal(t, 100.0, s.SavingsRate)
}

func TestMonthlySummaryDuplicateScenario(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, repo.SetCategoryBudget(ctx, "alimentacao", core.FromReais(1000)))

	in := storage.NewTransaction{
		Date:         core.NewDate(2026, 1, 12),
		Description:  "Padaria Pao Quente",
		Amount:       core.FromReais(50),
		CategoryName: "alimentacao",
	}
	first, err := repo.AddTransaction(ctx, in)
	require.NoError(t, err)
	require.False(t, first.Duplicate)
	second, err := repo.AddTransaction(ctx, in)
	require.NoError(t, err)
	require.True(t, second.Duplicate)

	s, err := NewAggregator(repo, config.DefaultProfile()).MonthlySummary(ctx, jan2026)
	require.NoError(t, err)
	row := findRow(t, s.Categories, "alimentacao")
	require.Equal(t, core.FromReais(50), row.Total)
	require.Equal(t, 5.0, row.Percent)
	require.Equal(t, core.StatusOK, row.Status)
	require.Equal(t, "alimentacao", s.Categories[0].Category)
}

func TestMonthlySummaryZeroBudget(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, repo.SetCategoryBudget(ctx, "casa", core.Money{}))
	_, err := repo.AddTransaction(ctx, storage.NewTransaction{
		Date: core.NewDate(2026, 1, 3), Description: "Leroy Merlin", Amount: core.FromReais(300), CategoryName: "casa",
	})
	require.NoError(t, err)

	s, err := NewAggregator(repo, config.DefaultProfile()).MonthlySummary(ctx, jan2026)
	require.NoError(t, err)
	row := findRow(t, s.Categories, "casa")
	require.Equal(t, core.FromReais(300), row.Total)
	require.Zero(t, row.Percent)
	require.Equal(t, core.StatusOK, row.Status)
}

func TestMonthlySummaryIgnoresRefundsAndIncome(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	add := func(in storage.NewTransaction) {
		_, err := repo.AddTransaction(ctx, in)
		require.NoError(t, err)
	}
	add(storage.NewTransaction{Date: core.NewDate(2026, 1, 5), Description: "Loja X", Amount: core.FromReais(200), CategoryName: "viagem"})
	add(storage.NewTransaction{Date: core.NewDate(2026, 1, 6), Description: "Amazon", Amount: core.FromReais(400), CategoryName: "compras"})
	add(storage.NewTransaction{Date: core.NewDate(2026, 1, 9), Description: "Estorno Amazon", Amount: core.FromReais(100), CategoryName: "compras", Type: core.Refund})
	add(storage.NewTransaction{Date: core.NewDate(2026, 1, 10), Description: "Estorno Cinema", Amount: core.FromReais(50), CategoryName: "lazer", Type: core.Refund})
	add(storage.NewTransaction{Date: core.NewDate(2026, 1, 31), Description: "Salario extra", Amount: core.FromReais(1000), CategoryName: "lazer", Type: core.Income})
	add(storage.NewTransaction{Date: core.NewDate(2026, 2, 1), Description: "Cinema", Amount: core.FromReais(80), CategoryName: "lazer"})

	s, err := NewAggregator(repo, config.DefaultProfile()).MonthlySummary(ctx, jan2026)
	require.NoError(t, err)
	require.Equal(t, core.FromReais(200), s.Uncategorized)
	require.Equal(t, core.FromReais(400), findRow(t, s.Categories, "compras").Total)
	lazer := findRow(t, s.Categories, "lazer")
	require.Zero(t, lazer.Total.Cents)
	require.Zero(t, lazer.Percent)
	require.Equal(t, core.FromReais(600), s.TotalSpent)

	require.Equal(t, core.FromReais(55000), s.Income)
	require.Equal(t, core.FromReais(1000), s.RecordedIncome)
	require.Equal(t, 98.9, s.SavingsRate)
}

func TestSmallIncomeEntryKeepsProfileDenominator(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	_, err := repo.AddTransaction(ctx, storage.NewTransaction{
		Date: core.NewDate(2026, 1, 3), Description: "Reembolso", Amount: core.FromReais(200), Type: core.Income,
	})
	require.NoError(t, err)
	_, err = repo.AddTransaction(ctx, storage.NewTransaction{
		Date: core.NewDate(2026, 1, 4), Description: "Supermercado", Amount: core.FromReais(1000), CategoryName: "alimentacao",
	})
	require.NoError(t, err)

	p, err := NewAggregator(repo, config.DefaultProfile()).PartitionedSummary(ctx, jan2026)
	require.NoError(t, err)
	require.Equal(t, core.FromReais(55000), p.Income)
	require.Equal(t, core.FromReais(200), p.RecordedIncome)
	require.Equal(t, 98.2, p.SavingsRate)

	alerts := EvaluateAlerts(AlertInput{
		Summary:     core.MonthlySummary{Month: jan2026, Income: p.Income},
		SavingsRate: p.SavingsRate,
		Today:       time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
	}, AlertConfigFromProfile(config.DefaultProfile()))
	for _, a := range alerts {
		require.NotEqual(t, core.AlertSavingsNegative, a.Type)
	}
}

func TestPartitionedSummary(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	profile := config.DefaultProfile()
	profile.MonthlyIncome = core.FromReais(10000)

	_, err := repo.AddTransaction(ctx, storage.NewTransaction{
		Date: core.NewDate(2026, 1, 7), Description: "Cimento e areia", Amount: core.FromReais(8000), CategoryName: "obra",
	})
	require.NoError(t, err)
	_, err = repo.AddTransaction(ctx, storage.NewTransaction{
		Date: core.NewDate(2026, 1, 8), Description: "Supermercado", Amount: core.FromReais(1000), CategoryName: "alimentacao",
	})
	require.NoError(t, err)

	agg := NewAggregator(repo, profile)
	p, err := agg.PartitionedSummary(ctx, jan2026)
	require.NoError(t, err)
	require.Len(t, p.Excluded.Categories, 2)
	require.Len(t, p.Included.Categories, 9)
	require.Equal(t, core.FromReais(8000), p.Excluded.TotalSpent)
	require.Equal(t, core.FromReais(1000), p.Included.TotalSpent)
	require.Equal(t, 90.0, p.SavingsRate)

	s, err := agg.MonthlySummary(ctx, jan2026)
	require.NoError(t, err)
	require.Equal(t, 10.0, s.SavingsRate)
}

func TestSummaryRejectsInvalidMonth(t *testing.T) {
	agg := NewAggregator(newTestLedger(t), config.DefaultProfile())
	_, err := agg.MonthlySummary(context.Background(), core.Month{Year: 2026, Month: 0})
	require.ErrorIs(t, err, core.ErrInvalidMonth)
}
