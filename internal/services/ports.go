package services

import (
	"context"

	"financas/internal/core"
	"financas/internal/storage"
)

// InstallmentStore is the ledger surface the expander needs.
type InstallmentStore interface {
	GetActiveInstallmentPlans(ctx context.Context) ([]core.InstallmentPlan, error)
	InstallmentTransactionExists(ctx context.Context, planID int64, m core.Month) (bool, error)
	AddTransaction(ctx context.Context, in storage.NewTransaction) (storage.AddResult, error)
	SetInstallmentStatus(ctx context.Context, id int64, status core.PlanStatus) error
}

// SummaryStore is the ledger surface the aggregator needs.
type SummaryStore interface {
	MonthlyCategoryTotals(ctx context.Context, m core.Month) ([]storage.CategoryTotal, core.Money, error)
	IncomeForMonth(ctx context.Context, m core.Month) (core.Money, error)
}

// Ledger is everything FinanceService reads and writes.
type Ledger interface {
	InstallmentStore
	SummaryStore
	GetTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	GetCategories(ctx context.Context) ([]core.Category, error)
	SetCategoryBudget(ctx context.Context, name string, budget core.Money) error
	ReassignCategory(ctx context.Context, id int64, categoryName string) error
	DeleteDuplicate(ctx context.Context, id, keepID int64) error
	AddInstallmentPlan(ctx context.Context, p core.InstallmentPlan) (core.InstallmentPlan, error)
	CategoryHistory(ctx context.Context, from, to core.Month) ([]core.CategoryMonthTotal, error)
}

var _ Ledger = (*storage.SQLiteRepository)(nil)
