package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/storage"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	calls  int
	alerts []core.Alert
	err    error
}

func (p *recordingPublisher) PublishAlerts(ctx context.Context, m core.Month, alerts []core.Alert) error {
	p.calls++
	p.alerts = append(p.alerts, alerts...)
	return p.err
}

func newTestService(t *testing.T, pub AlertPublisher, now time.Time) (*FinanceService, *storage.SQLiteRepository) {
	t.Helper()
	repo := newTestLedger(t)
	svc := NewFinanceService(repo, config.DefaultProfile(), pub)
	svc.SetClock(func() time.Time { return now })
	return svc, repo
}

func TestCheckAlertsUsesPartitionedSavingsRate(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, repo := newTestService(t, pub, time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := repo.AddTransaction(ctx, storage.NewTransaction{
		Date: core.NewDate(2026, 1, 15), Description: "Empreiteira", Amount: core.FromReais(45000), CategoryName: "obra",
	})
	require.NoError(t, err)

	alerts, err := svc.CheckAlerts(ctx, 2026, 1)
	require.NoError(t, err)
	require.NotEmpty(t, alerts)
	require.Equal(t, core.AlertBudgetCritical, alerts[0].Type)
	require.Equal(t, "obra", alerts[0].Category)
	for _, a := range alerts {
		switch a.Type {
		case core.AlertSavingsNegative, core.AlertSavingsLow, core.AlertSavingsBelowTarget:
			t.Fatalf("excluded spend must not drive savings alerts: %+v", a)
		}
	}

	require.Equal(t, 1, pub.calls)
	require.Len(t, pub.alerts, len(alerts))
}

func TestCheckAlertsInvalidMonth(t *testing.T) {
	svc, _ := newTestService(t, nil, time.Now())
	_, err := svc.CheckAlerts(context.Background(), 2026, 13)
	require.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestGenerateInstallmentTransactionsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, nil, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.RegisterInstallmentPlan(ctx, "Ar condicionado", core.FromReais(2400), 12, core.NewDate(2026, 1, 3), "casa")
	require.NoError(t, err)

	first, err := svc.GenerateInstallmentTransactions(ctx, 2026, 2)
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := svc.GenerateInstallmentTransactions(ctx, 2026, 2)
	require.NoError(t, err)
	require.Zero(t, second.Created)
	require.Equal(t, 1, second.Skipped)

	feb := core.Month{Year: 2026, Month: 2}
	txns, err := svc.ListTransactions(ctx, storage.TransactionFilter{Month: &feb})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, "Ar condicionado 2/12", txns[0].Description)
	require.Equal(t, core.FromReais(200), txns[0].Amount)
	require.Equal(t, "casa", txns[0].CategoryName)
}

func TestGetActiveInstallments(t *testing.T) {
	svc, _ := newTestService(t, nil, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.RegisterInstallmentPlan(ctx, "Notebook", core.FromReais(3000), 3, core.NewDate(2026, 1, 10), "compras")
	require.NoError(t, err)
	_, err = svc.RegisterInstallmentFromCharge(ctx, "Celular", core.FromReais(100), 4, 10, core.NewDate(2026, 2, 5), "compras")
	require.NoError(t, err)

	list, err := svc.GetActiveInstallments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.Equal(t, "Notebook", list[0].Plan.Description)
	require.Equal(t, 2, list[0].Current)
	require.Equal(t, 1, list[0].Remaining)

	require.Equal(t, "Celular", list[1].Plan.Description)
	require.Equal(t, 4, list[1].Current)
	require.Equal(t, 6, list[1].Remaining)
	require.Equal(t, "2025-11-05", list[1].Plan.StartDate.ISO())
}

func TestCancelInstallmentPlan(t *testing.T) {
	svc, _ := newTestService(t, nil, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	p, err := svc.RegisterInstallmentPlan(ctx, "Sofa", core.FromReais(1200), 6, core.NewDate(2026, 1, 10), "casa")
	require.NoError(t, err)
	_, err = svc.GenerateInstallmentTransactions(ctx, 2026, 2)
	require.NoError(t, err)

	require.NoError(t, svc.CancelInstallmentPlan(ctx, p.ID))
	require.ErrorIs(t, svc.CancelInstallmentPlan(ctx, p.ID), storage.ErrInvalidTransition)

	list, err := svc.GetActiveInstallments(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	res, err := svc.GenerateInstallmentTransactions(ctx, 2026, 3)
	require.NoError(t, err)
	require.Zero(t, res.Created)

	feb := core.Month{Year: 2026, Month: 2}
	txns, err := svc.ListTransactions(ctx, storage.TransactionFilter{Month: &feb})
	require.NoError(t, err)
	require.Len(t, txns, 1)
}

func TestRemoveDuplicates(t *testing.T) {
	svc, repo := newTestService(t, nil, time.Now())
	ctx := context.Background()

	for _, desc := range []string{"Padaria, Ze", "Padaria Ze", "PADARIA-ZE"} {
		res, err := repo.AddTransaction(ctx, storage.NewTransaction{
			Date: core.NewDate(2026, 1, 9), Description: desc, Amount: core.FromReais(12), CategoryName: "alimentacao",
		})
		require.NoError(t, err)
		require.False(t, res.Duplicate, desc)
	}
	_, err := repo.AddTransaction(ctx, storage.NewTransaction{
		Date: core.NewDate(2026, 1, 9), Description: "Padaria Ze", Amount: core.FromReais(13), CategoryName: "alimentacao",
	})
	require.NoError(t, err)

	removed, err := svc.RemoveDuplicates(ctx, 2026, 1)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	txns, err := svc.ListTransactions(ctx, storage.TransactionFilter{Month: &jan2026})
	require.NoError(t, err)
	require.Len(t, txns, 2)

	removed, err = svc.RemoveDuplicates(ctx, 2026, 1)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestCategoryHistoryRange(t *testing.T) {
	svc, repo := newTestService(t, nil, time.Now())
	ctx := context.Background()
	for i, d := range []core.Date{core.NewDate(2026, 1, 5), core.NewDate(2026, 2, 5), core.NewDate(2026, 3, 5)} {
		_, err := repo.AddTransaction(ctx, storage.NewTransaction{
			Date: d, Description: "Academia", Amount: core.FromReais(int64(100 + i)), CategoryName: "saude",
		})
		require.NoError(t, err)
	}

	hist, err := svc.CategoryHistory(ctx, core.Month{Year: 2026, Month: 2}, core.Month{Year: 2026, Month: 3})
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.Equal(t, core.FromReais(101), hist[0].Total)

	_, err = svc.CategoryHistory(ctx, core.Month{Year: 2026, Month: 3}, core.Month{Year: 2026, Month: 2})
	require.ErrorIs(t, err, core.ErrInvalidMonth)
}
