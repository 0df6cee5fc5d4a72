package services

import (
	"context"
	"strings"
	"testing"

	"financas/internal/categorize"
	"financas/internal/core"
	"financas/internal/statement"
	"financas/internal/storage"

	"github.com/stretchr/testify/require"
)

func TestImportStatement(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	im := NewImporter(repo, nil, false)

	input := strings.Join([]string{
		"# fatura janeiro",
		"15/01/2026 | IFOOD *RESTAURANTE | R$ 45,90",
		"15/01/2026 | ifood *restaurante | 45,90",
		"16/01/2026 | Agencia de turismo | 1.200,00 | viagem",
		"18/01/2026 | ESTORNO NETFLIX | -55,90 | assinaturas",
		"isto nao e uma linha",
	}, "\n")

	res, err := im.Import(ctx, strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 3, res.Imported)
	require.Equal(t, 1, res.Duplicates)
	require.Equal(t, 1, res.Uncategorized)
	require.Len(t, res.Errors, 1)

	txns, err := repo.GetTransactions(ctx, storage.TransactionFilter{Month: &jan2026})
	require.NoError(t, err)
	require.Len(t, txns, 3)

	byDesc := make(map[string]core.Transaction)
	for _, tx := range txns {
		byDesc[tx.Description] = tx
		require.Equal(t, core.SourceStatement, tx.Source)
	}
	require.Equal(t, "alimentacao", byDesc["IFOOD *RESTAURANTE"].CategoryName)
	require.False(t, byDesc["Agencia de turismo"].Categorized())
	refund := byDesc["ESTORNO NETFLIX"]
	require.Equal(t, core.Refund, refund.Type)
	require.Equal(t, int64(-5590), refund.Amount.Cents)
}

func TestImportRegistersInstallmentPlans(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	cat := categorize.New([]categorize.Rule{{Category: "casa", Keywords: []string{"magalu"}}}, "compras")
	im := NewImporter(repo, cat, true)

	lines := []statement.Line{{
		Date:               core.NewDate(2026, 1, 12),
		Description:        "MAGALU 2/10",
		Amount:             core.FromReais(150),
		InstallmentCurrent: 2,
		InstallmentTotal:   10,
	}}
	res, err := im.ImportLines(ctx, lines)
	require.NoError(t, err)
	require.Equal(t, 1, res.Imported)
	require.Equal(t, 1, res.PlansCreated)
	require.Empty(t, res.Errors)

	plans, err := repo.GetActiveInstallmentPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "MAGALU", plans[0].Description)
	require.Equal(t, "casa", plans[0].CategoryName)
	require.Equal(t, "2025-12-12", plans[0].StartDate.ISO())

	exp := NewInstallmentExpander(repo, 10)
	jan, err := exp.Expand(ctx, jan2026)
	require.NoError(t, err)
	require.Zero(t, jan.Created)
	require.Equal(t, 1, jan.Skipped)

	feb, err := exp.Expand(ctx, core.Month{Year: 2026, Month: 2})
	require.NoError(t, err)
	require.Equal(t, 1, feb.Created)

	again, err := im.ImportLines(ctx, lines)
	require.NoError(t, err)
	require.Equal(t, 1, again.Duplicates)
	require.Zero(t, again.PlansCreated)
}

func TestImportConsecutiveStatementsKeepsOnePlan(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	cat := categorize.New([]categorize.Rule{{Category: "casa", Keywords: []string{"magalu", "tokstok"}}}, "compras")
	im := NewImporter(repo, cat, true)
	exp := NewInstallmentExpander(repo, 10)
	feb := core.Month{Year: 2026, Month: 2}
	mar := core.Month{Year: 2026, Month: 3}

	jan, err := im.ImportLines(ctx, []statement.Line{
		{Date: core.NewDate(2026, 1, 12), Description: "MAGALU 2/10", Amount: core.FromReais(150), InstallmentCurrent: 2, InstallmentTotal: 10},
		{Date: core.NewDate(2026, 1, 14), Description: "TOKSTOK 1/4", Amount: core.FromReais(400), InstallmentCurrent: 1, InstallmentTotal: 4},
	})
	require.NoError(t, err)
	require.Equal(t, 2, jan.PlansCreated)

	// MAGALU February is booked by the expander before the statement arrives.
	_, err = exp.Expand(ctx, feb)
	require.NoError(t, err)

	febRes, err := im.ImportLines(ctx, []statement.Line{
		{Date: core.NewDate(2026, 2, 12), Description: "MAGALU 3/10", Amount: core.FromReais(150), InstallmentCurrent: 3, InstallmentTotal: 10},
	})
	require.NoError(t, err)
	require.Zero(t, febRes.PlansCreated)
	require.Zero(t, febRes.Imported)
	require.Equal(t, 1, febRes.Materialized)

	// TOKSTOK March arrives before the expander runs and is linked instead.
	marRes, err := im.ImportLines(ctx, []statement.Line{
		{Date: core.NewDate(2026, 3, 14), Description: "TOKSTOK 3/4", Amount: core.FromReais(400), InstallmentCurrent: 3, InstallmentTotal: 4},
	})
	require.NoError(t, err)
	require.Zero(t, marRes.PlansCreated)
	require.Equal(t, 1, marRes.Imported)
	require.Equal(t, 1, marRes.PlansLinked)

	plans, err := repo.GetActiveInstallmentPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	febTotals, _, err := repo.MonthlyCategoryTotals(ctx, feb)
	require.NoError(t, err)
	for _, ct := range febTotals {
		if ct.Category.Name == "casa" {
			require.Equal(t, int64(55000), ct.Total.Cents)
		}
	}

	marExp, err := exp.Expand(ctx, mar)
	require.NoError(t, err)
	require.Equal(t, 1, marExp.Created)
	marTxns, err := repo.GetTransactions(ctx, storage.TransactionFilter{Month: &mar, Category: "casa"})
	require.NoError(t, err)
	require.Len(t, marTxns, 2)
}
