package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"financas/internal/core"
)

var generated = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

func TestMonthlyReport(t *testing.T) {
	m := core.Month{Year: 2026, Month: 1}
	sum := core.PartitionedSummary{
		Month: m,
		Included: core.SummaryGroup{
			Categories: []core.CategorySummary{
				{Category: "alimentacao", Icon: "🍔", Budget: core.FromReais(1000), Total: core.FromReais(1250), Percent: 125, Status: core.StatusCritical},
				{Category: "lazer", Icon: "🎮", Budget: core.FromReais(1500), Status: core.StatusOK},
			},
			TotalSpent:  core.FromReais(1250),
			TotalBudget: core.FromReais(2500),
		},
		Excluded: core.SummaryGroup{
			Categories: []core.CategorySummary{{Category: "obra", Icon: "🏗️", Budget: core.FromReais(16500), Total: core.FromReais(8000), Percent: 48.5, Status: core.StatusOK}},
			TotalSpent: core.FromReais(8000),
		},
		Income:      core.FromReais(10000),
		SavingsRate: 87.5,
	}
	var txns []core.Transaction
	for i := 0; i < 60; i++ {
		txns = append(txns, core.Transaction{Date: core.NewDate(2026, 1, 1+i%28), Description: "Loja | Centro", Amount: core.FromReais(10), CategoryName: "compras"})
	}

	out, err := Monthly(MonthlyData{Summary: sum, Transactions: txns, GeneratedAt: generated})
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	for _, want := range []string{
		"# Relatório Mensal 2026-01",
		"> Gerado em: 01/02/2026 09:30",
		"| Taxa de poupança | 87.5% |",
		"| 🍔 Alimentacao | R$ 1.000,00 | R$ 1.250,00 | 125.0% | 🔴 crítico |",
		"## Fora do orçamento principal",
		"| 🏗️ Obra | R$ 16.500,00 | R$ 8.000,00 | 48.5% | 🟢 ok |",
		"Loja \\| Centro",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "Loja \\| Centro"); n != MaxTransactions {
		t.Fatalf("expected %d transaction rows, got %d", MaxTransactions, n)
	}
}

func TestMonthlyReportEmpty(t *testing.T) {
	out, err := Monthly(MonthlyData{Summary: core.PartitionedSummary{Month: core.Month{Year: 2026, Month: 3}}, GeneratedAt: generated})
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if !strings.Contains(out, "Nenhuma transação registrada.") || strings.Contains(out, "Fora do orçamento") {
		t.Fatalf("unexpected empty report:\n%s", out)
	}
}

func TestAlertReport(t *testing.T) {
	m := core.Month{Year: 2026, Month: 1}
	alerts := []core.Alert{
		{Type: core.AlertBudgetCritical, Severity: core.SeverityCritical, Category: "lazer", Message: "Lazer CRÍTICO: 130% do orçamento"},
		{Type: core.AlertBudgetExceeded, Severity: core.SeverityWarning, Category: "casa", Message: "Casa excedeu o orçamento: 105%"},
		{Type: core.AlertLargeTransaction, Severity: core.SeverityInfo, Message: "Transação grande: TV - R$ 3.000,00"},
	}
	out, err := Alerts(AlertData{
		Month: m, Alerts: alerts, SavingsRate: 18, SavingsTarget: 28, Income: core.FromReais(10000), GeneratedAt: generated,
	})
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	for _, want := range []string{
		"> Período: 2026-01",
		"| Crítico | 1 |",
		"| **Total** | **3** |",
		"## Alertas Críticos\n\n- Lazer CRÍTICO: 130% do orçamento",
		"## Alertas de Atenção\n\n- Casa excedeu o orçamento: 105%",
		"## Informações\n\n- Transação grande: TV - R$ 3.000,00",
		"- **Revisar**: categorias casa estão acima do orçamento",
		"reduzir gastos em R$ 1.000,00 para atingir a meta de 28.0%",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Alertas Críticos") > strings.Index(out, "Informações") {
		t.Fatal("critical section must come first")
	}
}

func TestAlertReportQuietMonth(t *testing.T) {
	out, err := Alerts(AlertData{Month: core.Month{Year: 2026, Month: 1}, SavingsRate: 40, SavingsTarget: 28, Income: core.FromReais(10000), GeneratedAt: generated})
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if !strings.Contains(out, "Nenhuma ação necessária") {
		t.Fatalf("expected no-action line:\n%s", out)
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	name := FileName("alertas", core.Month{Year: 2026, Month: 1})
	if name != "alertas-2026-01.md" {
		t.Fatalf("FileName = %q", name)
	}
	path, err := Write(dir, name, "# ok\n")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "# ok\n" {
		t.Fatalf("read back %q, %v", data, err)
	}
}
