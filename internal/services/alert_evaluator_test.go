package services

import (
	"strings"
	"testing"
	"time"

	"financas/internal/config"
	"financas/internal/core"
)

func categoryAt(name string, budget int64, percent float64) core.CategorySummary {
	b := core.FromReais(budget)
	total := core.Money{Cents: int64(float64(b.Cents) * percent / 100)}
	return core.CategorySummary{
		Category: name,
		Budget:   b,
		Total:    total,
		Percent:  percent,
		Status:   core.DefaultThresholds().StatusFor(percent),
	}
}

func TestEvaluateAlertsRanking(t *testing.T) {
	in := AlertInput{
		Summary: core.MonthlySummary{
			Month: jan2026,
			Categories: []core.CategorySummary{
				categoryAt("lazer", 1000, 85),
				categoryAt("saude", 1000, 40),
				categoryAt("transporte", 1000, 105),
				categoryAt("compras", 1000, 125),
			},
		},
		Today: time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
	}
	alerts := EvaluateAlerts(in, AlertConfigFromProfile(config.DefaultProfile()))

	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d: %+v", len(alerts), alerts)
	}
	want := []struct {
		typ      core.AlertType
		severity core.Severity
		category string
	}{
		{core.AlertBudgetCritical, core.SeverityCritical, "compras"},
		{core.AlertBudgetExceeded, core.SeverityWarning, "transporte"},
		{core.AlertBudgetWarning, core.SeverityInfo, "lazer"},
	}
	for i, w := range want {
		a := alerts[i]
		if a.Type != w.typ || a.Severity != w.severity || a.Category != w.category {
			t.Fatalf("alert %d = %s/%s/%s, want %s/%s/%s", i, a.Type, a.Severity, a.Category, w.typ, w.severity, w.category)
		}
		if a.ID == "" || a.Month != jan2026 {
			t.Fatalf("alert %d missing id or month: %+v", i, a)
		}
	}
	if !strings.Contains(alerts[0].Message, "R$ 250,00") {
		t.Fatalf("critical message should carry the overage: %q", alerts[0].Message)
	}
	if !strings.Contains(alerts[2].Message, "resta R$ 150,00") {
		t.Fatalf("notice message should carry the headroom: %q", alerts[2].Message)
	}
}

func TestEvaluateAlertsSkipsZeroBudget(t *testing.T) {
	c := categoryAt("casa", 0, 0)
	c.Total = core.FromReais(5000)
	alerts := EvaluateAlerts(AlertInput{
		Summary: core.MonthlySummary{Month: jan2026, Categories: []core.CategorySummary{c}},
	}, AlertConfigFromProfile(config.DefaultProfile()))
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
}

func TestEvaluateAlertsTransactionsAndPlans(t *testing.T) {
	today := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	ending := core.InstallmentPlan{
		ID: 1, Description: "Geladeira", InstallmentAmount: core.FromReais(3000), TotalInstallments: 3,
		StartDate: core.NewDate(2025, 11, 30), EndDate: core.NewDate(2026, 1, 30), Status: core.PlanActive,
	}
	running := core.InstallmentPlan{
		ID: 2, Description: "Carro", InstallmentAmount: core.FromReais(3000), TotalInstallments: 6,
		StartDate: core.NewDate(2026, 1, 5), EndDate: core.NewDate(2026, 6, 5), Status: core.PlanActive,
	}
	in := AlertInput{
		Summary: core.MonthlySummary{Month: jan2026},
		Transactions: []core.Transaction{
			{Date: core.NewDate(2026, 1, 4), Description: "Passagem aerea", Amount: core.FromReais(1500), Type: core.Expense, Fingerprint: "a"},
			{Date: core.NewDate(2026, 1, 5), Description: "Salario", Amount: core.FromReais(9000), Type: core.Income, Fingerprint: "b"},
			{Date: core.NewDate(2025, 12, 30), Description: "Hotel", Amount: core.FromReais(2000), Type: core.Expense, Fingerprint: "c"},
			{Date: core.NewDate(2026, 1, 6), Description: "Padaria", Amount: core.FromReais(20), Type: core.Expense, Fingerprint: "d"},
		},
		ActivePlans: []core.InstallmentPlan{ending, running},
		Today:       today,
	}

	alerts := EvaluateAlerts(in, AlertConfigFromProfile(config.DefaultProfile()))
	got := make([]core.AlertType, len(alerts))
	for i, a := range alerts {
		got[i] = a.Type
	}
	want := []core.AlertType{core.AlertInstallmentsHigh, core.AlertLargeTransaction, core.AlertInstallmentEnding}
	if len(got) != len(want) {
		t.Fatalf("alerts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("alerts = %v, want %v", got, want)
		}
	}
	if alerts[0].Value != 6000 {
		t.Fatalf("committed = %v, want 6000", alerts[0].Value)
	}
	if alerts[2].Value != 20 {
		t.Fatalf("days until end = %v, want 20", alerts[2].Value)
	}
}

func TestEvaluateAlertsSavings(t *testing.T) {
	cfg := AlertConfigFromProfile(config.DefaultProfile())
	cases := []struct {
		rate float64
		want core.AlertType
	}{
		{-5, core.AlertSavingsNegative},
		{15, core.AlertSavingsLow},
		{25, core.AlertSavingsBelowTarget},
		{30, ""},
	}
	for _, tc := range cases {
		alerts := EvaluateAlerts(AlertInput{
			Summary:     core.MonthlySummary{Month: jan2026, Income: core.FromReais(1000)},
			SavingsRate: tc.rate,
		}, cfg)
		if tc.want == "" {
			if len(alerts) != 0 {
				t.Fatalf("rate %.0f: expected no alert, got %+v", tc.rate, alerts)
			}
			continue
		}
		if len(alerts) != 1 || alerts[0].Type != tc.want {
			t.Fatalf("rate %.0f: got %+v, want %s", tc.rate, alerts, tc.want)
		}
	}

	alerts := EvaluateAlerts(AlertInput{Summary: core.MonthlySummary{Month: jan2026}, SavingsRate: -50}, cfg)
	if len(alerts) != 0 {
		t.Fatalf("zero income must not raise savings alerts: %+v", alerts)
	}
}

func TestEvaluateAlertsCountsPlansNotYetStarted(t *testing.T) {
	current := core.InstallmentPlan{
		ID: 1, Description: "Sofa", InstallmentAmount: core.FromReais(3000), TotalInstallments: 10,
		StartDate: core.NewDate(2026, 1, 10), EndDate: core.NewDate(2026, 10, 10), Status: core.PlanActive,
	}
	signed := core.InstallmentPlan{
		ID: 2, Description: "Cozinha planejada", InstallmentAmount: core.FromReais(3000), TotalInstallments: 10,
		StartDate: core.NewDate(2026, 3, 10), EndDate: core.NewDate(2026, 12, 10), Status: core.PlanActive,
	}
	alerts := EvaluateAlerts(AlertInput{
		Summary:     core.MonthlySummary{Month: jan2026},
		ActivePlans: []core.InstallmentPlan{current, signed},
		Today:       time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}, AlertConfigFromProfile(config.DefaultProfile()))

	if len(alerts) != 1 || alerts[0].Type != core.AlertInstallmentsHigh {
		t.Fatalf("expected one installments_high alert, got %+v", alerts)
	}
	if alerts[0].Value != 6000 || alerts[0].Severity != core.SeverityWarning {
		t.Fatalf("committed = %v/%s, want 6000/warning", alerts[0].Value, alerts[0].Severity)
	}
}

func TestBudgetAlertRoundedUpToLimitHasNoNegativeOverage(t *testing.T) {
	c := core.CategorySummary{
		Category: "mercado",
		Budget:   core.FromReais(100),
		Total:    core.Money{Cents: 9996},
		Percent:  100.0,
	}
	alerts := EvaluateAlerts(AlertInput{
		Summary: core.MonthlySummary{Month: jan2026, Categories: []core.CategorySummary{c}},
	}, AlertConfigFromProfile(config.DefaultProfile()))

	if len(alerts) != 1 || alerts[0].Type != core.AlertBudgetExceeded {
		t.Fatalf("expected budget_exceeded, got %+v", alerts)
	}
	if strings.Contains(alerts[0].Message, "-") || !strings.Contains(alerts[0].Message, "(+R$ 0,00)") {
		t.Fatalf("overage must not be negative: %q", alerts[0].Message)
	}
}
