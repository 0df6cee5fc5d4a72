package services

import (
	"fmt"
	"strings"
	"time"

	"financas/internal/config"
	"financas/internal/core"
)

// AlertConfig holds the limits the evaluator compares against.
type AlertConfig struct {
	Thresholds         core.Thresholds
	LargeTransaction   core.Money
	EndingSoonDays     int
	InstallmentCeiling core.Money
	SavingsTarget      float64
}

// AlertConfigFromProfile copies the alert limits out of a household profile.
func AlertConfigFromProfile(p config.Profile) AlertConfig {
	return AlertConfig{
		Thresholds:         p.Thresholds,
		LargeTransaction:   p.LargeTransaction,
		EndingSoonDays:     p.EndingSoonDays,
		InstallmentCeiling: p.InstallmentCeiling,
		SavingsTarget:      p.SavingsTarget,
	}
}

// AlertInput is everything one evaluation looks at. SavingsRate is passed
// explicitly so callers can choose the partitioned rate.
type AlertInput struct {
	Summary      core.MonthlySummary
	SavingsRate  float64
	Transactions []core.Transaction
	ActivePlans  []core.InstallmentPlan
	Today        time.Time
}

// EvaluateAlerts applies every rule independently and returns the alerts
// ordered critical, warning, info. It reads no state besides its arguments.
func EvaluateAlerts(in AlertInput, cfg AlertConfig) []core.Alert {
	m := in.Summary.Month
	var alerts []core.Alert
	add := func(a core.Alert, subject string) {
		a.ID = core.AlertID(a.Type, subject, m)
		a.Month = m
		a.CreatedAt = in.Today
		alerts = append(alerts, a)
	}

	for _, c := range in.Summary.Categories {
		if c.Budget.Cents <= 0 {
			continue
		}
		if a, ok := budgetAlert(c, cfg.Thresholds); ok {
			add(a, c.Category)
		}
	}

	for _, t := range in.Transactions {
		if t.Type != core.Expense || !m.Contains(t.Date) {
			continue
		}
		if cfg.LargeTransaction.Cents <= 0 || t.Amount.Abs().Cents < cfg.LargeTransaction.Cents {
			continue
		}
		add(core.Alert{
			Type:      core.AlertLargeTransaction,
			Severity:  core.SeverityInfo,
			Category:  t.CategoryName,
			Message:   fmt.Sprintf("Transação grande: %s - %s", truncate(t.Description, 30), t.Amount.Abs()),
			Value:     t.Amount.Abs().Reais(),
			Threshold: cfg.LargeTransaction.Reais(),
		}, t.Fingerprint)
	}

	var committed core.Money
	for _, p := range in.ActivePlans {
		if p.Status != core.PlanActive {
			continue
		}
		committed = committed.Add(p.InstallmentAmount)
		days := p.DaysUntilEnd(in.Today)
		if days > 0 && days <= cfg.EndingSoonDays {
			add(core.Alert{
				Type:      core.AlertInstallmentEnding,
				Severity:  core.SeverityInfo,
				Category:  p.CategoryName,
				Message:   fmt.Sprintf("Parcelamento '%s' termina em %d dias", truncate(p.Description, 20), days),
				Value:     float64(days),
				Threshold: float64(cfg.EndingSoonDays),
			}, fmt.Sprintf("plan-%d", p.ID))
		}
	}
	if cfg.InstallmentCeiling.Cents > 0 && committed.Cents > cfg.InstallmentCeiling.Cents {
		add(core.Alert{
			Type:      core.AlertInstallmentsHigh,
			Severity:  core.SeverityWarning,
			Message:   fmt.Sprintf("Total comprometido em parcelamentos: %s/mês", committed),
			Value:     committed.Reais(),
			Threshold: cfg.InstallmentCeiling.Reais(),
		}, "installments")
	}

	if in.Summary.Income.Cents > 0 {
		if a, ok := savingsAlert(in.SavingsRate, cfg.SavingsTarget); ok {
			add(a, "savings")
		}
	}

	core.SortAlerts(alerts)
	return alerts
}

func budgetAlert(c core.CategorySummary, th core.Thresholds) (core.Alert, bool) {
	name := titleCase(c.Category)
	a := core.Alert{Category: c.Category, Value: c.Percent}
	over := c.Total.Sub(c.Budget)
	if over.Cents < 0 {
		over = core.Money{}
	}
	switch {
	case c.Percent >= th.Critical:
		a.Type, a.Severity, a.Threshold = core.AlertBudgetCritical, core.SeverityCritical, th.Critical
		a.Message = fmt.Sprintf("%s %s CRÍTICO: %.0f%% do orçamento (+%s)", c.Icon, name, c.Percent, over)
	case c.Percent >= th.Exceeded:
		a.Type, a.Severity, a.Threshold = core.AlertBudgetExceeded, core.SeverityWarning, th.Exceeded
		a.Message = fmt.Sprintf("%s %s excedeu o orçamento: %.0f%% (+%s)", c.Icon, name, c.Percent, over)
	case c.Percent >= th.Notice:
		a.Type, a.Severity, a.Threshold = core.AlertBudgetWarning, core.SeverityInfo, th.Notice
		a.Message = fmt.Sprintf("%s %s em %.0f%% do orçamento (resta %s)", c.Icon, name, c.Percent, c.Remaining())
	default:
		return core.Alert{}, false
	}
	a.Message = strings.TrimSpace(a.Message)
	return a, true
}

func savingsAlert(rate, target float64) (core.Alert, bool) {
	a := core.Alert{Value: rate, Threshold: target}
	switch {
	case rate < 0:
		a.Type, a.Severity, a.Threshold = core.AlertSavingsNegative, core.SeverityCritical, 0
		a.Message = fmt.Sprintf("Taxa de poupança NEGATIVA: %.1f%% (gastando mais do que ganha)", rate)
	case rate < target-10:
		a.Type, a.Severity = core.AlertSavingsLow, core.SeverityWarning
		a.Message = fmt.Sprintf("Taxa de poupança baixa: %.1f%% (meta: %.0f%%)", rate, target)
	case rate < target:
		a.Type, a.Severity = core.AlertSavingsBelowTarget, core.SeverityInfo
		a.Message = fmt.Sprintf("Taxa de poupança: %.1f%% (meta: %.0f%%)", rate, target)
	default:
		return core.Alert{}, false
	}
	return a, true
}

func titleCase(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
