package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financas/internal/core"
	"financas/internal/forecast"
	"financas/internal/services"
	"financas/internal/storage"

	"github.com/shopspring/decimal"
)

// amount renders cents as a fixed two-decimal string so clients never see
// float rounding.
func amount(m core.Money) string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

type categoryJSON struct {
	Category  string  `json:"category"`
	Icon      string  `json:"icon,omitempty"`
	Budget    string  `json:"budget"`
	Total     string  `json:"total"`
	Remaining string  `json:"remaining"`
	Percent   float64 `json:"percent"`
	Status    string  `json:"status"`
	Excluded  bool    `json:"excluded"`
}

type summaryJSON struct {
	Month          string         `json:"month"`
	Categories     []categoryJSON `json:"categories"`
	Uncategorized  string         `json:"uncategorized"`
	TotalSpent     string         `json:"total_spent"`
	TotalBudget    string         `json:"total_budget"`
	Income         string         `json:"income"`
	RecordedIncome string         `json:"recorded_income"`
	SavingsRate    float64        `json:"savings_rate"`
}

type groupJSON struct {
	Categories  []categoryJSON `json:"categories"`
	TotalSpent  string         `json:"total_spent"`
	TotalBudget string         `json:"total_budget"`
}

type partitionedJSON struct {
	Month          string    `json:"month"`
	Included       groupJSON `json:"included"`
	Excluded       groupJSON `json:"excluded"`
	Uncategorized  string    `json:"uncategorized"`
	Income         string    `json:"income"`
	RecordedIncome string    `json:"recorded_income"`
	SavingsRate    float64   `json:"savings_rate"`
}

type transactionJSON struct {
	ID             int64  `json:"id"`
	Date           string `json:"date"`
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	Type           string `json:"type"`
	Category       string `json:"category,omitempty"`
	Source         string `json:"source"`
	InstallmentID  *int64 `json:"installment_id,omitempty"`
	InstallmentSeq *int   `json:"installment_seq,omitempty"`
}

type installmentJSON struct {
	ID                int64  `json:"id"`
	Description       string `json:"description"`
	Category          string `json:"category,omitempty"`
	TotalAmount       string `json:"total_amount"`
	InstallmentAmount string `json:"installment_amount"`
	Total             int    `json:"total_installments"`
	Current           int    `json:"current"`
	Remaining         int    `json:"remaining"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	DaysUntilEnd      int    `json:"days_until_end"`
}

type alertJSON struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Severity  string  `json:"severity"`
	Category  string  `json:"category,omitempty"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

type alertsJSON struct {
	Month  string         `json:"month"`
	Counts map[string]int `json:"counts"`
	Alerts []alertJSON    `json:"alerts"`
}

type categoryInfoJSON struct {
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Budget   string `json:"budget"`
	Excluded bool   `json:"excluded"`
}

type categoriesJSON struct {
	Categories []categoryInfoJSON `json:"categories"`
}

type reassignJSON struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
}

type cancelJSON struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type expansionJSON struct {
	Month    string   `json:"month"`
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Drifted  int      `json:"drifted"`
	Errors   int      `json:"errors"`
	Failures []string `json:"failures,omitempty"`
}

type predictionJSON struct {
	Category   string  `json:"category"`
	Month      string  `json:"month"`
	Predicted  string  `json:"predicted"`
	Lower      string  `json:"lower"`
	Upper      string  `json:"upper"`
	Confidence float64 `json:"confidence"`
	Points     int     `json:"points"`
}

type trendJSON struct {
	Category      string  `json:"category"`
	Trend         string  `json:"trend"`
	ChangePct     float64 `json:"change_pct"`
	RecentAvg     string  `json:"recent_avg"`
	HistoricalAvg string  `json:"historical_avg"`
}

type anomalyJSON struct {
	Category string  `json:"category"`
	Month    string  `json:"month"`
	Total    string  `json:"total"`
	Mean     string  `json:"mean"`
	ZScore   float64 `json:"z_score"`
	Expected string  `json:"expected_range"`
}

type forecastJSON struct {
	Status      string           `json:"status"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Predictions []predictionJSON `json:"predictions,omitempty"`
	Trends      []trendJSON      `json:"trends,omitempty"`
	Anomalies   []anomalyJSON    `json:"anomalies,omitempty"`
}

type utilizationJSON struct {
	Category string  `json:"category"`
	Budget   string  `json:"budget"`
	Average  string  `json:"average"`
	Max      string  `json:"max"`
	Percent  float64 `json:"percent"`
	Status   string  `json:"status"`
	Months   int     `json:"months"`
}

type recommendationJSON struct {
	Category   string  `json:"category"`
	Current    string  `json:"current"`
	Suggested  string  `json:"suggested"`
	Change     string  `json:"change"`
	ChangePct  float64 `json:"change_pct"`
	Reason     string  `json:"reason"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

type simulationJSON struct {
	Scenario       string            `json:"scenario"`
	CurrentTotal   string            `json:"current_total"`
	NewTotal       string            `json:"new_total"`
	MonthlySavings string            `json:"monthly_savings"`
	AnnualSavings  string            `json:"annual_savings"`
	Budgets        map[string]string `json:"budgets"`
}

type recommendationsJSON struct {
	Status          string               `json:"status"`
	From            string               `json:"from"`
	To              string               `json:"to"`
	Utilization     []utilizationJSON    `json:"utilization,omitempty"`
	Recommendations []recommendationJSON `json:"recommendations,omitempty"`
	Simulation      *simulationJSON      `json:"simulation,omitempty"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func toCategories(rows []core.CategorySummary) []categoryJSON {
	out := make([]categoryJSON, 0, len(rows))
	for _, c := range rows {
		out = append(out, categoryJSON{
			Category:  c.Category,
			Icon:      c.Icon,
			Budget:    amount(c.Budget),
			Total:     amount(c.Total),
			Remaining: amount(c.Remaining()),
			Percent:   c.Percent,
			Status:    string(c.Status),
			Excluded:  c.Excluded,
		})
	}
	return out
}

func toSummary(s core.MonthlySummary) summaryJSON {
	return summaryJSON{
		Month:          s.Month.String(),
		Categories:     toCategories(s.Categories),
		Uncategorized:  amount(s.Uncategorized),
		TotalSpent:     amount(s.TotalSpent),
		TotalBudget:    amount(s.TotalBudget),
		Income:         amount(s.Income),
		RecordedIncome: amount(s.RecordedIncome),
		SavingsRate:    s.SavingsRate,
	}
}

func toGroup(g core.SummaryGroup) groupJSON {
	return groupJSON{
		Categories:  toCategories(g.Categories),
		TotalSpent:  amount(g.TotalSpent),
		TotalBudget: amount(g.TotalBudget),
	}
}

func toPartitioned(p core.PartitionedSummary) partitionedJSON {
	return partitionedJSON{
		Month:          p.Month.String(),
		Included:       toGroup(p.Included),
		Excluded:       toGroup(p.Excluded),
		Uncategorized:  amount(p.Uncategorized),
		Income:         amount(p.Income),
		RecordedIncome: amount(p.RecordedIncome),
		SavingsRate:    p.SavingsRate,
	}
}

func toCategoryList(cats []core.Category) categoriesJSON {
	out := categoriesJSON{Categories: make([]categoryInfoJSON, 0, len(cats))}
	for _, c := range cats {
		out.Categories = append(out.Categories, categoryInfoJSON{
			Name:     c.Name,
			Icon:     c.Icon,
			Budget:   amount(c.Budget),
			Excluded: c.Excluded,
		})
	}
	return out
}

func toTransactions(txns []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionJSON{
			ID:             t.ID,
			Date:           t.Date.ISO(),
			Description:    t.Description,
			Amount:         amount(t.Amount),
			Type:           string(t.Type),
			Category:       t.CategoryName,
			Source:         string(t.Source),
			InstallmentID:  t.InstallmentID,
			InstallmentSeq: t.InstallmentSeq,
		})
	}
	return out
}

func toInstallments(list []services.InstallmentStatus) []installmentJSON {
	out := make([]installmentJSON, 0, len(list))
	for _, s := range list {
		p := s.Plan
		out = append(out, installmentJSON{
			ID:                p.ID,
			Description:       p.Description,
			Category:          p.CategoryName,
			TotalAmount:       amount(p.TotalAmount),
			InstallmentAmount: amount(p.InstallmentAmount),
			Total:             p.TotalInstallments,
			Current:           s.Current,
			Remaining:         s.Remaining,
			StartDate:         p.StartDate.ISO(),
			EndDate:           p.EndDate.ISO(),
			DaysUntilEnd:      s.DaysUntilEnd,
		})
	}
	return out
}

func toAlerts(m core.Month, alerts []core.Alert) alertsJSON {
	counts := map[string]int{
		string(core.SeverityCritical): 0,
		string(core.SeverityWarning):  0,
		string(core.SeverityInfo):     0,
	}
	for sev, n := range core.CountBySeverity(alerts) {
		counts[string(sev)] = n
	}
	out := alertsJSON{Month: m.String(), Counts: counts, Alerts: make([]alertJSON, 0, len(alerts))}
	for _, a := range alerts {
		out.Alerts = append(out.Alerts, alertJSON{
			ID:        a.ID,
			Type:      string(a.Type),
			Severity:  string(a.Severity),
			Category:  a.Category,
			Message:   a.Message,
			Value:     a.Value,
			Threshold: a.Threshold,
		})
	}
	return out
}

func toExpansion(r services.ExpansionResult) expansionJSON {
	out := expansionJSON{
		Month:   r.Month.String(),
		Created: r.Created,
		Skipped: r.Skipped,
		Drifted: r.Drifted,
		Errors:  r.Errors,
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, f.Description+": "+f.Err.Error())
	}
	return out
}

func toPredictions(preds []forecast.Prediction) []predictionJSON {
	out := make([]predictionJSON, 0, len(preds))
	for _, p := range preds {
		out = append(out, predictionJSON{
			Category:   p.Category,
			Month:      p.Month.String(),
			Predicted:  amount(p.Predicted),
			Lower:      amount(p.Lower),
			Upper:      amount(p.Upper),
			Confidence: p.Confidence,
			Points:     p.Points,
		})
	}
	return out
}

func toTrends(trends []forecast.TrendAnalysis) []trendJSON {
	out := make([]trendJSON, 0, len(trends))
	for _, t := range trends {
		out = append(out, trendJSON{
			Category:      t.Category,
			Trend:         string(t.Trend),
			ChangePct:     t.ChangePct,
			RecentAvg:     amount(t.RecentAvg),
			HistoricalAvg: amount(t.HistoricalAvg),
		})
	}
	return out
}

func toAnomalies(list []forecast.Anomaly) []anomalyJSON {
	out := make([]anomalyJSON, 0, len(list))
	for _, a := range list {
		out = append(out, anomalyJSON{
			Category: a.Category,
			Month:    a.Month.String(),
			Total:    amount(a.Total),
			Mean:     amount(a.Mean),
			ZScore:   a.ZScore,
			Expected: amount(a.Lower) + " - " + amount(a.Upper),
		})
	}
	return out
}

func toRecommendations(utils []forecast.Utilization, recs []forecast.Recommendation, sim forecast.Simulation) recommendationsJSON {
	out := recommendationsJSON{Status: "ok"}
	for _, u := range utils {
		out.Utilization = append(out.Utilization, utilizationJSON{
			Category: u.Category,
			Budget:   amount(u.Budget),
			Average:  amount(u.Average),
			Max:      amount(u.Max),
			Percent:  u.Percent,
			Status:   string(u.Status),
			Months:   u.Months,
		})
	}
	for _, r := range recs {
		out.Recommendations = append(out.Recommendations, recommendationJSON{
			Category:   r.Category,
			Current:    amount(r.Current),
			Suggested:  amount(r.Suggested),
			Change:     amount(r.Change),
			ChangePct:  r.ChangePct,
			Reason:     r.Reason,
			Priority:   string(r.Priority),
			Confidence: r.Confidence,
		})
	}
	sj := simulationJSON{
		Scenario:       string(sim.Scenario),
		CurrentTotal:   amount(sim.CurrentTotal),
		NewTotal:       amount(sim.NewTotal),
		MonthlySavings: amount(sim.MonthlySavings),
		AnnualSavings:  amount(sim.AnnualSavings),
		Budgets:        make(map[string]string, len(sim.Budgets)),
	}
	for name, b := range sim.Budgets {
		sj.Budgets[name] = amount(b)
	}
	out.Simulation = &sj
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors to status codes. Anything unrecognized is
// logged and reported as a 500 without its detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, core.ErrInvalidMonth), errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, storage.ErrInvalidTransition):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, storage.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "ledger unavailable"
	}
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorJSON{Error: msg})
}
