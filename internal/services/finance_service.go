package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/storage"
)

// maxMonthTransactions bounds the rows read for alert evaluation and cleanup.
const maxMonthTransactions = 5000

// AlertPublisher forwards evaluated alerts to a broker.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, m core.Month, alerts []core.Alert) error
}

// InstallmentStatus is an active plan as seen from a given month.
type InstallmentStatus struct {
	Plan         core.InstallmentPlan `json:"plan"`
	Current      int                  `json:"current"`
	Remaining    int                  `json:"remaining"`
	DaysUntilEnd int                  `json:"days_until_end"`
}

// FinanceService is the entry point used by the API, the workers and the
// report command.
type FinanceService struct {
	ledger     Ledger
	aggregator *Aggregator
	expander   *InstallmentExpander
	alertCfg   AlertConfig
	publisher  AlertPublisher
	now        func() time.Time
}

func NewFinanceService(ledger Ledger, profile config.Profile, publisher AlertPublisher) *FinanceService {
	return &FinanceService{
		ledger:     ledger,
		aggregator: NewAggregator(ledger, profile),
		expander:   NewInstallmentExpander(ledger, profile.AnchorDay),
		alertCfg:   AlertConfigFromProfile(profile),
		publisher:  publisher,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Used by tests and backfills.
func (s *FinanceService) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the service clock.
func (s *FinanceService) Now() time.Time {
	return s.now()
}

// Expander exposes the installment expander for batch jobs.
func (s *FinanceService) Expander() *InstallmentExpander {
	return s.expander
}

func (s *FinanceService) GetMonthlySummary(ctx context.Context, year, month int) (core.MonthlySummary, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return s.aggregator.MonthlySummary(ctx, m)
}

func (s *FinanceService) GetPartitionedSummary(ctx context.Context, year, month int) (core.PartitionedSummary, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return core.PartitionedSummary{}, err
	}
	return s.aggregator.PartitionedSummary(ctx, m)
}

// GetActiveInstallments lists active plans, soonest-ending first, with their
// position relative to the current month.
func (s *FinanceService) GetActiveInstallments(ctx context.Context) ([]InstallmentStatus, error) {
	plans, err := s.ledger.GetActiveInstallmentPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active plans: %w", err)
	}
	now := s.now()
	m := core.MonthOf(now)
	out := make([]InstallmentStatus, 0, len(plans))
	for _, p := range plans {
		cur := p.IndexFor(m)
		if cur < 1 {
			cur = 0
		}
		if cur > p.TotalInstallments {
			cur = p.TotalInstallments
		}
		out = append(out, InstallmentStatus{
			Plan:         p,
			Current:      cur,
			Remaining:    p.Remaining(m),
			DaysUntilEnd: p.DaysUntilEnd(now),
		})
	}
	return out, nil
}

// CheckAlerts evaluates every alert rule for the month. The savings rules use
// the partitioned rate so excluded categories do not distort it. When a
// publisher is configured the alerts are also forwarded; a publish failure is
// logged and does not fail the call.
func (s *FinanceService) CheckAlerts(ctx context.Context, year, month int) ([]core.Alert, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return nil, err
	}
	summary, err := s.aggregator.MonthlySummary(ctx, m)
	if err != nil {
		return nil, err
	}
	partitioned, err := s.aggregator.PartitionedSummary(ctx, m)
	if err != nil {
		return nil, err
	}
	txns, err := s.ledger.GetTransactions(ctx, storage.TransactionFilter{Month: &m, Limit: maxMonthTransactions})
	if err != nil {
		return nil, fmt.Errorf("transactions for %s: %w", m, err)
	}
	plans, err := s.ledger.GetActiveInstallmentPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active plans: %w", err)
	}

	alerts := EvaluateAlerts(AlertInput{
		Summary:      summary,
		SavingsRate:  partitioned.SavingsRate,
		Transactions: txns,
		ActivePlans:  plans,
		Today:        s.now(),
	}, s.alertCfg)

	counts := core.CountBySeverity(alerts)
	slog.InfoContext(ctx, "Alerts evaluated",
		"month", m.String(),
		"critical", counts[core.SeverityCritical],
		"warning", counts[core.SeverityWarning],
		"info", counts[core.SeverityInfo])

	if s.publisher != nil && len(alerts) > 0 {
		if err := s.publisher.PublishAlerts(ctx, m, alerts); err != nil {
			slog.ErrorContext(ctx, "Failed to publish alerts", "month", m.String(), "error", err)
		}
	}
	return alerts, nil
}

// GenerateInstallmentTransactions materializes the installments due in the
// month. Safe to call repeatedly.
func (s *FinanceService) GenerateInstallmentTransactions(ctx context.Context, year, month int) (ExpansionResult, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return ExpansionResult{Month: m}, err
	}
	return s.expander.Expand(ctx, m)
}

// RemoveDuplicates deletes rows of the month that share date, signed amount
// and description (ignoring case and punctuation), keeping the lowest id of
// each group. It returns how many rows were removed.
func (s *FinanceService) RemoveDuplicates(ctx context.Context, year, month int) (int, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return 0, err
	}
	txns, err := s.ledger.GetTransactions(ctx, storage.TransactionFilter{Month: &m, Limit: maxMonthTransactions})
	if err != nil {
		return 0, fmt.Errorf("transactions for %s: %w", m, err)
	}

	groups := make(map[string][]int64)
	for _, t := range txns {
		k := core.ContentKey(t.Date, t.Description, t.Amount)
		groups[k] = append(groups[k], t.ID)
	}

	removed := 0
	for _, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		keep := ids[0]
		for _, id := range ids[1:] {
			if err := s.ledger.DeleteDuplicate(ctx, id, keep); err != nil {
				if errors.Is(err, storage.ErrStoreUnavailable) {
					return removed, err
				}
				slog.WarnContext(ctx, "Duplicate not removed", "id", id, "kept_id", keep, "error", err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Duplicates removed", "month", m.String(), "count", removed)
	}
	return removed, nil
}

// RegisterInstallmentPlan stores a new plan splitting total into n parts from
// start.
func (s *FinanceService) RegisterInstallmentPlan(ctx context.Context, description string, total core.Money, n int, start core.Date, category string) (core.InstallmentPlan, error) {
	p, err := core.NewInstallmentPlan(description, total, n, start, category)
	if err != nil {
		return core.InstallmentPlan{}, err
	}
	return s.ledger.AddInstallmentPlan(ctx, p)
}

// RegisterInstallmentFromCharge stores a plan first seen on a statement as
// installment current of total charged on the given date.
func (s *FinanceService) RegisterInstallmentFromCharge(ctx context.Context, description string, perInstallment core.Money, current, total int, charged core.Date, category string) (core.InstallmentPlan, error) {
	p, err := core.NewInstallmentPlanFromCharge(description, perInstallment, current, total, charged, category)
	if err != nil {
		return core.InstallmentPlan{}, err
	}
	return s.ledger.AddInstallmentPlan(ctx, p)
}

// CancelInstallmentPlan stops an active plan; months already materialized
// stay in the ledger.
func (s *FinanceService) CancelInstallmentPlan(ctx context.Context, id int64) error {
	return s.ledger.SetInstallmentStatus(ctx, id, core.PlanCancelled)
}

// ListCategories returns every category with its budget, ordered by name.
func (s *FinanceService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.ledger.GetCategories(ctx)
}

// SetCategoryBudget changes a category's monthly budget.
func (s *FinanceService) SetCategoryBudget(ctx context.Context, name string, budget core.Money) error {
	return s.ledger.SetCategoryBudget(ctx, name, budget)
}

// ReassignCategory corrects the category of a stored transaction.
func (s *FinanceService) ReassignCategory(ctx context.Context, id int64, category string) error {
	return s.ledger.ReassignCategory(ctx, id, core.NormalizeCategoryName(category))
}

// ListTransactions returns ledger rows newest first.
func (s *FinanceService) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.ledger.GetTransactions(ctx, f)
}

// CategoryHistory returns per-category spend for every month in [from, to].
func (s *FinanceService) CategoryHistory(ctx context.Context, from, to core.Month) ([]core.CategoryMonthTotal, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range %s..%s is reversed", core.ErrInvalidMonth, from, to)
	}
	return s.ledger.CategoryHistory(ctx, from, to)
}
