package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/storage"
)

// PlanFailure records a plan that could not be expanded for a month.
type PlanFailure struct {
	PlanID      int64
	Description string
	Err         error
}

// ExpansionResult counts the outcome of expanding one month.
type ExpansionResult struct {
	Month    core.Month
	Created  int
	Skipped  int // already materialized
	Drifted  int // index beyond the installment count
	Errors   int
	Failures []PlanFailure
}

// InstallmentExpander materializes one ledger entry per due installment plan
// per month. Re-running a month never creates a second entry for a plan.
type InstallmentExpander struct {
	store     InstallmentStore
	anchorDay int
}

// NewInstallmentExpander creates an expander dating entries on anchorDay,
// clamped to the month length.
func NewInstallmentExpander(store InstallmentStore, anchorDay int) *InstallmentExpander {
	if anchorDay < 1 {
		anchorDay = 1
	}
	return &InstallmentExpander{store: store, anchorDay: anchorDay}
}

// Expand processes every active plan due in m. Per-plan failures are recorded
// in the result and do not stop the batch.
func (e *InstallmentExpander) Expand(ctx context.Context, m core.Month) (ExpansionResult, error) {
	res := ExpansionResult{Month: m}
	if err := m.Validate(); err != nil {
		return res, err
	}

	plans, err := e.store.GetActiveInstallmentPlans(ctx)
	if err != nil {
		return res, fmt.Errorf("list active plans: %w", err)
	}

	for _, p := range plans {
		if !p.IsDue(m) {
			continue
		}

		index := p.IndexFor(m)
		if index > p.TotalInstallments {
			res.Drifted++
			fields := applog.NewFields().WithPlan(p.ID, index).WithMonth(m)
			slog.WarnContext(ctx, "Installment index beyond plan length",
				append(fields.ToSlice(), "total", p.TotalInstallments)...)
			continue
		}

		created, err := e.expandPlan(ctx, p, m, index)
		if err != nil {
			res.Errors++
			res.Failures = append(res.Failures, PlanFailure{PlanID: p.ID, Description: p.Description, Err: err})
			slog.ErrorContext(ctx, "Failed to expand installment plan", applog.NewFields().
				WithPlan(p.ID, index).
				WithMonth(m).
				WithOperation(applog.OpExpand).
				WithError(err).
				ToSlice()...)
			continue
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}

	slog.InfoContext(ctx, "Installment expansion complete",
		"month", m.String(),
		"created", res.Created,
		"skipped", res.Skipped,
		"drifted", res.Drifted,
		"errors", res.Errors)

	return res, nil
}

func (e *InstallmentExpander) expandPlan(ctx context.Context, p core.InstallmentPlan, m core.Month, index int) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	exists, err := e.store.InstallmentTransactionExists(ctx, p.ID, m)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	planID := p.ID
	seq := index
	out, err := e.store.AddTransaction(ctx, storage.NewTransaction{
		Date:           m.Day(e.anchorDay),
		Description:    p.LabelFor(index),
		Amount:         p.InstallmentAmount,
		CategoryName:   p.CategoryName,
		Type:           core.Expense,
		Source:         core.SourceInstallment,
		InstallmentID:  &planID,
		InstallmentSeq: &seq,
	})
	if err != nil {
		return false, err
	}
	if out.Duplicate {
		return false, nil
	}

	slog.InfoContext(ctx, "Created installment transaction",
		"plan_id", p.ID,
		"transaction_id", out.ID,
		"installment", index,
		"total", p.TotalInstallments,
		"amount_cents", p.InstallmentAmount.Cents)
	return true, nil
}

// ExpandRange expands every month in [from, to] in order. A month whose plan
// listing fails is reported and the next month still runs.
func (e *InstallmentExpander) ExpandRange(ctx context.Context, from, to core.Month) ([]ExpansionResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range %s..%s is reversed", core.ErrInvalidMonth, from, to)
	}
	var (
		results []ExpansionResult
		errs    []error
	)
	for m := from; !m.After(to); m = m.AddMonths(1) {
		res, err := e.Expand(ctx, m)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m, err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// CompleteFinishedPlans moves active plans whose end month is before now's
// month to completed. It returns how many plans changed.
func (e *InstallmentExpander) CompleteFinishedPlans(ctx context.Context, now time.Time) (int, error) {
	plans, err := e.store.GetActiveInstallmentPlans(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active plans: %w", err)
	}
	current := core.MonthOf(now)
	completed := 0
	for _, p := range plans {
		if !p.EndMonth().Before(current) {
			continue
		}
		if err := e.store.SetInstallmentStatus(ctx, p.ID, core.PlanCompleted); err != nil {
			slog.ErrorContext(ctx, "Failed to complete installment plan", "plan_id", p.ID, "error", err)
			continue
		}
		completed++
	}
	if completed > 0 {
		slog.InfoContext(ctx, "Installment plans completed", "count", completed, "month", current.String())
	}
	return completed, nil
}
