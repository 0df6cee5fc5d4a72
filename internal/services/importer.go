package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"financas/internal/categorize"
	"financas/internal/core"
	"financas/internal/statement"
	"financas/internal/storage"
)

// ImportStore is the ledger surface the statement importer needs.
type ImportStore interface {
	AddTransaction(ctx context.Context, in storage.NewTransaction) (storage.AddResult, error)
	AddInstallmentPlan(ctx context.Context, p core.InstallmentPlan) (core.InstallmentPlan, error)
	GetActiveInstallmentPlans(ctx context.Context) ([]core.InstallmentPlan, error)
	InstallmentTransaction(ctx context.Context, planID int64, m core.Month) (*core.Transaction, error)
	LinkInstallment(ctx context.Context, txnID, planID int64, seq int) error
}

// ImportResult summarizes one statement import. Per-line problems land in
// Errors and never stop the batch.
type ImportResult struct {
	Imported      int
	Duplicates    int
	Uncategorized int
	PlansCreated  int
	PlansLinked   int // lines attached to a plan registered earlier
	Materialized  int // lines whose installment month the expander already booked
	Errors        []error
}

// Importer loads statement lines into the ledger.
type Importer struct {
	store         ImportStore
	categorizer   *categorize.Categorizer
	registerPlans bool
}

// NewImporter creates an importer. A nil categorizer uses the built-in rules.
// With registerPlans set, a newly imported charge carrying an "n/m" marker
// that no active plan accounts for creates an installment plan linked to
// that charge.
func NewImporter(store ImportStore, categorizer *categorize.Categorizer, registerPlans bool) *Importer {
	if categorizer == nil {
		categorizer = categorize.Default()
	}
	return &Importer{store: store, categorizer: categorizer, registerPlans: registerPlans}
}

// Import parses r and imports every well-formed line.
func (im *Importer) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	lines, bad, err := statement.Parse(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read statement: %w", err)
	}
	res, err := im.ImportLines(ctx, lines)
	for _, b := range bad {
		res.Errors = append(res.Errors, b)
	}
	return res, err
}

// ImportLines imports already parsed lines. Only a store outage aborts.
func (im *Importer) ImportLines(ctx context.Context, lines []statement.Line) (ImportResult, error) {
	var res ImportResult
	for _, l := range lines {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := im.importLine(ctx, l, &res); err != nil {
			if errors.Is(err, storage.ErrStoreUnavailable) {
				return res, err
			}
			res.Errors = append(res.Errors, fmt.Errorf("%s %q: %w", l.Date.ISO(), l.Description, err))
		}
	}

	slog.InfoContext(ctx, "Statement import complete",
		"imported", res.Imported,
		"duplicates", res.Duplicates,
		"uncategorized", res.Uncategorized,
		"plans_created", res.PlansCreated,
		"plans_linked", res.PlansLinked,
		"materialized", res.Materialized,
		"errors", len(res.Errors))
	return res, nil
}

func (im *Importer) importLine(ctx context.Context, l statement.Line, res *ImportResult) error {
	category := l.Category
	if category == "" {
		category = im.categorizer.Categorize(l.Description)
	}

	typ := core.Expense
	if l.Amount.Cents < 0 {
		typ = core.Refund
	}
	installment := typ == core.Expense && l.HasInstallment()

	var plan *core.InstallmentPlan
	if installment {
		var err error
		plan, err = im.matchPlan(ctx, l)
		if err != nil {
			return err
		}
	}
	if plan != nil {
		booked, err := im.store.InstallmentTransaction(ctx, plan.ID, core.MonthOf(l.Date.Time))
		switch {
		case err == nil:
			if booked.Fingerprint == core.Fingerprint(l.Date, strings.TrimSpace(l.Description), l.Amount.Abs()) {
				res.Duplicates++
				return nil
			}
			res.Materialized++
			slog.InfoContext(ctx, "Installment already materialized, statement line skipped",
				"plan_id", plan.ID,
				"transaction_id", booked.ID,
				"installment", l.InstallmentCurrent,
				"description", l.Description)
			return nil
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
	}

	out, err := im.store.AddTransaction(ctx, storage.NewTransaction{
		Date:         l.Date,
		Description:  l.Description,
		Amount:       l.Amount.Abs(),
		CategoryName: category,
		Type:         typ,
		Source:       core.SourceStatement,
	})
	if err != nil {
		return err
	}
	if out.Duplicate {
		res.Duplicates++
		return nil
	}
	res.Imported++
	if out.Uncategorized {
		res.Uncategorized++
	}

	if plan != nil {
		if err := im.store.LinkInstallment(ctx, out.ID, plan.ID, l.InstallmentCurrent); err != nil {
			return err
		}
		res.PlansLinked++
		return nil
	}
	if !im.registerPlans || !installment {
		return nil
	}
	created, err := core.NewInstallmentPlanFromCharge(
		statement.StripInstallmentMarker(l.Description),
		l.Amount.Abs(), l.InstallmentCurrent, l.InstallmentTotal, l.Date, category)
	if err != nil {
		return fmt.Errorf("installment plan: %w", err)
	}
	created, err = im.store.AddInstallmentPlan(ctx, created)
	if err != nil {
		return fmt.Errorf("installment plan: %w", err)
	}
	if err := im.store.LinkInstallment(ctx, out.ID, created.ID, l.InstallmentCurrent); err != nil {
		return err
	}
	res.PlansCreated++
	slog.InfoContext(ctx, "Installment plan registered from statement",
		"plan_id", created.ID,
		"transaction_id", out.ID,
		"installment", l.InstallmentCurrent,
		"total", l.InstallmentTotal)
	return nil
}

// matchPlan finds the active plan a marked statement line belongs to: same
// description without the marker, same installment amount and count, and the
// charge month mapping to the line's installment number.
func (im *Importer) matchPlan(ctx context.Context, l statement.Line) (*core.InstallmentPlan, error) {
	plans, err := im.store.GetActiveInstallmentPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("active plans: %w", err)
	}
	desc := statement.StripInstallmentMarker(l.Description)
	m := core.MonthOf(l.Date.Time)
	for i := range plans {
		p := plans[i]
		if !strings.EqualFold(p.Description, desc) ||
			p.InstallmentAmount != l.Amount.Abs() ||
			p.TotalInstallments != l.InstallmentTotal ||
			p.IndexFor(m) != l.InstallmentCurrent {
			continue
		}
		return &p, nil
	}
	return nil, nil
}
