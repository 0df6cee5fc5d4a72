package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
)

const planColumns = `
	p.id, p.description, p.total_cents, p.installment_cents, p.total_installments,
	p.current_installment, p.start_date, p.end_date, p.category_id, COALESCE(c.name, ''), p.status`

func scanPlan(scan func(...any) error) (core.InstallmentPlan, error) {
	var (
		p          core.InstallmentPlan
		start, end string
		categoryID sql.NullInt64
		status     string
	)
	if err := scan(&p.ID, &p.Description, &p.TotalAmount.Cents, &p.InstallmentAmount.Cents,
		&p.TotalInstallments, &p.CurrentInstallment, &start, &end, &categoryID, &p.CategoryName, &status); err != nil {
		return core.InstallmentPlan{}, err
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return core.InstallmentPlan{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return core.InstallmentPlan{}, fmt.Errorf("parse end date %q: %w", end, err)
	}
	p.StartDate = core.Date{Time: s}
	p.EndDate = core.Date{Time: e}
	p.Status = core.PlanStatus(status)
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	return p, nil
}

// AddInstallmentPlan persists a validated plan. An unknown category leaves it
// uncategorized.
func (r *SQLiteRepository) AddInstallmentPlan(ctx context.Context, p core.InstallmentPlan) (core.InstallmentPlan, error) {
	if p.Status == "" {
		p.Status = core.PlanActive
	}
	if p.CurrentInstallment == 0 {
		p.CurrentInstallment = 1
	}
	if err := p.Validate(); err != nil {
		return core.InstallmentPlan{}, fmt.Errorf("validate installment plan: %w", err)
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		categoryID, err := lookupCategoryID(ctx, tx, p.CategoryName)
		if err != nil {
			return err
		}
		p.CategoryID = categoryID
		if categoryID == nil {
			p.CategoryName = ""
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO installment_plans
				(description, total_cents, installment_cents, total_installments, current_installment,
				 start_date, end_date, category_id, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			p.Description, p.TotalAmount.Cents, p.InstallmentAmount.Cents, p.TotalInstallments,
			p.CurrentInstallment, p.StartDate.ISO(), p.EndDate.ISO(), categoryID, string(p.Status)).Scan(&p.ID)
	})
	if err != nil {
		return core.InstallmentPlan{}, fmt.Errorf("insert installment plan: %w", err)
	}

	slog.InfoContext(ctx, "Installment plan registered",
		"plan_id", p.ID,
		"description", p.Description,
		"installments", p.TotalInstallments,
		"installment_cents", p.InstallmentAmount.Cents,
		"start", p.StartDate.ISO(),
		"end", p.EndDate.ISO())
	return p, nil
}

// GetInstallmentPlan fetches a plan by id regardless of status.
func (r *SQLiteRepository) GetInstallmentPlan(ctx context.Context, id int64) (*core.InstallmentPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+planColumns+`
		FROM installment_plans p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?`, id)
	p, err := scanPlan(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("installment plan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get installment plan %d: %w", id, err)
	}
	return &p, nil
}

// GetActiveInstallmentPlans lists active plans, soonest ending first.
func (r *SQLiteRepository) GetActiveInstallmentPlans(ctx context.Context) ([]core.InstallmentPlan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+planColumns+`
		FROM installment_plans p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.status = 'active'
		ORDER BY p.end_date, p.id`)
	if err != nil {
		return nil, fmt.Errorf("query active plans: %w", err)
	}
	defer rows.Close()

	var out []core.InstallmentPlan
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan installment plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetInstallmentStatus moves an active plan to completed or cancelled.
// Plans are never deleted and never reactivated.
func (r *SQLiteRepository) SetInstallmentStatus(ctx context.Context, id int64, status core.PlanStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if status == core.PlanActive {
		return fmt.Errorf("%w: cannot reactivate plan %d", ErrInvalidTransition, id)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE installment_plans SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active'`, string(status), id)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetInstallmentPlan(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: plan %d is not active", ErrInvalidTransition, id)
	}
	slog.InfoContext(ctx, "Installment plan status changed", "plan_id", id, "status", status)
	return nil
}

// InstallmentTransactionExists reports whether the plan already has a ledger
// entry dated in month m.
func (r *SQLiteRepository) InstallmentTransactionExists(ctx context.Context, planID int64, m core.Month) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE installment_id = ? AND date >= ? AND date < ?`,
		planID, m.Start().Format("2006-01-02"), m.End().Format("2006-01-02")).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check installment transaction: %w", err)
	}
	return n > 0, nil
}

// InstallmentTransaction returns the plan's ledger entry dated in month m,
// or ErrNotFound when that month has not been materialized.
func (r *SQLiteRepository) InstallmentTransaction(ctx context.Context, planID int64, m core.Month) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+transactionColumns+`
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.installment_id = ? AND t.date >= ? AND t.date < ?
		ORDER BY t.id LIMIT 1`,
		planID, m.Start().Format("2006-01-02"), m.End().Format("2006-01-02"))
	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan %d in %s: %w", planID, m, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get installment transaction: %w", err)
	}
	return &t, nil
}

// LinkInstallment attaches an already imported ledger entry to a plan as
// installment seq, so the expander treats that month as materialized.
func (r *SQLiteRepository) LinkInstallment(ctx context.Context, txnID, planID int64, seq int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET installment_id = ?, installment_seq = ?
		WHERE id = ? AND installment_id IS NULL`,
		planID, seq, txnID)
	if err != nil {
		return fmt.Errorf("link transaction %d to plan %d: %w", txnID, planID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unlinked transaction %d: %w", txnID, ErrNotFound)
	}
	return nil
}
