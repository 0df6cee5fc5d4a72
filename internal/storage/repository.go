package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"financas/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrStoreUnavailable wraps any failure to open or migrate the ledger.
	ErrStoreUnavailable  = errors.New("ledger store unavailable")
	ErrNotFound          = errors.New("not found")
	ErrNotDuplicate      = errors.New("rows are not duplicates")
	ErrInvalidTransition = errors.New("invalid plan status transition")
)

const (
	defaultListLimit = 100
	maxListLimit     = 5000
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewTransaction is the input of AddTransaction.
type NewTransaction struct {
	Date           core.Date
	Description    string
	Amount         core.Money
	CategoryName   string
	Type           core.TransactionType
	Source         core.Source
	InstallmentID  *int64
	InstallmentSeq *int
}

// AddResult reports the outcome of an insert. Duplicate inserts are a value,
// not an error.
type AddResult struct {
	ID            int64
	Fingerprint   string
	Duplicate     bool
	ExistingID    int64
	Uncategorized bool
}

// TransactionFilter narrows GetTransactions. Zero fields are ignored.
type TransactionFilter struct {
	Month    *core.Month
	Category string
	Limit    int
}

// CategoryTotal is one row of the per-category monthly aggregation.
type CategoryTotal struct {
	Category core.Category
	Total    core.Money
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %v", ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %v", ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrStoreUnavailable, err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// signedAmount stores expenses and income as positive values and refunds as negative.
func signedAmount(t core.TransactionType, m core.Money) core.Money {
	if t == core.Refund {
		return core.Money{Cents: -m.Abs().Cents}
	}
	return m.Abs()
}

// AddTransaction inserts a ledger entry unless its fingerprint is already present.
// An unknown category name leaves the entry uncategorized.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, in NewTransaction) (AddResult, error) {
	if in.Type == "" {
		in.Type = core.Expense
	}
	if in.Source == "" {
		in.Source = core.SourceManual
	}
	txn := core.Transaction{
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
		Amount:      signedAmount(in.Type, in.Amount),
		Type:        in.Type,
		Source:      in.Source,
	}
	if err := txn.Validate(); err != nil {
		return AddResult{}, fmt.Errorf("validate transaction: %w", err)
	}

	res := AddResult{Fingerprint: core.Fingerprint(txn.Date, txn.Description, txn.Amount)}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM transactions WHERE fingerprint = ?`, res.Fingerprint).Scan(&existing)
		switch {
		case err == nil:
			res.Duplicate = true
			res.ExistingID = existing
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check fingerprint: %w", err)
		}

		categoryID, err := lookupCategoryID(ctx, tx, in.CategoryName)
		if err != nil {
			return err
		}
		res.Uncategorized = categoryID == nil

		result, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (date, description, amount_cents, type, category_id, source, fingerprint, installment_id, installment_seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.Date.ISO(), txn.Description, txn.Amount.Cents, string(txn.Type),
			categoryID, string(txn.Source), res.Fingerprint, in.InstallmentID, in.InstallmentSeq)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				res.Duplicate = true
				return nil
			}
			return fmt.Errorf("insert transaction: %w", err)
		}
		res.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return AddResult{}, err
	}

	if res.Duplicate {
		slog.InfoContext(ctx, "Duplicate transaction rejected",
			"fingerprint", res.Fingerprint,
			"existing_id", res.ExistingID,
			"description", txn.Description)
		return res, nil
	}
	if res.Uncategorized && in.CategoryName != "" {
		slog.WarnContext(ctx, "Unknown category, transaction left uncategorized",
			"category", in.CategoryName,
			"id", res.ID)
	}
	return res, nil
}

func lookupCategoryID(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, name string) (*int64, error) {
	name = core.NormalizeCategoryName(name)
	if name == "" {
		return nil, nil
	}
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup category %q: %w", name, err)
	}
	return &id, nil
}

const transactionColumns = `
	t.id, t.date, t.description, t.amount_cents, t.type, t.category_id, COALESCE(c.name, ''),
	t.source, t.fingerprint, t.installment_id, t.installment_seq, t.created_at`

func scanTransaction(scan func(...any) error) (core.Transaction, error) {
	var (
		t          core.Transaction
		date       string
		typ, src   string
		categoryID sql.NullInt64
		planID     sql.NullInt64
		seq        sql.NullInt64
		createdAt  sql.NullString
	)
	if err := scan(&t.ID, &date, &t.Description, &t.Amount.Cents, &typ, &categoryID, &t.CategoryName,
		&src, &t.Fingerprint, &planID, &seq, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	t.Date = core.Date{Time: d}
	t.CreatedAt = parseTimestamp(createdAt.String)
	t.Type = core.TransactionType(typ)
	t.Source = core.Source(src)
	if categoryID.Valid {
		id := categoryID.Int64
		t.CategoryID = &id
	}
	if planID.Valid {
		id := planID.Int64
		t.InstallmentID = &id
	}
	if seq.Valid {
		s := int(seq.Int64)
		t.InstallmentSeq = &s
	}
	return t, nil
}

// parseTimestamp accepts both SQLite's CURRENT_TIMESTAMP text and RFC 3339.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetTransactions lists ledger entries newest first.
func (r *SQLiteRepository) GetTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE 1 = 1`
	var args []any
	if f.Month != nil {
		query += ` AND t.date >= ? AND t.date < ?`
		args = append(args, f.Month.Start().Format("2006-01-02"), f.Month.End().Format("2006-01-02"))
	}
	if f.Category != "" {
		if f.Category == core.UncategorizedName {
			query += ` AND t.category_id IS NULL`
		} else {
			query += ` AND c.name = ?`
			args = append(args, core.NormalizeCategoryName(f.Category))
		}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query += ` ORDER BY t.date DESC, t.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTransaction fetches one ledger entry by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+transactionColumns+`
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id = ?`, id)
	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return &t, nil
}

// ReassignCategory is the only mutation allowed on a stored transaction.
// An empty name moves it back to uncategorized.
func (r *SQLiteRepository) ReassignCategory(ctx context.Context, id int64, categoryName string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		categoryID, err := lookupCategoryID(ctx, tx, categoryName)
		if err != nil {
			return err
		}
		if categoryID == nil && categoryName != "" {
			return fmt.Errorf("category %q: %w", categoryName, ErrNotFound)
		}
		res, err := tx.ExecContext(ctx, `UPDATE transactions SET category_id = ? WHERE id = ?`, categoryID, id)
		if err != nil {
			return fmt.Errorf("reassign category: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// DeleteDuplicate removes id only when keepID holds the same content
// (same date, signed amount and description ignoring case and punctuation).
func (r *SQLiteRepository) DeleteDuplicate(ctx context.Context, id, keepID int64) error {
	if id == keepID {
		return ErrNotDuplicate
	}
	victim, err := r.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	keeper, err := r.GetTransaction(ctx, keepID)
	if err != nil {
		return err
	}
	if core.ContentKey(victim.Date, victim.Description, victim.Amount) != core.ContentKey(keeper.Date, keeper.Description, keeper.Amount) {
		return fmt.Errorf("%d vs %d: %w", id, keepID, ErrNotDuplicate)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete duplicate %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Duplicate transaction removed", "id", id, "kept_id", keepID)
	return nil
}

// MonthlyCategoryTotals returns one row per category, zero-spend included,
// plus the uncategorized spend. Only expenses count as spend; refunds and
// income never reduce a category total.
func (r *SQLiteRepository) MonthlyCategoryTotals(ctx context.Context, m core.Month) ([]CategoryTotal, core.Money, error) {
	from, to := m.Start().Format("2006-01-02"), m.End().Format("2006-01-02")

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.icon, c.budget_cents, c.is_excluded, COALESCE(SUM(ABS(t.amount_cents)), 0)
		FROM categories c
		LEFT JOIN transactions t
			ON t.category_id = c.id
			AND t.type = 'expense'
			AND t.date >= ? AND t.date < ?
		GROUP BY c.id
		ORDER BY c.name`, from, to)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()

	var out []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category.ID, &ct.Category.Name, &ct.Category.Icon,
			&ct.Category.Budget.Cents, &ct.Category.Excluded, &ct.Total.Cents); err != nil {
			return nil, core.Money{}, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Money{}, err
	}

	var uncategorized core.Money
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(ABS(amount_cents)), 0) FROM transactions
		WHERE category_id IS NULL AND type = 'expense' AND date >= ? AND date < ?`,
		from, to).Scan(&uncategorized.Cents)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("query uncategorized total: %w", err)
	}
	return out, uncategorized, nil
}

// IncomeForMonth sums income entries recorded in the month. It is reported
// next to the profile income and never replaces it.
func (r *SQLiteRepository) IncomeForMonth(ctx context.Context, m core.Month) (core.Money, error) {
	var total core.Money
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE type = 'income' AND date >= ? AND date < ?`,
		m.Start().Format("2006-01-02"), m.End().Format("2006-01-02")).Scan(&total.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("query income: %w", err)
	}
	return total, nil
}

// CategoryHistory returns per-category monthly spend for months in [from, to].
func (r *SQLiteRepository) CategoryHistory(ctx context.Context, from, to core.Month) ([]core.CategoryMonthTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(c.name, ?), substr(t.date, 1, 7) AS ym, SUM(ABS(t.amount_cents))
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.type = 'expense' AND t.date >= ? AND t.date < ?
		GROUP BY 1, ym
		ORDER BY 1, ym`,
		core.UncategorizedName, from.Start().Format("2006-01-02"), to.End().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query category history: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryMonthTotal
	for rows.Next() {
		var (
			p  core.CategoryMonthTotal
			ym string
		)
		if err := rows.Scan(&p.Category, &ym, &p.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category history: %w", err)
		}
		if p.Month, err = core.ParseMonth(ym); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
