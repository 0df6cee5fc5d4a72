package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"financas/internal/core"
)

// GetCategories lists every category ordered by name.
func (r *SQLiteRepository) GetCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, icon, budget_cents, is_excluded FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Budget.Cents, &c.Excluded); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategoryByName returns nil, nil when the category does not exist.
func (r *SQLiteRepository) GetCategoryByName(ctx context.Context, name string) (*core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, icon, budget_cents, is_excluded FROM categories WHERE name = ?`,
		core.NormalizeCategoryName(name)).Scan(&c.ID, &c.Name, &c.Icon, &c.Budget.Cents, &c.Excluded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category %q: %w", name, err)
	}
	return &c, nil
}

// UpsertCategory creates the category or updates icon, budget and exclusion flag.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = core.NormalizeCategoryName(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validate category: %w", err)
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, icon, budget_cents, is_excluded) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			icon = excluded.icon,
			budget_cents = excluded.budget_cents,
			is_excluded = excluded.is_excluded
		RETURNING id`,
		c.Name, c.Icon, c.Budget.Cents, c.Excluded).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("upsert category %q: %w", c.Name, err)
	}
	slog.InfoContext(ctx, "Category saved",
		"id", c.ID,
		"name", c.Name,
		"budget_cents", c.Budget.Cents,
		"excluded", c.Excluded)
	return c, nil
}

// SetCategoryBudget changes the monthly budget of an existing category.
func (r *SQLiteRepository) SetCategoryBudget(ctx context.Context, name string, budget core.Money) error {
	if budget.Cents < 0 {
		return core.ErrNegativeBudget
	}
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET budget_cents = ? WHERE name = ?`,
		budget.Cents, core.NormalizeCategoryName(name))
	if err != nil {
		return fmt.Errorf("set budget for %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	return nil
}
