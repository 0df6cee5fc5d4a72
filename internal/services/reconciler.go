package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"financas/internal/core"
	"financas/internal/statement"
	"financas/internal/storage"
)

// TransactionReader lists ledger rows.
type TransactionReader interface {
	GetTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
}

// NearDuplicate is a pair of rows that escaped the fingerprint guard but look
// like the same charge, typically an expanded installment and the statement
// line for it.
type NearDuplicate struct {
	A          core.Transaction `json:"a"`
	B          core.Transaction `json:"b"`
	Similarity float64          `json:"similarity"`
	DaysApart  int              `json:"days_apart"`
}

// Reconciler flags near-duplicate rows for manual review. It never deletes.
type Reconciler struct {
	store    TransactionReader
	maxDays  int
	maxRatio float64
}

func NewReconciler(store TransactionReader) *Reconciler {
	return &Reconciler{store: store, maxDays: 7, maxRatio: 0.4}
}

// Scan compares every pair of rows in the month.
func (r *Reconciler) Scan(ctx context.Context, m core.Month) ([]NearDuplicate, error) {
	txns, err := r.store.GetTransactions(ctx, storage.TransactionFilter{Month: &m, Limit: maxMonthTransactions})
	if err != nil {
		return nil, fmt.Errorf("transactions for %s: %w", m, err)
	}
	return r.Find(txns), nil
}

// Find returns candidate pairs: same type and amount, at most maxDays apart,
// different fingerprints and descriptions within the edit-distance ratio once
// installment markers are removed.
func (r *Reconciler) Find(txns []core.Transaction) []NearDuplicate {
	var out []NearDuplicate
	for i := 0; i < len(txns); i++ {
		for j := i + 1; j < len(txns); j++ {
			a, b := txns[i], txns[j]
			if a.Type != b.Type || a.Amount.Cents != b.Amount.Cents || a.Fingerprint == b.Fingerprint {
				continue
			}
			if a.InstallmentID != nil && b.InstallmentID != nil && *a.InstallmentID == *b.InstallmentID {
				continue
			}
			days := daysApart(a.Date, b.Date)
			if days > r.maxDays {
				continue
			}
			sim := similarity(a.Description, b.Description)
			if 1-sim >= r.maxRatio {
				continue
			}
			out = append(out, NearDuplicate{A: a, B: b, Similarity: sim, DaysApart: days})
		}
	}
	return out
}

func reconcileKey(s string) string {
	return strings.ToUpper(core.NormalizeDescription(statement.StripInstallmentMarker(s)))
}

func similarity(a, b string) float64 {
	ka, kb := reconcileKey(a), reconcileKey(b)
	longest := len([]rune(ka))
	if n := len([]rune(kb)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(ka, kb))/float64(longest)
}

func daysApart(a, b core.Date) int {
	d := a.Sub(b.Time)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
