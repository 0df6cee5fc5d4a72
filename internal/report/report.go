// Package report renders markdown reports for a month: the budget summary
// with its transactions, and the alert digest with recommendations.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"financas/internal/core"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

// MaxTransactions caps the transaction list of the monthly report.
const MaxTransactions = 50

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money":  func(m core.Money) string { return m.String() },
	"pct":    func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"date":   func(d core.Date) string { return d.Format("02/01/2006") },
	"stamp":  func(t time.Time) string { return t.Format("02/01/2006 15:04") },
	"escape": escapeCell,
	"title":  titleCase,
	"status": statusLabel,
}).ParseFS(templateFS, "templates/*.md.tmpl"))

// MonthlyData feeds the monthly report.
type MonthlyData struct {
	Summary      core.PartitionedSummary
	Transactions []core.Transaction
	GeneratedAt  time.Time
}

// AlertData feeds the alert report.
type AlertData struct {
	Month         core.Month
	Alerts        []core.Alert
	SavingsRate   float64
	SavingsTarget float64
	Income        core.Money
	GeneratedAt   time.Time
}

type alertView struct {
	AlertData
	Critical, Warning, Info []core.Alert
	Exceeded                []string
	SavingsGap              core.Money
	Total                   int
}

// Monthly renders the budget summary of one month.
func Monthly(d MonthlyData) (string, error) {
	if len(d.Transactions) > MaxTransactions {
		d.Transactions = d.Transactions[:MaxTransactions]
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "monthly.md.tmpl", d); err != nil {
		return "", fmt.Errorf("render monthly report: %w", err)
	}
	return buf.String(), nil
}

// Alerts renders the alert digest grouped by severity.
func Alerts(d AlertData) (string, error) {
	v := alertView{AlertData: d, Total: len(d.Alerts)}
	for _, a := range d.Alerts {
		switch a.Severity {
		case core.SeverityCritical:
			v.Critical = append(v.Critical, a)
		case core.SeverityWarning:
			v.Warning = append(v.Warning, a)
		default:
			v.Info = append(v.Info, a)
		}
		if a.Type == core.AlertBudgetExceeded && a.Category != "" {
			v.Exceeded = append(v.Exceeded, a.Category)
		}
	}
	if d.SavingsRate < d.SavingsTarget && d.Income.Cents > 0 {
		gap := (d.SavingsTarget - d.SavingsRate) / 100
		v.SavingsGap = core.Money{Cents: int64(math.Round(float64(d.Income.Cents) * gap))}
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "alerts.md.tmpl", v); err != nil {
		return "", fmt.Errorf("render alert report: %w", err)
	}
	return buf.String(), nil
}

// FileName returns the report file name for kind and month, e.g.
// "relatorio-2026-01.md".
func FileName(kind string, m core.Month) string {
	return fmt.Sprintf("%s-%s.md", kind, m)
}

// Write stores content under dir, creating it when missing.
func Write(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write report %s: %w", name, err)
	}
	return path, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func titleCase(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

func statusLabel(s core.Status) string {
	switch s {
	case core.StatusCritical:
		return "🔴 crítico"
	case core.StatusWarning:
		return "🟡 atenção"
	default:
		return "🟢 ok"
	}
}
