package sheets

import (
	"fmt"
	"sort"
	"strings"

	"financas/internal/core"
)

// SummaryHeader is the first row of an exported summary.
var SummaryHeader = []string{"Categoria", "Orçamento", "Gasto", "%", "Status", "Grupo"}

const (
	groupIncluded = "incluida"
	groupExcluded = "excluida"
	rowTotal      = "Total"
	rowIncome     = "Renda"
	rowSavings    = "Poupança %"
)

// Amount renders cents as a signed plain decimal ("-45.90") so spreadsheets
// parse it regardless of locale.
func Amount(m core.Money) string {
	if m.Cents < 0 {
		return "-" + m.Fixed2()
	}
	return m.Fixed2()
}

// SummaryRows lays out a partitioned summary as a table: one row per
// category, then uncategorized, total, income and savings rate.
func SummaryRows(s core.PartitionedSummary) [][]string {
	rows := [][]string{SummaryHeader}
	add := func(g core.SummaryGroup, group string) {
		for _, c := range g.Categories {
			rows = append(rows, []string{
				c.Category, Amount(c.Budget), Amount(c.Total),
				fmt.Sprintf("%.1f", c.Percent), string(c.Status), group,
			})
		}
	}
	add(s.Included, groupIncluded)
	add(s.Excluded, groupExcluded)

	total := s.Included.TotalSpent.Add(s.Excluded.TotalSpent).Add(s.Uncategorized)
	budget := s.Included.TotalBudget.Add(s.Excluded.TotalBudget)
	rows = append(rows,
		[]string{core.UncategorizedName, "", Amount(s.Uncategorized), "", "", groupIncluded},
		[]string{rowTotal, Amount(budget), Amount(total), fmt.Sprintf("%.1f", core.Percent(total, budget)), "", ""},
		[]string{rowIncome, "", Amount(s.Income), "", "", ""},
		[]string{rowSavings, "", "", fmt.Sprintf("%.1f", s.SavingsRate), "", ""},
	)
	return rows
}

// AlertRow is the log line written for one alert.
func AlertRow(a core.Alert) []string {
	return []string{
		a.CreatedAt.Format("2006-01-02 15:04"),
		a.Month.String(),
		string(a.Severity),
		string(a.Type),
		a.Category,
		a.Message,
		a.ID,
	}
}

// ParseSummary reads category totals back from a values matrix written by
// SummaryRows. Trailing total rows are skipped.
func ParseSummary(values [][]string) ([]core.CategoryAmount, error) {
	if len(values) == 0 {
		return nil, nil
	}
	colName := indexOf(values[0], SummaryHeader[0])
	colSpent := indexOf(values[0], SummaryHeader[2])
	if colName == -1 || colSpent == -1 {
		var missing []string
		if colName == -1 {
			missing = append(missing, SummaryHeader[0])
		}
		if colSpent == -1 {
			missing = append(missing, SummaryHeader[2])
		}
		return nil, fmt.Errorf("unexpected summary header: missing %s; got headers=%v", strings.Join(missing, ","), values[0])
	}

	var out []core.CategoryAmount
	for _, row := range values[1:] {
		name := strings.TrimSpace(safeGet(row, colName))
		switch name {
		case "", rowTotal, rowIncome, rowSavings:
			continue
		}
		amt, err := core.ParseBRL(safeGet(row, colSpent))
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", name, err)
		}
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	return out, nil
}

// VerifySummary compares category totals read back from a sheet with the
// summary that was written and describes every difference.
func VerifySummary(s core.PartitionedSummary, read []core.CategoryAmount) []string {
	want := map[string]core.Money{core.UncategorizedName: s.Uncategorized}
	for _, g := range []core.SummaryGroup{s.Included, s.Excluded} {
		for _, c := range g.Categories {
			want[c.Category] = c.Total
		}
	}
	var diffs []string
	seen := make(map[string]bool, len(read))
	for _, r := range read {
		seen[r.Name] = true
		exp, ok := want[r.Name]
		switch {
		case !ok:
			diffs = append(diffs, fmt.Sprintf("%s: unexpected row", r.Name))
		case exp != r.Amount:
			diffs = append(diffs, fmt.Sprintf("%s: sheet has %s, ledger has %s", r.Name, Amount(r.Amount), Amount(exp)))
		}
	}
	for name := range want {
		if !seen[name] {
			diffs = append(diffs, fmt.Sprintf("%s: missing row", name))
		}
	}
	sort.Strings(diffs)
	return diffs
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
