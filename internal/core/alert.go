package core

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	AlertBudgetWarning      AlertType = "budget_warning"
	AlertBudgetExceeded     AlertType = "budget_exceeded"
	AlertBudgetCritical     AlertType = "budget_critical"
	AlertLargeTransaction   AlertType = "large_transaction"
	AlertInstallmentEnding  AlertType = "installment_ending"
	AlertInstallmentsHigh   AlertType = "installments_high"
	AlertSavingsNegative    AlertType = "savings_negative"
	AlertSavingsLow         AlertType = "savings_low"
	AlertSavingsBelowTarget AlertType = "savings_below_target"
)

type (
	Severity  string
	AlertType string
)

// Rank orders severities, higher is more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

type Alert struct {
	ID        string
	Type      AlertType
	Severity  Severity
	Category  string
	Message   string
	Value     float64
	Threshold float64
	Month     Month
	CreatedAt time.Time
}

// AlertID is stable for a (type, subject, month) triple so repeated
// evaluations of the same month produce the same identifiers.
func AlertID(t AlertType, subject string, m Month) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(t)+"|"+subject+"|"+m.String())).String()
}

// SortAlerts orders alerts critical first, keeping insertion order within a tier.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
	})
}

// CountBySeverity tallies alerts per severity.
func CountBySeverity(alerts []Alert) map[Severity]int {
	out := map[Severity]int{}
	for _, a := range alerts {
		out[a.Severity]++
	}
	return out
}
