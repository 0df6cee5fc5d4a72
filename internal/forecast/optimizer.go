package forecast

import (
	"fmt"
	"math"
	"sort"

	"financas/internal/core"
)

type UtilizationStatus string

const (
	UtilizationNoData  UtilizationStatus = "no_data"
	UtilizationOver    UtilizationStatus = "over_budget"
	UtilizationTight   UtilizationStatus = "tight"
	UtilizationHealthy UtilizationStatus = "healthy"
	UtilizationSlack   UtilizationStatus = "slack"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Essential categories are only cut when clearly slack; discretionary ones
// are the first candidates for cuts.
var (
	essentialCategories     = map[string]bool{"alimentacao": true, "saude": true, "transporte": true, "casa": true}
	discretionaryCategories = map[string]bool{"lazer": true, "compras": true, "assinaturas": true}
)

// Minimum changes worth recommending, in cents.
const (
	minIncrease = 5000
	minDecrease = 10000
)

// Utilization is how a category's average monthly spend compares to its budget.
type Utilization struct {
	Category string            `json:"category"`
	Budget   core.Money        `json:"budget"`
	Average  core.Money        `json:"average"`
	Max      core.Money        `json:"max"`
	StdDev   core.Money        `json:"std_dev"`
	Percent  float64           `json:"percent"`
	Status   UtilizationStatus `json:"status"`
	Months   int               `json:"months"`
}

// Recommendation suggests a new budget for one category.
type Recommendation struct {
	Category   string     `json:"category"`
	Current    core.Money `json:"current"`
	Suggested  core.Money `json:"suggested"`
	Change     core.Money `json:"change"`
	ChangePct  float64    `json:"change_pct"`
	Reason     string     `json:"reason"`
	Priority   Priority   `json:"priority"`
	Confidence float64    `json:"confidence"`
}

// Scenario selects how hard Simulate cuts budgets.
type Scenario string

const (
	ScenarioAggressive   Scenario = "aggressive"
	ScenarioModerate     Scenario = "moderate"
	ScenarioConservative Scenario = "conservative"
)

var scenarioReduction = map[Scenario]float64{
	ScenarioAggressive:   0.30,
	ScenarioModerate:     0.15,
	ScenarioConservative: 0.05,
}

// ParseScenario maps a name to a Scenario; empty means moderate.
func ParseScenario(s string) (Scenario, error) {
	if s == "" {
		return ScenarioModerate, nil
	}
	sc := Scenario(s)
	if _, ok := scenarioReduction[sc]; !ok {
		return "", fmt.Errorf("unknown scenario %q", s)
	}
	return sc, nil
}

// Simulation is the budget table a scenario would produce.
type Simulation struct {
	Scenario       Scenario              `json:"scenario"`
	CurrentTotal   core.Money            `json:"current_total"`
	NewTotal       core.Money            `json:"new_total"`
	MonthlySavings core.Money            `json:"monthly_savings"`
	AnnualSavings  core.Money            `json:"annual_savings"`
	Budgets        map[string]core.Money `json:"budgets"`
}

// Utilizations rates every budgeted category over [from, to]. Months without
// spend count as zero; a category with no spend at all is no_data.
func Utilizations(categories []core.Category, history []core.CategoryMonthTotal, from, to core.Month) []Utilization {
	series := Series(history, from, to)
	out := make([]Utilization, 0, len(categories))
	for _, c := range categories {
		if c.Budget.Cents <= 0 {
			continue
		}
		u := Utilization{Category: c.Name, Budget: c.Budget, Status: UtilizationNoData}
		pts, ok := series[c.Name]
		if !ok {
			out = append(out, u)
			continue
		}
		mean, std := meanStd(pts)
		u.Average, u.StdDev, u.Max, u.Months = cents(mean), cents(std), cents(maxOf(pts)), len(pts)
		u.Percent = math.Round(mean/float64(c.Budget.Cents)*1000) / 10
		switch {
		case u.Percent > 100:
			u.Status = UtilizationOver
		case u.Percent > 80:
			u.Status = UtilizationTight
		case u.Percent < 50:
			u.Status = UtilizationSlack
		default:
			u.Status = UtilizationHealthy
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Reallocations suggests raising tight budgets to average+10% and lowering
// slack ones to average+20%. Small changes are dropped. Results are ordered
// by priority, then by the size of the change.
func Reallocations(utils []Utilization) []Recommendation {
	var out []Recommendation
	for _, u := range utils {
		var (
			suggested  float64
			reason     string
			priority   Priority
			confidence float64
		)
		avg := float64(u.Average.Cents)
		switch u.Status {
		case UtilizationOver, UtilizationTight:
			if avg+float64(u.StdDev.Cents) <= float64(u.Budget.Cents) {
				continue
			}
			suggested = avg * 1.1
			if suggested-float64(u.Budget.Cents) <= minIncrease {
				continue
			}
			reason = fmt.Sprintf("Média de gastos %s excede o orçamento", u.Average)
			priority = PriorityMedium
			if essentialCategories[u.Category] {
				priority = PriorityHigh
			}
			confidence = math.Min(0.9, float64(u.Months)/6)
		case UtilizationSlack:
			suggested = avg * 1.2
			if float64(u.Budget.Cents)-suggested <= minDecrease {
				continue
			}
			reason = fmt.Sprintf("Utilização média de apenas %.0f%%", u.Percent)
			priority = PriorityLow
			if discretionaryCategories[u.Category] {
				priority = PriorityMedium
			}
			confidence = math.Min(0.85, float64(u.Months)/6)
		default:
			continue
		}
		// whole reais
		s := core.Money{Cents: int64(math.Round(suggested/100)) * 100}
		change := s.Sub(u.Budget)
		out = append(out, Recommendation{
			Category:   u.Category,
			Current:    u.Budget,
			Suggested:  s,
			Change:     change,
			ChangePct:  core.Percent(change, u.Budget),
			Reason:     reason,
			Priority:   priority,
			Confidence: math.Round(confidence*100) / 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if priorityRank[out[i].Priority] != priorityRank[out[j].Priority] {
			return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
		}
		return out[i].Change.Abs().Cents > out[j].Change.Abs().Cents
	})
	return out
}

// Simulate applies a scenario to every budgeted category. Discretionary and
// other non-essential budgets are cut by the scenario's reduction but never
// below average+10%; essential budgets are only cut, by half the reduction,
// when utilization is under 50%.
func Simulate(utils []Utilization, sc Scenario) Simulation {
	reduction := scenarioReduction[sc]
	sim := Simulation{Scenario: sc, Budgets: make(map[string]core.Money, len(utils))}
	for _, u := range utils {
		budget, avg := float64(u.Budget.Cents), float64(u.Average.Cents)
		next := budget
		switch {
		case !essentialCategories[u.Category]:
			next = math.Max(avg*1.1, budget*(1-reduction))
		case u.Percent < 50:
			next = math.Max(avg*1.1, budget*(1-reduction/2))
		}
		nb := core.Money{Cents: int64(math.Round(next/100)) * 100}
		sim.Budgets[u.Category] = nb
		sim.CurrentTotal = sim.CurrentTotal.Add(u.Budget)
		sim.NewTotal = sim.NewTotal.Add(nb)
	}
	sim.MonthlySavings = sim.CurrentTotal.Sub(sim.NewTotal)
	sim.AnnualSavings = core.Money{Cents: sim.MonthlySavings.Cents * 12}
	return sim
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}
