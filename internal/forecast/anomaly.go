package forecast

import (
	"math"
	"sort"

	"financas/internal/core"
)

// DefaultAnomalyThreshold is the z-score beyond which a month is flagged.
const DefaultAnomalyThreshold = 2.0

// minBaseline is how many earlier months a category needs before its latest
// month can be judged.
const minBaseline = 3

// Anomaly is a category whose spend in the latest month of the window sits
// more than the threshold in standard deviations away from its baseline.
type Anomaly struct {
	Category string     `json:"category"`
	Month    core.Month `json:"month"`
	Total    core.Money `json:"total"`
	Mean     core.Money `json:"mean"`
	StdDev   core.Money `json:"std_dev"`
	ZScore   float64    `json:"z_score"`
	Lower    core.Money `json:"lower"` // mean - std
	Upper    core.Money `json:"upper"` // mean + std
}

// Above reports whether the month was unusually high rather than low.
func (a Anomaly) Above() bool { return a.ZScore > 0 }

// Anomalies compares the last month of [from, to] against the earlier months
// of each category. Categories with fewer than three earlier months, or with
// a flat baseline, are skipped. Results are ordered by |z| descending.
func Anomalies(history []core.CategoryMonthTotal, from, to core.Month, threshold float64) []Anomaly {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	var out []Anomaly
	for cat, pts := range Series(history, from, to) {
		if len(pts) < minBaseline+1 {
			continue
		}
		last := pts[len(pts)-1]
		mean, std := meanStd(pts[:len(pts)-1])
		if std == 0 {
			continue
		}
		z := (last - mean) / std
		if math.Abs(z) <= threshold {
			continue
		}
		out = append(out, Anomaly{
			Category: cat,
			Month:    to,
			Total:    cents(last),
			Mean:     cents(mean),
			StdDev:   cents(std),
			ZScore:   math.Round(z*100) / 100,
			Lower:    cents(math.Max(0, mean-std)),
			Upper:    cents(mean + std),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		zi, zj := math.Abs(out[i].ZScore), math.Abs(out[j].ZScore)
		if zi != zj {
			return zi > zj
		}
		return out[i].Category < out[j].Category
	})
	return out
}
