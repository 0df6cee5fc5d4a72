// Package forecast projects next-month spending per category from monthly
// history with a least-squares linear trend.
package forecast

import (
	"errors"
	"math"
	"sort"

	"financas/internal/core"
)

var ErrInsufficientData = errors.New("insufficient history for a forecast")

// Prediction is the projected spend of one category for one month.
type Prediction struct {
	Category   string     `json:"category"`
	Month      core.Month `json:"month"`
	Predicted  core.Money `json:"predicted"`
	Lower      core.Money `json:"lower"`
	Upper      core.Money `json:"upper"`
	Mean       core.Money `json:"mean"`
	StdDev     core.Money `json:"std_dev"`
	Confidence float64    `json:"confidence"`
	Points     int        `json:"points"`
}

type Trend string

const (
	TrendIncreasing   Trend = "increasing"
	TrendDecreasing   Trend = "decreasing"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient_data"
)

// TrendAnalysis compares the last two months against the earlier ones.
type TrendAnalysis struct {
	Category      string     `json:"category"`
	Trend         Trend      `json:"trend"`
	ChangePct     float64    `json:"change_pct"`
	RecentAvg     core.Money `json:"recent_avg"`
	HistoricalAvg core.Money `json:"historical_avg"`
}

// Series lays history out as one cents slice per category covering every
// month in [from, to]; months without spend are zero.
func Series(history []core.CategoryMonthTotal, from, to core.Month) map[string][]float64 {
	n := to.MonthsSince(from) + 1
	if n < 1 {
		return nil
	}
	out := make(map[string][]float64)
	for _, h := range history {
		i := h.Month.MonthsSince(from)
		if i < 0 || i >= n {
			continue
		}
		s, ok := out[h.Category]
		if !ok {
			s = make([]float64, n)
			out[h.Category] = s
		}
		s[i] += float64(h.Total.Cents)
	}
	return out
}

// Predict fits y = slope*x + intercept over points (x = 0..n-1) and projects
// x = n. At least two points are needed.
func Predict(category string, points []float64, next core.Month) (Prediction, error) {
	n := len(points)
	if n < 2 {
		return Prediction{Category: category, Month: next, Points: n}, ErrInsufficientData
	}
	slope, intercept := leastSquares(points)
	mean, std := meanStd(points)

	predicted := math.Max(0, slope*float64(n)+intercept)
	confidence := 0.5
	if mean > 0 {
		confidence = clamp(1-std/mean, 0, 1)
	}
	return Prediction{
		Category:   category,
		Month:      next,
		Predicted:  cents(predicted),
		Lower:      cents(math.Max(0, predicted-1.5*std)),
		Upper:      cents(predicted + 1.5*std),
		Mean:       cents(mean),
		StdDev:     cents(std),
		Confidence: math.Round(confidence*100) / 100,
		Points:     n,
	}, nil
}

// PredictAll forecasts the month after to for every category with history in
// [from, to]. Categories are returned by name.
func PredictAll(history []core.CategoryMonthTotal, from, to core.Month) ([]Prediction, error) {
	if to.MonthsSince(from) < 1 {
		return nil, ErrInsufficientData
	}
	series := Series(history, from, to)
	if len(series) == 0 {
		return nil, ErrInsufficientData
	}
	next := to.AddMonths(1)
	out := make([]Prediction, 0, len(series))
	for cat, pts := range series {
		p, err := Predict(cat, pts, next)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Trends classifies each category as increasing or decreasing when the
// average of the last two months moved more than 10% against the earlier
// months. Fewer than three months is reported as insufficient.
func Trends(history []core.CategoryMonthTotal, from, to core.Month) []TrendAnalysis {
	series := Series(history, from, to)
	out := make([]TrendAnalysis, 0, len(series))
	for cat, pts := range series {
		ta := TrendAnalysis{Category: cat, Trend: TrendInsufficient}
		if len(pts) >= 3 {
			recent, _ := meanStd(pts[len(pts)-2:])
			older, _ := meanStd(pts[:len(pts)-2])
			ta.RecentAvg, ta.HistoricalAvg = cents(recent), cents(older)
			if older > 0 {
				ta.ChangePct = math.Round((recent-older)/older*1000) / 10
			}
			switch {
			case ta.ChangePct > 10:
				ta.Trend = TrendIncreasing
			case ta.ChangePct < -10:
				ta.Trend = TrendDecreasing
			default:
				ta.Trend = TrendStable
			}
		}
		out = append(out, ta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func leastSquares(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	var sx, sy, sxy, sxx float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, sy / n
	}
	slope = (n*sxy - sx*sy) / den
	intercept = (sy - slope*sx) / n
	return slope, intercept
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / float64(len(xs)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func cents(v float64) core.Money {
	return core.Money{Cents: int64(math.Round(v))}
}
