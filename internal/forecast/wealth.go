package forecast

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"financas/internal/core"
)

// WealthParams drives a Monte Carlo net-worth projection. Rates are yearly
// fractions (0.11 is 11%).
type WealthParams struct {
	Current        core.Money
	MonthlySavings core.Money
	ExpectedReturn float64
	Volatility     float64
	Inflation      float64
	Years          int
	Simulations    int
}

// WealthProjection summarizes the distribution of final net worth.
type WealthProjection struct {
	Years       int        `json:"years"`
	Simulations int        `json:"simulations"`
	Current     core.Money `json:"current"`
	P10         core.Money `json:"p10"`
	P25         core.Money `json:"p25"`
	Median      core.Money `json:"median"`
	P75         core.Money `json:"p75"`
	P90         core.Money `json:"p90"`
	Mean        core.Money `json:"mean"`
}

var ErrInvalidProjection = errors.New("projection needs at least one year and one simulation")

// ProjectWealth runs p.Simulations paths. Each year draws a normal return,
// grows the balance, adds twelve months of savings, then raises the savings
// by inflation. rng makes runs reproducible.
func ProjectWealth(p WealthParams, rng *rand.Rand) (WealthProjection, error) {
	if p.Years < 1 || p.Simulations < 1 {
		return WealthProjection{}, ErrInvalidProjection
	}
	results := make([]float64, p.Simulations)
	for i := range results {
		wealth := float64(p.Current.Cents)
		monthly := float64(p.MonthlySavings.Cents)
		for y := 0; y < p.Years; y++ {
			r := p.ExpectedReturn + rng.NormFloat64()*p.Volatility
			wealth = wealth*(1+r) + monthly*12
			monthly *= 1 + p.Inflation
		}
		results[i] = wealth
	}
	sort.Float64s(results)

	mean, _ := meanStd(results)
	at := func(q float64) core.Money {
		return cents(results[int(math.Floor(float64(len(results)-1)*q))])
	}
	return WealthProjection{
		Years:       p.Years,
		Simulations: p.Simulations,
		Current:     p.Current,
		P10:         at(0.10),
		P25:         at(0.25),
		Median:      at(0.50),
		P75:         at(0.75),
		P90:         at(0.90),
		Mean:        cents(mean),
	}, nil
}
