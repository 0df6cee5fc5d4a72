package forecast

import (
	"errors"
	"testing"

	"financas/internal/core"
)

func month(y, m int) core.Month { return core.Month{Year: y, Month: m} }

func TestPredictLinearTrend(t *testing.T) {
	// 100, 200, 300 reais: next month lands on 400
	p, err := Predict("lazer", []float64{10000, 20000, 30000}, month(2026, 4))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Predicted.Cents != 40000 {
		t.Fatalf("predicted = %d, want 40000", p.Predicted.Cents)
	}
	if p.Mean.Cents != 20000 || p.Points != 3 {
		t.Fatalf("unexpected stats: %+v", p)
	}
	if p.Lower.Cents > p.Predicted.Cents || p.Upper.Cents < p.Predicted.Cents {
		t.Fatalf("bounds do not bracket the prediction: %+v", p)
	}
}

func TestPredictFlatSeries(t *testing.T) {
	p, err := Predict("casa", []float64{5000, 5000}, month(2026, 3))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Predicted.Cents != 5000 || p.StdDev.Cents != 0 || p.Confidence != 1 {
		t.Fatalf("unexpected prediction: %+v", p)
	}
}

func TestPredictNeverNegative(t *testing.T) {
	p, err := Predict("taxas", []float64{30000, 10000, 0}, month(2026, 4))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Predicted.Cents != 0 || p.Lower.Cents != 0 {
		t.Fatalf("expected clamp at zero: %+v", p)
	}
}

func TestPredictInsufficientData(t *testing.T) {
	if _, err := Predict("x", []float64{100}, month(2026, 2)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := PredictAll(nil, month(2026, 1), month(2026, 1)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for a single month, got %v", err)
	}
	if _, err := PredictAll(nil, month(2026, 1), month(2026, 3)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData without history, got %v", err)
	}
}

func TestSeriesFillsGaps(t *testing.T) {
	history := []core.CategoryMonthTotal{
		{Category: "saude", Month: month(2025, 11), Total: core.FromReais(100)},
		{Category: "saude", Month: month(2026, 1), Total: core.FromReais(300)},
		{Category: "saude", Month: month(2026, 5), Total: core.FromReais(999)},
	}
	s := Series(history, month(2025, 11), month(2026, 1))
	got := s["saude"]
	if len(got) != 3 || got[0] != 10000 || got[1] != 0 || got[2] != 30000 {
		t.Fatalf("unexpected series: %v", got)
	}
}

func TestPredictAllAndTrends(t *testing.T) {
	var history []core.CategoryMonthTotal
	for i, v := range []int64{100, 100, 100, 200, 200} {
		history = append(history, core.CategoryMonthTotal{Category: "lazer", Month: month(2026, i+1), Total: core.FromReais(v)})
	}
	for i, v := range []int64{500, 500, 500, 490, 510} {
		history = append(history, core.CategoryMonthTotal{Category: "casa", Month: month(2026, i+1), Total: core.FromReais(v)})
	}

	preds, err := PredictAll(history, month(2026, 1), month(2026, 5))
	if err != nil {
		t.Fatalf("PredictAll: %v", err)
	}
	if len(preds) != 2 || preds[0].Category != "casa" || preds[1].Month != month(2026, 6) {
		t.Fatalf("unexpected predictions: %+v", preds)
	}

	trends := Trends(history, month(2026, 1), month(2026, 5))
	if len(trends) != 2 {
		t.Fatalf("expected 2 trends, got %d", len(trends))
	}
	if trends[0].Trend != TrendStable {
		t.Fatalf("casa trend = %s", trends[0].Trend)
	}
	if trends[1].Trend != TrendIncreasing || trends[1].ChangePct != 100 {
		t.Fatalf("lazer trend = %+v", trends[1])
	}

	short := Trends(history, month(2026, 4), month(2026, 5))
	for _, ta := range short {
		if ta.Trend != TrendInsufficient {
			t.Fatalf("two months must be insufficient: %+v", ta)
		}
	}
}
