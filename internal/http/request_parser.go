package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financas/internal/core"
	"financas/internal/forecast"
	"financas/internal/storage"

	"github.com/shopspring/decimal"
)

var errBadRequest = errors.New("bad request")

const (
	maxForecastMonths = 24
	maxBodyBytes      = 4 << 10
)

// ParseMonthParams reads year and month from the query, defaulting each to
// now. Present but malformed values are rejected rather than ignored.
func ParseMonthParams(query url.Values, now time.Time) (core.Month, error) {
	m := core.MonthOf(now)
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Month{}, fmt.Errorf("%w: year %q", errBadRequest, v)
		}
		m.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		mo, err := strconv.Atoi(v)
		if err != nil {
			return core.Month{}, fmt.Errorf("%w: month %q", errBadRequest, v)
		}
		m.Month = mo
	}
	if err := m.Validate(); err != nil {
		if errors.Is(err, core.ErrInvalidMonth) {
			return core.Month{}, err
		}
		return core.Month{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return m, nil
}

// ParseID reads a positive row id from a path segment.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: id %q", errBadRequest, s)
	}
	return id, nil
}

func decodeBody(r io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: body: %v", errBadRequest, err)
	}
	return nil
}

// ParseBudgetBody reads {"budget": "1500.00"}. Zero is allowed and removes
// the budget; negative values are rejected.
func ParseBudgetBody(r io.Reader) (core.Money, error) {
	var body struct {
		Budget string `json:"budget"`
	}
	if err := decodeBody(r, &body); err != nil {
		return core.Money{}, err
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(body.Budget), ",", "."))
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: budget %q", errBadRequest, body.Budget)
	}
	if d.IsNegative() {
		return core.Money{}, fmt.Errorf("%w: %v", errBadRequest, core.ErrNegativeBudget)
	}
	return core.Money{Cents: d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()}, nil
}

// ParseCategoryBody reads {"category": "lazer"}. An empty category moves the
// transaction back to uncategorized.
func ParseCategoryBody(r io.Reader) (string, error) {
	var body struct {
		Category string `json:"category"`
	}
	if err := decodeBody(r, &body); err != nil {
		return "", err
	}
	return core.NormalizeCategoryName(body.Category), nil
}

// ParseTransactionFilter builds a ledger filter from the query. The month
// defaults to now; category and limit are optional.
func ParseTransactionFilter(query url.Values, now time.Time) (storage.TransactionFilter, error) {
	m, err := ParseMonthParams(query, now)
	if err != nil {
		return storage.TransactionFilter{}, err
	}
	f := storage.TransactionFilter{
		Month:    &m,
		Category: core.NormalizeCategoryName(query.Get("category")),
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return storage.TransactionFilter{}, fmt.Errorf("%w: limit %q", errBadRequest, v)
		}
		f.Limit = n
	}
	return f, nil
}

// ParseForecastWindow returns the closed month range of history ending the
// month before now. The window size comes from "months", default 6.
func ParseForecastWindow(query url.Values, now time.Time) (from, to core.Month, err error) {
	n := 6
	if v := strings.TrimSpace(query.Get("months")); v != "" {
		n, err = strconv.Atoi(v)
		if err != nil || n < 2 || n > maxForecastMonths {
			return core.Month{}, core.Month{}, fmt.Errorf("%w: months must be between 2 and %d", errBadRequest, maxForecastMonths)
		}
	}
	to = core.MonthOf(now).AddMonths(-1)
	return to.AddMonths(-(n - 1)), to, nil
}

// ParseScenario reads the optional "scenario" parameter.
func ParseScenario(query url.Values) (forecast.Scenario, error) {
	sc, err := forecast.ParseScenario(strings.TrimSpace(query.Get("scenario")))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return sc, nil
}
