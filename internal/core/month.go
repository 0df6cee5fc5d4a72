package core

import (
	"fmt"
	"time"
)

// Month identifies a calendar month. Comparison is lexicographic on (Year, Month).
type Month struct {
	Year  int
	Month int // 1-12
}

// NewMonth validates and builds a Month.
func NewMonth(year, month int) (Month, error) {
	m := Month{Year: year, Month: month}
	return m, m.Validate()
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 {
		return ErrInvalidMonth
	}
	if m.Year < 1900 || m.Year > 9999 {
		return fmt.Errorf("invalid year %d", m.Year)
	}
	return nil
}

func (m Month) Before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}

func (m Month) After(o Month) bool {
	return o.Before(m)
}

// MonthsSince returns the signed number of months from o to m.
func (m Month) MonthsSince(o Month) int {
	return (m.Year-o.Year)*12 + (m.Month - o.Month)
}

func (m Month) AddMonths(n int) Month {
	idx := m.Year*12 + (m.Month - 1) + n
	return Month{Year: idx / 12, Month: idx%12 + 1}
}

// Start is the first instant of the month, UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month (exclusive bound).
func (m Month) End() time.Time {
	return m.AddMonths(1).Start()
}

// Days returns how many days the month has.
func (m Month) Days() int {
	return m.End().AddDate(0, 0, -1).Day()
}

// Day returns the given day of the month, clamped to the month length.
func (m Month) Day(day int) Date {
	if day < 1 {
		day = 1
	}
	if n := m.Days(); day > n {
		day = n
	}
	return NewDate(m.Year, m.Month, day)
}

// Contains reports whether d falls in the month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Month() == m.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}
