// Package statement parses credit-card statement text into lines ready for
// import. Each input line holds a date, a description and an amount separated
// by "|", a tab, or a run of three spaces.
package statement

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"financas/internal/core"
)

var ErrMalformedLine = errors.New("malformed statement line")

// Line is one parsed statement entry. Amount keeps the printed sign:
// positive for charges, negative for credits.
type Line struct {
	Date               core.Date
	Description        string
	Amount             core.Money
	Category           string
	InstallmentCurrent int
	InstallmentTotal   int
	Raw                string
}

// HasInstallment reports whether the description carried an "n/m" marker.
func (l Line) HasInstallment() bool {
	return l.InstallmentCurrent > 0 && l.InstallmentTotal > 0
}

// LineError records a line that could not be parsed.
type LineError struct {
	Number int
	Raw    string
	Err    error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Number, e.Err)
}

var installmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`PARC(?:ELA)?\s*(\d{1,2})\s*/\s*(\d{1,2})`),
	regexp.MustCompile(`(\d{1,2})\s*DE\s*(\d{1,2})`),
	regexp.MustCompile(`(?:^|\s)(\d{1,2})/(\d{1,2})(?:\s|$)`),
}

// ParseInstallmentMarker extracts "3/10", "PARC 3/10" or "3 DE 10" markers.
// Markers with current > total or total < 2 are ignored.
func ParseInstallmentMarker(description string) (current, total int, ok bool) {
	upper := strings.ToUpper(description)
	for _, re := range installmentPatterns {
		m := re.FindStringSubmatch(upper)
		if m == nil {
			continue
		}
		cur, _ := strconv.Atoi(m[1])
		tot, _ := strconv.Atoi(m[2])
		if cur >= 1 && tot >= 2 && cur <= tot {
			return cur, tot, true
		}
	}
	return 0, 0, false
}

// StripInstallmentMarker removes the installment marker from a description so
// every installment of a purchase shares one base name.
func StripInstallmentMarker(description string) string {
	out := description
	for _, re := range installmentPatterns {
		loc := re.FindStringIndex(strings.ToUpper(out))
		if loc != nil {
			out = out[:loc[0]] + " " + out[loc[1]:]
			break
		}
	}
	return strings.Join(strings.Fields(out), " ")
}

// ParseLine parses a single "date | description | amount [| category]" line.
func ParseLine(raw string) (Line, error) {
	raw = strings.TrimSpace(raw)
	var parts []string
	for _, sep := range []string{"|", "\t", "   "} {
		if !strings.Contains(raw, sep) {
			continue
		}
		parts = parts[:0]
		for _, p := range strings.Split(raw, sep) {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) >= 3 {
			break
		}
	}
	if len(parts) < 3 {
		return Line{}, fmt.Errorf("%w: expected date, description and amount", ErrMalformedLine)
	}

	date, err := core.ParseDate(parts[0])
	if err != nil {
		return Line{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	amountField := parts[2]
	category := ""
	if len(parts) >= 4 {
		category = parts[3]
	}
	amount, err := core.ParseBRL(amountField)
	if err != nil {
		return Line{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	line := Line{
		Date:        date,
		Description: parts[1],
		Amount:      amount,
		Category:    core.NormalizeCategoryName(category),
		Raw:         raw,
	}
	line.InstallmentCurrent, line.InstallmentTotal, _ = ParseInstallmentMarker(line.Description)
	return line, nil
}

// Parse reads every non-blank line of r. Unparseable lines are returned as
// LineErrors alongside the lines that did parse.
func Parse(r io.Reader) ([]Line, []LineError, error) {
	var (
		lines []Line
		bad   []LineError
	)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		l, err := ParseLine(text)
		if err != nil {
			bad = append(bad, LineError{Number: n, Raw: text, Err: err})
			continue
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read statement: %w", err)
	}
	return lines, bad, nil
}
