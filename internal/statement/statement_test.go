package statement

import (
	"errors"
	"strings"
	"testing"
)

func TestParseInstallmentMarker(t *testing.T) {
	cases := []struct {
		in       string
		cur, tot int
		ok       bool
	}{
		{"MAGALU 3/10", 3, 10, true},
		{"MAGALU PARC 03/12", 3, 12, true},
		{"Loja parcela 2/6 centro", 2, 6, true},
		{"GELADEIRA 4 DE 10", 4, 10, true},
		{"PADARIA 15/01", 0, 0, false},
		{"SEM PARCELA", 0, 0, false},
		{"ITEM 11/10", 0, 0, false},
	}
	for _, tc := range cases {
		cur, tot, ok := ParseInstallmentMarker(tc.in)
		if ok != tc.ok || cur != tc.cur || tot != tc.tot {
			t.Fatalf("ParseInstallmentMarker(%q) = %d, %d, %v", tc.in, cur, tot, ok)
		}
	}
}

func TestStripInstallmentMarker(t *testing.T) {
	cases := map[string]string{
		"MAGALU 3/10":       "MAGALU",
		"MAGALU PARC 03/12": "MAGALU",
		"Geladeira 4 de 10": "Geladeira",
		"Padaria do Ze":     "Padaria do Ze",
	}
	for in, want := range cases {
		if got := StripInstallmentMarker(in); got != want {
			t.Fatalf("StripInstallmentMarker(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLine(t *testing.T) {
	l, err := ParseLine("15/01/2026 | IFOOD *RESTAURANTE | R$ 45,90")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if l.Date.ISO() != "2026-01-15" || l.Description != "IFOOD *RESTAURANTE" || l.Amount.Cents != 4590 {
		t.Fatalf("unexpected line: %+v", l)
	}
	if l.HasInstallment() {
		t.Fatal("no installment marker expected")
	}

	l, err = ParseLine("2026-02-03\tMAGALU 2/10\t-1.250,00\tCasa")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if l.Amount.Cents != -125000 || l.Category != "casa" {
		t.Fatalf("unexpected line: %+v", l)
	}
	if !l.HasInstallment() || l.InstallmentCurrent != 2 || l.InstallmentTotal != 10 {
		t.Fatalf("installment not detected: %+v", l)
	}

	for _, bad := range []string{"", "15/01/2026 | sem valor", "ontem | Padaria | 10,00", "15/01/2026 | Padaria | dez"} {
		if _, err := ParseLine(bad); !errors.Is(err, ErrMalformedLine) {
			t.Fatalf("ParseLine(%q) expected ErrMalformedLine, got %v", bad, err)
		}
	}
}

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"# fatura janeiro",
		"15/01/2026 | IFOOD *RESTAURANTE | 45,90",
		"",
		"linha quebrada",
		"16/01/2026 | UBER *TRIP | 23,10",
	}, "\n")

	lines, bad, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if len(bad) != 1 || bad[0].Number != 4 {
		t.Fatalf("expected line 4 to fail, got %+v", bad)
	}
}
