package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseBRL(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1.234,56", 123456, true},
		{"-45,90", -4590, true},
		{"R$ 12,00", 1200, true},
		{"12.50", 1250, true},
		{"+3,10", 310, true},
		{"", 0, false},
		{"dez", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseBRL(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneySplit(t *testing.T) {
	cases := []struct {
		total int64
		n     int
		want  int64
	}{
		{100000, 10, 10000},
		{10000, 3, 3333},
		{20000, 3, 6667},
		{5, 2, 3},
		{100, 0, 0},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.total}).Split(tc.n); got.Cents != tc.want {
			t.Fatalf("Split(%d, %d) = %d, want %d", tc.total, tc.n, got.Cents, tc.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:        "R$ 0,00",
		5:        "R$ 0,05",
		123456:   "R$ 1.234,56",
		-4590:    "-R$ 45,90",
		10000000: "R$ 100.000,00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, whole int64
		want        float64
	}{
		{5000, 100000, 5},
		{12500, 10000, 125},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{5000, 0, 0},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := Percent(Money{Cents: tc.part}, Money{Cents: tc.whole}); got != tc.want {
			t.Fatalf("Percent(%d, %d) = %v, want %v", tc.part, tc.whole, got, tc.want)
		}
	}
}
