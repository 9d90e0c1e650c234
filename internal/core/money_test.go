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

func TestParseCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"₵1,250.50", 125050},
		{" 12 ", 1200},
		{"₵ 0.29", 29},
		{"abc", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseCurrency(tc.in).Cents; got != tc.want {
			t.Errorf("ParseCurrency(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatCedis(t *testing.T) {
	cases := map[int64]string{
		0:       "₵0.00",
		5:       "₵0.05",
		1234:    "₵12.34",
		-1234:   "-₵12.34",
		1000000: "₵10000.00",
	}
	for in, want := range cases {
		if got := FormatCedis(in); got != want {
			t.Errorf("FormatCedis(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFromFloat(t *testing.T) {
	if FromFloat(12.346).Cents != 1235 {
		t.Fatalf("rounding up failed: %d", FromFloat(12.346).Cents)
	}
	if FromFloat(-1.5).Cents != -150 {
		t.Fatalf("negative failed: %d", FromFloat(-1.5).Cents)
	}
}
