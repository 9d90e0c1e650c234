package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"stephly/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
	}{
		{"all values provided", url.Values{"year": {"2024"}, "month": {"6"}}, 2024, 6},
		{"only month", url.Values{"month": {"11"}}, 2025, 11},
		{"empty query uses now", url.Values{}, 2025, 3},
		{"invalid values are ignored", url.Values{"year": {"abc"}, "month": {"13"}}, 2025, 3},
		{"whitespace is trimmed", url.Values{"month": {" 7 "}}, 2025, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMonthParams(tt.query, now)
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("ParseMonthParams() = %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"10", 10, false},
		{"1000", 500, false},
		{"0", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		got, err := queryLimit(url.Values{"limit": {tt.raw}}, 50, 500)
		if (err != nil) != tt.wantErr {
			t.Fatalf("queryLimit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errBadRequest) {
			t.Fatalf("queryLimit(%q) error should be a bad request, got %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("queryLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		body      string
		allowZero bool
		want      int64
		wantErr   error
	}{
		{`{"amount": 12.5}`, false, 1250, nil},
		{`{"amount": "12,345"}`, false, 1235, nil},
		{`{"amount": "₵40"}`, false, 4000, nil},
		{`{"amount": 0}`, false, 0, core.ErrInvalidAmount},
		{`{"amount": "0.00"}`, true, 0, nil},
		{`{"amount": -3}`, false, 0, core.ErrInvalidAmount},
		{`{"amount": "abc"}`, true, 0, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		var req struct {
			Amount Amount `json:"amount"`
		}
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		if err := decodeJSON(r, &req); err != nil {
			t.Fatalf("decode %s: %v", tt.body, err)
		}
		if !req.Amount.IsSet() {
			t.Fatalf("%s: amount not set", tt.body)
		}
		got, err := req.Amount.Money(tt.allowZero)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: error = %v, want %v", tt.body, err, tt.wantErr)
		}
		if got.Cents != tt.want {
			t.Errorf("%s: cents = %d, want %d", tt.body, got.Cents, tt.want)
		}
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	var v map[string]any
	for _, body := range []string{"", "{not json"} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := decodeJSON(r, &v); !errors.Is(err, errBadRequest) {
			t.Errorf("decodeJSON(%q) = %v, want bad request", body, err)
		}
	}
}

func TestDateOrToday(t *testing.T) {
	now := time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC)
	d, err := dateOrToday("", now)
	if err != nil || d.String() != "2025-03-15" {
		t.Fatalf("empty date = %s, %v", d, err)
	}
	d, err = dateOrToday("2024-02-29", now)
	if err != nil || d.String() != "2024-02-29" {
		t.Fatalf("explicit date = %s, %v", d, err)
	}
	if _, err := dateOrToday("29/02/2024", now); !errors.Is(err, errBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Lunch\x00 at\x07 work\n "); got != "Lunch at work" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
