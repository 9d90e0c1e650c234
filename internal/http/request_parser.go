// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data:
// month/year query parameters, path IDs, limits and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"stephly/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input; it maps to 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using the
// period of now as defaults. Unparsable or out of range values are ignored.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y >= 1900 && y <= 9999 {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}

	return params
}

// pathID parses a positive int64 URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryLimit reads ?limit=, returning fallback when absent and capping at ceiling.
func queryLimit(query url.Values, fallback, ceiling int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, badRequest("invalid limit %q", v)
	}
	if n > ceiling {
		n = ceiling
	}
	return n, nil
}

// decodeJSON reads one JSON object from the body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body required")
		}
		return badRequest("malformed JSON: %v", err)
	}
	return nil
}

// Amount accepts a JSON number or string ("12.50", "12,50") and keeps the raw
// text so it can be parsed to cents without float rounding.
type Amount struct {
	raw string
	set bool
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	a.raw = strings.Trim(s, `"`)
	a.set = true
	return nil
}

// IsSet reports whether the field was present and not null.
func (a Amount) IsSet() bool { return a.set }

// Money parses the amount; zero is allowed only when allowZero is true.
func (a Amount) Money(allowZero bool) (core.Money, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(a.raw), core.CurrencySymbol))
	if allowZero {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64); err == nil && f == 0 {
			return core.Money{}, nil
		}
	}
	cents, err := core.ParseDecimalToCents(raw)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// dateOrToday parses YYYY-MM-DD, defaulting to today when s is empty.
func dateOrToday(s string, now time.Time) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, badRequest("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
