// Package currency fetches GHS exchange rates and converts amounts between
// currencies through the cedi.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stephly/internal/cache"
	"stephly/internal/core"
	"stephly/internal/log"
)

const (
	DefaultRatesURL = "https://api.exchangerate-api.com/v4/latest/GHS"
	ratesCacheKey   = "rates:GHS"
)

// Rates maps a currency code to the amount of it one cedi buys.
type Rates map[string]float64

// FallbackRates are approximate and only used when the rates API fails.
func FallbackRates() Rates {
	return Rates{
		"USD": 0.084,
		"EUR": 0.077,
		"GBP": 0.066,
		"NGN": 130.5,
		"ZAR": 1.52,
	}
}

// Quote is a rates table and where it came from.
type Quote struct {
	Base     string    `json:"base"`
	Rates    Rates     `json:"rates"`
	Fallback bool      `json:"fallback"`
	Fetched  time.Time `json:"fetched"`
}

// Client fetches rates and keeps them in an LRU cache for the TTL.
type Client struct {
	url    string
	http   *http.Client
	cache  *cache.LRUCache[Quote]
	logger *log.Logger
}

func NewClient(url string, ttl time.Duration, httpClient *http.Client, logger *log.Logger) *Client {
	if url == "" {
		url = DefaultRatesURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		url:    url,
		http:   httpClient,
		cache:  cache.NewLRUCache[Quote](4, ttl),
		logger: logger.WithComponent(log.ComponentCurrency),
	}
}

// Cache exposes the rates cache so it can be registered for cleanup.
func (c *Client) Cache() *cache.LRUCache[Quote] { return c.cache }

// Rates returns cached rates, fetching them when stale. Fetch failures fall
// back to FallbackRates, which are not cached.
func (c *Client) Rates(ctx context.Context) Quote {
	if q, ok := c.cache.Get(ratesCacheKey); ok {
		return q
	}
	rates, err := c.fetch(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to fetch exchange rates, using fallback", log.FieldError, err)
		return Quote{Base: core.DefaultCurrency, Rates: FallbackRates(), Fallback: true, Fetched: time.Now()}
	}
	q := Quote{Base: core.DefaultCurrency, Rates: rates, Fetched: time.Now()}
	c.cache.Set(ratesCacheKey, q)
	return q
}

func (c *Client) fetch(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates API returned %d", resp.StatusCode)
	}
	var body struct {
		Rates Rates `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rates API returned no rates")
	}
	return body.Rates, nil
}

// Convert converts amount from one currency to another via GHS.
func Convert(amount decimal.Decimal, from, to string, rates Rates) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	inGHS := amount
	if from != core.DefaultCurrency {
		r, ok := rates[from]
		if !ok || r <= 0 {
			return decimal.Zero, fmt.Errorf("unknown currency %q", from)
		}
		inGHS = amount.Div(decimal.NewFromFloat(r))
	}
	if to == core.DefaultCurrency {
		return inGHS, nil
	}
	r, ok := rates[to]
	if !ok || r <= 0 {
		return decimal.Zero, fmt.Errorf("unknown currency %q", to)
	}
	return inGHS.Mul(decimal.NewFromFloat(r)), nil
}

// Format renders an amount in the given currency. Cedis use the ₵ symbol,
// other currencies their ISO code.
func Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	if code == core.DefaultCurrency || code == "" {
		return core.CurrencySymbol + amount.StringFixed(2)
	}
	return code + " " + amount.StringFixed(2)
}
