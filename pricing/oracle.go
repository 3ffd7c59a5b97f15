// Package pricing computes purchase cost breakdowns and best-effort USD
// estimates. USD rates are advisory only; on-chain amounts never depend on
// oracle availability.
package pricing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PriceOracle resolves a currency to a USD rate. The second return reports
// availability: (rate, false, nil) means the oracle has no quote for the
// currency, which is not an error.
type PriceOracle interface {
	USDRate(ctx context.Context, symbol, tokenAddress string) (decimal.Decimal, bool, error)
}

type rateEntry struct {
	rate    decimal.Decimal
	fetched time.Time
}

// RateCache is a short-lived, invalidate-by-time cache for USD rates. It is
// constructed once per client and torn down with it; entries are advisory
// and never authoritative for on-chain amounts.
type RateCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]rateEntry
	now     func() time.Time
}

func NewRateCache(ttl time.Duration) *RateCache {
	return &RateCache{
		ttl:     ttl,
		entries: make(map[string]rateEntry),
		now:     time.Now,
	}
}

func cacheKey(symbol, tokenAddress string) string {
	if tokenAddress != "" {
		return strings.ToLower(tokenAddress)
	}
	return strings.ToUpper(symbol)
}

func (c *RateCache) Get(symbol, tokenAddress string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey(symbol, tokenAddress)]
	if !ok || c.now().Sub(e.fetched) > c.ttl {
		return decimal.Decimal{}, false
	}
	return e.rate, true
}

func (c *RateCache) Put(symbol, tokenAddress string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(symbol, tokenAddress)] = rateEntry{rate: rate, fetched: c.now()}
}

// Purge drops every cached rate.
func (c *RateCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]rateEntry)
}
