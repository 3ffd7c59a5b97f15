// Package types holds the shared data model of the purchase engine:
// networks, products, planned steps, cost breakdowns, orders, and the
// structured error values every operation surfaces.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// GasBufferConfig adds configurable headroom on top of the gas estimate.
// A multiplier of 0.2 reserves 20% extra; zero applies no buffer.
type GasBufferConfig struct {
	Multiplier decimal.Decimal `json:"multiplier"`
}

// PrepareRequest is the validated input to purchase preparation.
type PrepareRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Buyer     string          `json:"buyer" validate:"required,eth_addr"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	GasBuffer GasBufferConfig `json:"gasBuffer,omitempty"`
}

// Config is the client-wide configuration surface.
type Config struct {
	// CatalogBaseURL points at the product catalog backend. Optional when
	// a custom resolver is injected instead.
	CatalogBaseURL string `json:"catalogBaseUrl,omitempty" validate:"omitempty,url"`

	// DefaultTimeout bounds every network-bound operation.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty"`

	// Confirmations is the depth steps wait for before producing a
	// receipt. Defaults to 1.
	Confirmations uint64 `json:"confirmations,omitempty"`

	// OracleTimeout bounds USD price-rate lookups. On expiry the USD
	// estimate is omitted rather than failing the cost calculation.
	OracleTimeout time.Duration `json:"oracleTimeout,omitempty"`

	// RateCacheTTL controls how long fetched USD rates stay advisory-fresh.
	RateCacheTTL time.Duration `json:"rateCacheTtl,omitempty"`

	LogLevel      string `json:"logLevel,omitempty"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`
}
