// Package money implements exact-precision monetary values tagged with
// currency identity. All purchase arithmetic in the library goes through
// this package; raw amounts are arbitrary-precision integers and no
// floating point is used anywhere.
package money

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyKind classifies a currency as the chain's base asset or a token contract.
type CurrencyKind string

const (
	KindNative CurrencyKind = "native"
	KindERC20  CurrencyKind = "erc20"
)

// Currency identifies what a Value is denominated in. Two currencies are the
// same only when every field matches.
type Currency struct {
	Kind     CurrencyKind `json:"kind"`
	Address  string       `json:"address,omitempty"` // contract address, empty for native
	Symbol   string       `json:"symbol"`
	Decimals int32        `json:"decimals"`
}

// Native returns a native-asset currency descriptor.
func Native(symbol string, decimals int32) Currency {
	return Currency{Kind: KindNative, Symbol: symbol, Decimals: decimals}
}

// ERC20 returns a token currency descriptor for the given contract address.
func ERC20(address, symbol string, decimals int32) Currency {
	return Currency{
		Kind:     KindERC20,
		Address:  strings.ToLower(address),
		Symbol:   symbol,
		Decimals: decimals,
	}
}

func (c Currency) equal(o Currency) bool {
	return c.Kind == o.Kind &&
		strings.EqualFold(c.Address, o.Address) &&
		c.Decimals == o.Decimals
}

// MismatchError reports arithmetic or comparison between values that are not
// denominated in the same currency on the same network.
type MismatchError struct {
	Left, Right       Currency
	LeftNet, RightNet string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s on %s vs %s on %s",
		e.Left.Symbol, e.LeftNet, e.Right.Symbol, e.RightNet)
}

// NegativeError reports a subtraction that would produce a negative amount.
type NegativeError struct {
	Minuend, Subtrahend string
}

func (e *NegativeError) Error() string {
	return fmt.Sprintf("subtraction yields negative amount: %s - %s", e.Minuend, e.Subtrahend)
}

// Value is an immutable exact-precision amount. The zero Value is not usable;
// construct with New or the helpers below. Every operation returns a fresh
// Value and leaves the receiver untouched.
type Value struct {
	raw      *big.Int
	currency Currency
	network  string
	usd      string // optional formatted USD estimate, display only
}

// New builds a Value from a raw on-chain amount in the currency's smallest unit.
func New(raw *big.Int, currency Currency, network string) Value {
	if raw == nil {
		raw = new(big.Int)
	}
	return Value{
		raw:      new(big.Int).Set(raw),
		currency: currency,
		network:  network,
	}
}

// Zero returns a zero amount in the given currency.
func Zero(currency Currency, network string) Value {
	return New(new(big.Int), currency, network)
}

// FromDecimalString parses a human-readable amount ("1.5") into a Value,
// scaling it to the currency's smallest unit. Fractional digits beyond the
// currency's scale are rejected rather than silently dropped.
func FromDecimalString(amount string, currency Currency, network string) (Value, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Value{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return Value{}, fmt.Errorf("amount cannot be negative: %s", amount)
	}
	scaled := d.Shift(currency.Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return Value{}, fmt.Errorf("amount %s exceeds %d decimal places", amount, currency.Decimals)
	}
	return New(scaled.BigInt(), currency, network), nil
}

// Raw returns a copy of the underlying integer amount.
func (v Value) Raw() *big.Int { return new(big.Int).Set(v.raw) }

// Currency returns the currency identity.
func (v Value) Currency() Currency { return v.currency }

// Network returns the owning network identifier.
func (v Value) Network() string { return v.network }

func (v Value) IsNative() bool   { return v.currency.Kind == KindNative }
func (v Value) IsERC20() bool    { return v.currency.Kind == KindERC20 }
func (v Value) IsZero() bool     { return v.raw.Sign() == 0 }
func (v Value) IsPositive() bool { return v.raw.Sign() > 0 }

func (v Value) checkCompatible(o Value) error {
	if !v.currency.equal(o.currency) || v.network != o.network {
		return &MismatchError{
			Left: v.currency, Right: o.currency,
			LeftNet: v.network, RightNet: o.network,
		}
	}
	return nil
}

// Add returns v + o. Both values must share currency identity and network.
func (v Value) Add(o Value) (Value, error) {
	if err := v.checkCompatible(o); err != nil {
		return Value{}, err
	}
	return New(new(big.Int).Add(v.raw, o.raw), v.currency, v.network), nil
}

// Sub returns v - o. It fails on mismatched currencies and on results
// that would be negative.
func (v Value) Sub(o Value) (Value, error) {
	if err := v.checkCompatible(o); err != nil {
		return Value{}, err
	}
	if v.raw.Cmp(o.raw) < 0 {
		return Value{}, &NegativeError{Minuend: v.Format(), Subtrahend: o.Format()}
	}
	return New(new(big.Int).Sub(v.raw, o.raw), v.currency, v.network), nil
}

// Mul scales v by an arbitrary decimal factor, truncating toward zero at the
// currency's scale. It never rounds up.
func (v Value) Mul(factor decimal.Decimal) Value {
	scaled := decimal.NewFromBigInt(v.raw, 0).Mul(factor).Truncate(0)
	return New(scaled.BigInt(), v.currency, v.network)
}

// MulInt scales v by an integer quantity.
func (v Value) MulInt(n int64) Value {
	return New(new(big.Int).Mul(v.raw, big.NewInt(n)), v.currency, v.network)
}

// Cmp compares two compatible values: -1 if v < o, 0 if equal, 1 if v > o.
func (v Value) Cmp(o Value) (int, error) {
	if err := v.checkCompatible(o); err != nil {
		return 0, err
	}
	return v.raw.Cmp(o.raw), nil
}

// Equal reports whether v and o carry the same amount of the same currency.
func (v Value) Equal(o Value) (bool, error) {
	c, err := v.Cmp(o)
	return c == 0, err
}

func (v Value) GreaterThan(o Value) (bool, error) {
	c, err := v.Cmp(o)
	return c > 0, err
}

func (v Value) GreaterThanOrEqual(o Value) (bool, error) {
	c, err := v.Cmp(o)
	return c >= 0, err
}

func (v Value) LessThan(o Value) (bool, error) {
	c, err := v.Cmp(o)
	return c < 0, err
}

func (v Value) LessThanOrEqual(o Value) (bool, error) {
	c, err := v.Cmp(o)
	return c <= 0, err
}

// WithUSD returns a copy of v annotated with a formatted USD estimate.
// The annotation is display-only and takes no part in arithmetic or equality.
func (v Value) WithUSD(usd string) Value {
	out := New(v.raw, v.currency, v.network)
	out.usd = usd
	return out
}

// USD returns the attached USD estimate, empty when none was computed.
func (v Value) USD() string { return v.usd }

// Format renders the amount in human-readable units, e.g. "1.5 ETH".
func (v Value) Format() string {
	d := decimal.NewFromBigInt(v.raw, -v.currency.Decimals)
	return fmt.Sprintf("%s %s", d.String(), v.currency.Symbol)
}

// Display renders the amount, optionally appending the USD estimate when one
// is attached.
func (v Value) Display(includeUSD bool) string {
	if includeUSD && v.usd != "" {
		return fmt.Sprintf("%s (%s)", v.Format(), v.usd)
	}
	return v.Format()
}

type valueJSON struct {
	Raw      string   `json:"raw"`
	Currency Currency `json:"currency"`
	Network  string   `json:"network"`
	Display  string   `json:"display"`
	USD      string   `json:"usd,omitempty"`
}

// MarshalJSON implements a lossless wire form: the raw amount travels as a
// decimal string because JSON numbers cannot hold uint256.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{
		Raw:      v.raw.String(),
		Currency: v.currency,
		Network:  v.network,
		Display:  v.Format(),
		USD:      v.usd,
	})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	raw, ok := new(big.Int).SetString(w.Raw, 10)
	if !ok {
		return fmt.Errorf("invalid raw amount %q", w.Raw)
	}
	v.raw = raw
	v.currency = w.Currency
	v.network = w.Network
	v.usd = w.USD
	return nil
}
