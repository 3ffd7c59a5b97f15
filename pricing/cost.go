package pricing

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintgate/mintgate/logger"
	"github.com/mintgate/mintgate/money"
	"github.com/mintgate/mintgate/providers"
	"github.com/mintgate/mintgate/types"
)

// Default gas units reserved per planned step kind when the chain cannot be
// asked for a tighter estimate.
const (
	defaultPurchaseGas uint64 = 180_000
	defaultApprovalGas uint64 = 60_000
)

// NativeDecimals is the scale of every supported network's base asset.
const NativeDecimals int32 = 18

// Calculator derives the full cost of a purchase: item price, platform fee,
// gas estimate with optional buffer, and a best-effort USD estimate.
type Calculator struct {
	reg           *providers.Registry
	oracle        PriceOracle
	cache         *RateCache
	oracleTimeout time.Duration
	log           logger.Logger
}

func NewCalculator(reg *providers.Registry, oracle PriceOracle, cache *RateCache, oracleTimeout time.Duration, log logger.Logger) *Calculator {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if oracleTimeout <= 0 {
		oracleTimeout = 3 * time.Second
	}
	return &Calculator{
		reg:           reg,
		oracle:        oracle,
		cache:         cache,
		oracleTimeout: oracleTimeout,
		log:           log,
	}
}

// Calculate prices a purchase of quantity items. Every amount comes back as
// an exact money.Value; the USD estimate is attached only when the oracle
// answers within its timeout.
func (c *Calculator) Calculate(ctx context.Context, product *types.Product, quantity int64, buffer types.GasBufferConfig) (*types.CostBreakdown, error) {
	if quantity <= 0 {
		return nil, types.NewError(types.ErrInvalidInput, "quantity must be positive, got %d", quantity)
	}

	native := money.Native(product.Network.NativeSymbol(), NativeDecimals)
	network := product.Network.String()

	itemTotal := product.Price.MulInt(quantity)
	fee := product.PlatformFee
	if fee.Currency().Symbol == "" {
		fee = money.Zero(native, network)
	}
	if !fee.IsNative() {
		return nil, types.NewError(types.ErrInvalidInput, "platform fee must be native, got %s", fee.Currency().Symbol)
	}

	gasCost, err := c.estimateGas(ctx, product, buffer, native, network)
	if err != nil {
		return nil, err
	}

	totalNative, err := fee.Add(gasCost)
	if err != nil {
		return nil, currencyError(err)
	}

	var totalByToken []money.Value
	if product.TokenPriced() {
		totalByToken = []money.Value{itemTotal}
	} else {
		totalNative, err = totalNative.Add(itemTotal)
		if err != nil {
			return nil, currencyError(err)
		}
	}

	breakdown := &types.CostBreakdown{
		ItemPrice:    itemTotal,
		PlatformFee:  fee,
		GasEstimate:  gasCost,
		TotalNative:  totalNative,
		TotalByToken: totalByToken,
	}
	c.attachUSD(ctx, breakdown)
	return breakdown, nil
}

func (c *Calculator) estimateGas(ctx context.Context, product *types.Product, buffer types.GasBufferConfig, native money.Currency, network string) (money.Value, error) {
	gasPrice, err := providers.Run(ctx, c.reg, product.Network,
		func(ctx context.Context, p providers.ReadProvider) (*big.Int, error) {
			return p.SuggestGasPrice(ctx)
		})
	if err != nil {
		return money.Value{}, err
	}

	gasUnits := defaultPurchaseGas
	if product.TokenPriced() {
		gasUnits += defaultApprovalGas
	}

	raw := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasUnits))
	cost := money.New(raw, native, network)

	if buffer.Multiplier.IsPositive() {
		extra := cost.Mul(buffer.Multiplier)
		buffered, err := cost.Add(extra)
		if err != nil {
			return money.Value{}, currencyError(err)
		}
		cost = buffered
	}
	return cost, nil
}

// attachUSD annotates the breakdown with USD estimates. Failures are logged
// and swallowed: the purchase-currency amounts stay correct without them.
func (c *Calculator) attachUSD(ctx context.Context, b *types.CostBreakdown) {
	if c.oracle == nil {
		return
	}

	total := decimal.Zero
	complete := true

	if usd, ok := c.valueUSD(ctx, b.TotalNative); ok {
		b.TotalNative = b.TotalNative.WithUSD(formatUSD(usd))
		total = total.Add(usd)
	} else if b.TotalNative.IsPositive() {
		complete = false
	}

	for i, tv := range b.TotalByToken {
		if usd, ok := c.valueUSD(ctx, tv); ok {
			b.TotalByToken[i] = tv.WithUSD(formatUSD(usd))
			total = total.Add(usd)
		} else if tv.IsPositive() {
			complete = false
		}
	}

	if complete {
		b.USDEstimate = formatUSD(total)
	}
}

func (c *Calculator) valueUSD(ctx context.Context, v money.Value) (decimal.Decimal, bool) {
	cur := v.Currency()
	rate, ok := c.rate(ctx, cur.Symbol, cur.Address)
	if !ok {
		return decimal.Decimal{}, false
	}
	human := decimal.NewFromBigInt(v.Raw(), -cur.Decimals)
	return human.Mul(rate), true
}

func (c *Calculator) rate(ctx context.Context, symbol, tokenAddress string) (decimal.Decimal, bool) {
	if c.cache != nil {
		if rate, ok := c.cache.Get(symbol, tokenAddress); ok {
			return rate, true
		}
	}

	rateCtx, cancel := context.WithTimeout(ctx, c.oracleTimeout)
	defer cancel()

	rate, ok, err := c.oracle.USDRate(rateCtx, symbol, tokenAddress)
	if err != nil {
		c.log.Warn("usd rate lookup failed", map[string]any{
			"symbol": symbol,
			"error":  err.Error(),
		})
		return decimal.Decimal{}, false
	}
	if !ok {
		return decimal.Decimal{}, false
	}

	if c.cache != nil {
		c.cache.Put(symbol, tokenAddress, rate)
	}
	return rate, true
}

func formatUSD(d decimal.Decimal) string {
	return fmt.Sprintf("$%s", d.StringFixed(2))
}

func currencyError(err error) *types.Error {
	return &types.Error{Code: types.ErrCurrencyMismatch, Message: err.Error(), Err: err}
}
