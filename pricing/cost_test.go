package pricing

import (
	"context"
	"math/big"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/mintgate/money"
	"github.com/mintgate/mintgate/providers"
	"github.com/mintgate/mintgate/types"
)

type fakeProvider struct {
	chainID  uint64
	gasPrice *big.Int
}

func (f *fakeProvider) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(f.chainID), nil
}

func (f *fakeProvider) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return providers.PackUint256Result(new(big.Int)), nil
}

func (f *fakeProvider) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return new(big.Int), nil
}

func (f *fakeProvider) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeProvider) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeProvider) TransactionReceipt(context.Context, common.Hash) (*gethtypes.Receipt, error) {
	return nil, ethereum.NotFound
}

func (f *fakeProvider) BlockNumber(context.Context) (uint64, error) {
	return 0, nil
}

type fakeOracle struct {
	rates map[string]decimal.Decimal
	delay time.Duration
	calls int
}

func (o *fakeOracle) USDRate(ctx context.Context, symbol, _ string) (decimal.Decimal, bool, error) {
	o.calls++
	if o.delay > 0 {
		select {
		case <-ctx.Done():
			return decimal.Decimal{}, false, ctx.Err()
		case <-time.After(o.delay):
		}
	}
	rate, ok := o.rates[symbol]
	return rate, ok, nil
}

func registryWithGasPrice(t *testing.T, gasPrice int64) *providers.Registry {
	t.Helper()
	reg := providers.NewRegistry()
	require.NoError(t, reg.Add(types.NetworkBase, &fakeProvider{chainID: 8453, gasPrice: big.NewInt(gasPrice)}))
	return reg
}

var (
	nativeCur = money.Native("ETH", 18)
	usdcCur   = money.ERC20("0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USDC", 6)
)

func freeProduct() *types.Product {
	return &types.Product{
		ID:      "free-item",
		Kind:    types.ProductEdition,
		Network: types.NetworkBase,
		Price:   money.Zero(nativeCur, "base"),
		Supply:  types.Supply{Total: types.UnlimitedQuantity},
	}
}

func TestFreeProductZeroNativeTotal(t *testing.T) {
	calc := NewCalculator(registryWithGasPrice(t, 0), nil, nil, 0, nil)

	cost, err := calc.Calculate(context.Background(), freeProduct(), 1, types.GasBufferConfig{})
	require.NoError(t, err)
	assert.True(t, cost.TotalNative.IsZero())
	assert.Empty(t, cost.TotalByToken)
	assert.Empty(t, cost.USDEstimate)
}

func TestNativeTotalSumsBuckets(t *testing.T) {
	p := freeProduct()
	p.Price = money.New(big.NewInt(1_000_000), nativeCur, "base")
	p.PlatformFee = money.New(big.NewInt(500), nativeCur, "base")
	calc := NewCalculator(registryWithGasPrice(t, 2), nil, nil, 0, nil)

	cost, err := calc.Calculate(context.Background(), p, 3, types.GasBufferConfig{})
	require.NoError(t, err)

	// item 3_000_000 + fee 500 + gas 2 * 180_000
	sum, err := cost.ItemPrice.Add(cost.PlatformFee)
	require.NoError(t, err)
	sum, err = sum.Add(cost.GasEstimate)
	require.NoError(t, err)

	eq, err := cost.TotalNative.Equal(sum)
	require.NoError(t, err)
	assert.True(t, eq, "total must equal the sum of its buckets")
	assert.Equal(t, "3360500", cost.TotalNative.Raw().String())
}

func TestGasBufferApplied(t *testing.T) {
	calc := NewCalculator(registryWithGasPrice(t, 100), nil, nil, 0, nil)

	plain, err := calc.Calculate(context.Background(), freeProduct(), 1, types.GasBufferConfig{})
	require.NoError(t, err)

	buffered, err := calc.Calculate(context.Background(), freeProduct(), 1,
		types.GasBufferConfig{Multiplier: decimal.NewFromFloat(0.2)})
	require.NoError(t, err)

	// 100 wei * 180_000 = 18_000_000; +20% = 21_600_000
	assert.Equal(t, "18000000", plain.GasEstimate.Raw().String())
	assert.Equal(t, "21600000", buffered.GasEstimate.Raw().String())
}

func TestTokenPricedBuckets(t *testing.T) {
	p := freeProduct()
	p.Price = money.New(big.NewInt(5_000_000), usdcCur, "base")
	calc := NewCalculator(registryWithGasPrice(t, 1), nil, nil, 0, nil)

	cost, err := calc.Calculate(context.Background(), p, 2, types.GasBufferConfig{})
	require.NoError(t, err)

	require.Len(t, cost.TotalByToken, 1)
	assert.Equal(t, "10000000", cost.TotalByToken[0].Raw().String())
	// native total carries only fee+gas, approval included in gas units
	assert.Equal(t, "240000", cost.TotalNative.Raw().String())
}

func TestUSDEstimateAttached(t *testing.T) {
	p := freeProduct()
	p.Price = money.New(big.NewInt(2_000_000_000_000_000_000), nativeCur, "base") // 2 ETH
	oracle := &fakeOracle{rates: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(2000)}}
	calc := NewCalculator(registryWithGasPrice(t, 0), oracle, nil, 0, nil)

	cost, err := calc.Calculate(context.Background(), p, 1, types.GasBufferConfig{})
	require.NoError(t, err)
	assert.Equal(t, "$4000.00", cost.USDEstimate)
	assert.Equal(t, "$4000.00", cost.TotalNative.USD())
}

func TestOracleTimeoutOmitsUSD(t *testing.T) {
	p := freeProduct()
	p.Price = money.New(big.NewInt(1_000_000_000_000_000_000), nativeCur, "base")
	oracle := &fakeOracle{
		rates: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(2000)},
		delay: 200 * time.Millisecond,
	}
	calc := NewCalculator(registryWithGasPrice(t, 0), oracle, nil, 10*time.Millisecond, nil)

	cost, err := calc.Calculate(context.Background(), p, 1, types.GasBufferConfig{})
	require.NoError(t, err, "oracle timeout must never fail the calculation")
	assert.Empty(t, cost.USDEstimate)
	assert.Empty(t, cost.TotalNative.USD())
}

func TestRateCacheSkipsSecondLookup(t *testing.T) {
	p := freeProduct()
	p.Price = money.New(big.NewInt(1_000_000_000_000_000_000), nativeCur, "base")
	oracle := &fakeOracle{rates: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(2000)}}
	cache := NewRateCache(time.Minute)
	calc := NewCalculator(registryWithGasPrice(t, 0), oracle, cache, 0, nil)

	_, err := calc.Calculate(context.Background(), p, 1, types.GasBufferConfig{})
	require.NoError(t, err)
	_, err = calc.Calculate(context.Background(), p, 1, types.GasBufferConfig{})
	require.NoError(t, err)

	assert.Equal(t, 1, oracle.calls)
}

func TestRateCacheExpiry(t *testing.T) {
	cache := NewRateCache(time.Minute)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Put("ETH", "", decimal.NewFromInt(2000))
	_, ok := cache.Get("ETH", "")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("ETH", "")
	assert.False(t, ok, "stale entries must not be served")
}

func TestInvalidQuantity(t *testing.T) {
	calc := NewCalculator(registryWithGasPrice(t, 0), nil, nil, 0, nil)
	_, err := calc.Calculate(context.Background(), freeProduct(), 0, types.GasBufferConfig{})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}
