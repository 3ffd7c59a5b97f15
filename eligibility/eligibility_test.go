package eligibility

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/mintgate/money"
	"github.com/mintgate/mintgate/types"
)

var (
	buyer    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	stranger = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	saleOpen = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func fixedChecker(at time.Time) *Checker {
	return NewCheckerAt(func() time.Time { return at })
}

func openEdition() *types.Product {
	return &types.Product{
		ID:      "open-edition",
		Kind:    types.ProductEdition,
		Network: types.NetworkBase,
		Price:   money.New(big.NewInt(0), money.Native("ETH", 18), "base"),
		Supply:  types.Supply{Total: types.UnlimitedQuantity},
	}
}

func TestNotStarted(t *testing.T) {
	p := openEdition()
	p.StartTime = saleOpen

	result, err := fixedChecker(saleOpen.Add(-time.Hour)).Check(p, buyer, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotStarted, types.CodeOf(err))
	assert.False(t, result.Eligible)
	assert.NotEmpty(t, result.Reason)
}

func TestEnded(t *testing.T) {
	p := openEdition()
	p.EndTime = saleOpen

	_, err := fixedChecker(saleOpen.Add(time.Hour)).Check(p, buyer, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrEnded, types.CodeOf(err))
}

func TestSoldOut(t *testing.T) {
	p := openEdition()
	p.Supply = types.Supply{Total: 100, Minted: 100}

	_, err := fixedChecker(saleOpen).Check(p, buyer, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrSoldOut, types.CodeOf(err))
}

func TestCheckOrderTimingBeforeSupply(t *testing.T) {
	// Sold out AND not started: the timing check must win.
	p := openEdition()
	p.StartTime = saleOpen
	p.Supply = types.Supply{Total: 10, Minted: 10}

	_, err := fixedChecker(saleOpen.Add(-time.Minute)).Check(p, buyer, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotStarted, types.CodeOf(err))
}

func TestUnlimitedSupplyAlwaysPasses(t *testing.T) {
	p := openEdition()
	p.Supply = types.Supply{Total: types.UnlimitedQuantity, Minted: 1 << 40}

	result, err := fixedChecker(saleOpen).Check(p, buyer, 5)
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, types.UnlimitedQuantity, result.Quantity)
}

func TestAllowlistRejectsStranger(t *testing.T) {
	p := openEdition()
	p.Allowlist = &types.Allowlist{Entries: map[string]int64{
		"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266": 3,
	}}

	result, err := fixedChecker(saleOpen).Check(p, stranger, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotEligible, types.CodeOf(err))
	assert.False(t, result.Eligible)
	assert.NotEmpty(t, result.Reason)
	assert.Zero(t, result.Quantity)
}

func TestAllowlistAllocation(t *testing.T) {
	p := openEdition()
	p.Allowlist = &types.Allowlist{Entries: map[string]int64{
		"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266": 3,
	}}

	result, err := fixedChecker(saleOpen).Check(p, buyer, 2)
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, int64(3), result.Quantity)

	// Asking beyond the allocation fails but still reports what is allowed.
	result, err = fixedChecker(saleOpen).Check(p, buyer, 4)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotEligible, types.CodeOf(err))
	assert.Equal(t, int64(3), result.Quantity)
}

func TestAllocationCappedBySupply(t *testing.T) {
	p := openEdition()
	p.Supply = types.Supply{Total: 10, Minted: 8}
	p.Allowlist = &types.Allowlist{Entries: map[string]int64{
		"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266": 5,
	}}

	result, err := fixedChecker(saleOpen).Check(p, buyer, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Quantity, "remaining supply bounds the allocation")
}

func TestWalletLimit(t *testing.T) {
	p := openEdition()
	p.WalletLimit = 2

	result, err := fixedChecker(saleOpen).Check(p, buyer, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Quantity)

	_, err = fixedChecker(saleOpen).Check(p, buyer, 3)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotEligible, types.CodeOf(err))
}

func TestAllocationQuery(t *testing.T) {
	p := openEdition()
	p.Allowlist = &types.Allowlist{Entries: map[string]int64{}}

	result := fixedChecker(saleOpen).Allocation(p, stranger)
	assert.False(t, result.Eligible)
	assert.NotEmpty(t, result.Reason)
	assert.Zero(t, result.Quantity)
}

func TestStatus(t *testing.T) {
	p := openEdition()
	p.StartTime = saleOpen
	p.EndTime = saleOpen.Add(24 * time.Hour)

	assert.Equal(t, types.StatusUpcoming, fixedChecker(saleOpen.Add(-time.Hour)).Status(p))
	assert.Equal(t, types.StatusActive, fixedChecker(saleOpen.Add(time.Hour)).Status(p))
	assert.Equal(t, types.StatusEnded, fixedChecker(saleOpen.Add(48*time.Hour)).Status(p))

	p.Supply = types.Supply{Total: 1, Minted: 1}
	assert.Equal(t, types.StatusSoldOut, fixedChecker(saleOpen.Add(time.Hour)).Status(p))
}
