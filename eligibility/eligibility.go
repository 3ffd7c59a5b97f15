// Package eligibility validates that a buyer may purchase a product before
// any transaction is planned: sale window, remaining supply, then allowlist
// membership, in that order, short-circuiting on the first failure.
package eligibility

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mintgate/mintgate/types"
)

// Checker runs the ordered eligibility sequence. The clock is injectable
// for tests and defaults to time.Now.
type Checker struct {
	now func() time.Time
}

func NewChecker() *Checker {
	return &Checker{now: time.Now}
}

// NewCheckerAt pins the checker to a fixed clock.
func NewCheckerAt(now func() time.Time) *Checker {
	return &Checker{now: now}
}

// Check validates buyer and quantity against the product. The returned
// result is never nil; the error mirrors the result's reason with the
// matching code so callers can fail fast.
func (c *Checker) Check(product *types.Product, buyer common.Address, quantity int64) (*types.EligibilityResult, error) {
	if quantity <= 0 {
		return ineligible("requested quantity must be positive", 0),
			types.NewError(types.ErrInvalidInput, "requested quantity must be positive")
	}

	now := c.now()

	if !product.StartTime.IsZero() && now.Before(product.StartTime) {
		return ineligible("sale has not started", 0),
			types.NewError(types.ErrNotStarted, "sale starts at %s", product.StartTime.Format(time.RFC3339))
	}

	if !product.EndTime.IsZero() && now.After(product.EndTime) {
		return ineligible("sale has ended", 0),
			types.NewError(types.ErrEnded, "sale ended at %s", product.EndTime.Format(time.RFC3339))
	}

	remaining := product.Supply.Remaining()
	if remaining == 0 {
		return ineligible("sold out", 0),
			types.NewError(types.ErrSoldOut, "no supply remaining")
	}

	allocation, err := c.allocationFor(product, buyer)
	if err != nil {
		return ineligible("address is not on the allowlist", 0), err
	}

	eligible := combineLimits(remaining, allocation)
	if eligible != types.UnlimitedQuantity && quantity > eligible {
		return &types.EligibilityResult{
				Eligible: false,
				Reason:   "requested quantity exceeds allocation",
				Quantity: eligible,
			},
			types.NewError(types.ErrNotEligible, "requested %d but only %d allocated", quantity, eligible)
	}

	return &types.EligibilityResult{Eligible: true, Quantity: eligible}, nil
}

// Allocation answers the standalone allocation query: how many items the
// recipient may still purchase, running the same ordered checks.
func (c *Checker) Allocation(product *types.Product, recipient common.Address) *types.EligibilityResult {
	result, _ := c.Check(product, recipient, 1)
	return result
}

// Status derives the coarse sale state from the same timing and supply
// inputs the eligibility sequence uses.
func (c *Checker) Status(product *types.Product) types.ProductStatus {
	now := c.now()
	switch {
	case !product.StartTime.IsZero() && now.Before(product.StartTime):
		return types.StatusUpcoming
	case !product.EndTime.IsZero() && now.After(product.EndTime):
		return types.StatusEnded
	case product.Supply.Remaining() == 0:
		return types.StatusSoldOut
	default:
		return types.StatusActive
	}
}

func (c *Checker) allocationFor(product *types.Product, buyer common.Address) (int64, error) {
	if product.Allowlist != nil {
		alloc, ok := product.Allowlist.AllocationFor(buyer)
		if !ok {
			return 0, types.NewError(types.ErrNotEligible, "address %s is not on the allowlist", buyer.Hex())
		}
		if alloc == 0 {
			return 0, types.NewError(types.ErrNotEligible, "address %s has no remaining allocation", buyer.Hex())
		}
		return alloc, nil
	}

	if product.WalletLimit > 0 {
		return product.WalletLimit, nil
	}
	return types.UnlimitedQuantity, nil
}

// combineLimits returns the tighter of supply and per-buyer allocation,
// treating the sentinel as no bound.
func combineLimits(remaining, allocation int64) int64 {
	switch {
	case remaining == types.UnlimitedQuantity:
		return allocation
	case allocation == types.UnlimitedQuantity:
		return remaining
	case allocation < remaining:
		return allocation
	default:
		return remaining
	}
}

func ineligible(reason string, quantity int64) *types.EligibilityResult {
	return &types.EligibilityResult{Eligible: false, Reason: reason, Quantity: quantity}
}
