package mintgate

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mintgate/mintgate/types"
)

// productHandler is the shared capability every product variant implements.
// The variant set is closed; handlerFor rejects unknown kinds.
type productHandler interface {
	Prepare(ctx context.Context, product *types.Product, buyer common.Address, quantity int64, buffer types.GasBufferConfig) (*types.PreparedPurchase, error)
	Allocation(product *types.Product, recipient common.Address) *types.EligibilityResult
	Status(product *types.Product) types.ProductStatus
}

func (c *Client) handlerFor(product *types.Product) (productHandler, error) {
	switch product.Kind {
	case types.ProductBlindMint:
		return &blindMintHandler{baseHandler{c}}, nil
	case types.ProductEdition:
		return &editionHandler{baseHandler{c}}, nil
	default:
		return nil, types.NewError(types.ErrInvalidInput, "unknown product kind %q", product.Kind)
	}
}

// baseHandler carries the purchase flow shared by every variant:
// eligibility, cost, balance precheck, then planning.
type baseHandler struct {
	c *Client
}

func (h *baseHandler) Prepare(ctx context.Context, product *types.Product, buyer common.Address, quantity int64, buffer types.GasBufferConfig) (*types.PreparedPurchase, error) {
	result, err := h.c.checker.Check(product, buyer, quantity)
	if err != nil {
		return nil, err
	}

	cost, err := h.c.calc.Calculate(ctx, product, quantity, buffer)
	if err != nil {
		return nil, err
	}

	if err := h.c.balancePrecheck(ctx, product, buyer, cost); err != nil {
		return nil, err
	}

	steps, err := h.c.planner.Plan(ctx, product, buyer, quantity)
	if err != nil {
		return nil, err
	}

	return &types.PreparedPurchase{
		ProductID:   product.ID,
		Buyer:       buyer,
		Quantity:    quantity,
		Steps:       steps,
		Cost:        *cost,
		Eligibility: *result,
		CreatedAt:   time.Now(),
	}, nil
}

func (h *baseHandler) Allocation(product *types.Product, recipient common.Address) *types.EligibilityResult {
	return h.c.checker.Allocation(product, recipient)
}

func (h *baseHandler) Status(product *types.Product) types.ProductStatus {
	return h.c.checker.Status(product)
}

// blindMintHandler sells randomized items from a sealed pool, so the pool
// size must be finite.
type blindMintHandler struct {
	baseHandler
}

func (h *blindMintHandler) Prepare(ctx context.Context, product *types.Product, buyer common.Address, quantity int64, buffer types.GasBufferConfig) (*types.PreparedPurchase, error) {
	if product.Supply.Total == types.UnlimitedQuantity {
		return nil, types.NewError(types.ErrInvalidInput,
			"blind mint %q must define a sealed pool size", product.ID)
	}
	return h.baseHandler.Prepare(ctx, product, buyer, quantity, buffer)
}

// editionHandler covers open and limited editions; the shared flow already
// enforces the optional per-wallet limit.
type editionHandler struct {
	baseHandler
}
