// Package planner produces the minimal ordered transaction sequence for a
// purchase. A token-priced purchase needs a spend approval before the mint;
// the approval is elided when the buyer's existing on-chain allowance
// already covers the required amount. Step order is load-bearing.
package planner

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mintgate/mintgate/logger"
	"github.com/mintgate/mintgate/providers"
	"github.com/mintgate/mintgate/types"
)

const mintABIJSON = `
[
  {
    "name": "mint",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "quantity", "type": "uint256" }
    ],
    "outputs": []
  }
]
`

var mintABI = mustParseABI(mintABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// Planner builds purchase step sequences from read-only chain state.
type Planner struct {
	reg *providers.Registry
	log logger.Logger
}

func NewPlanner(reg *providers.Registry, log logger.Logger) *Planner {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Planner{reg: reg, log: log}
}

// Plan emits the steps required to buy quantity items: at most one approval
// followed by exactly one purchase. Native-priced and free products always
// plan a single purchase step.
func (pl *Planner) Plan(ctx context.Context, product *types.Product, buyer common.Address, quantity int64) ([]types.Step, error) {
	purchase, err := pl.purchaseStep(product, buyer, quantity)
	if err != nil {
		return nil, err
	}

	if !product.TokenPriced() {
		return []types.Step{purchase}, nil
	}

	required := product.Price.MulInt(quantity).Raw()
	token := product.TokenAddress()

	allowance, err := providers.Run(ctx, pl.reg, product.Network,
		func(ctx context.Context, p providers.ReadProvider) (*big.Int, error) {
			return providers.TokenAllowance(ctx, p, token, buyer, product.Contract)
		})
	if err != nil {
		return nil, err
	}

	if allowance.Cmp(required) >= 0 {
		pl.log.Debug("approval elided, allowance sufficient", map[string]any{
			"product":   product.ID,
			"allowance": allowance.String(),
			"required":  required.String(),
		})
		return []types.Step{purchase}, nil
	}

	approval, err := pl.approvalStep(product, required)
	if err != nil {
		return nil, err
	}
	return []types.Step{approval, purchase}, nil
}

func (pl *Planner) purchaseStep(product *types.Product, buyer common.Address, quantity int64) (types.Step, error) {
	data, err := mintABI.Pack("mint", buyer, big.NewInt(quantity))
	if err != nil {
		return types.Step{}, fmt.Errorf("pack mint: %w", err)
	}

	value, err := pl.nativeDue(product, quantity)
	if err != nil {
		return types.Step{}, err
	}

	return types.Step{
		Kind:    types.StepPurchase,
		Name:    fmt.Sprintf("Purchase %s", productLabel(product)),
		Network: product.Network,
		Tx: types.TransactionRequest{
			To:    product.Contract,
			Value: value,
			Data:  data,
		},
	}, nil
}

func (pl *Planner) approvalStep(product *types.Product, required *big.Int) (types.Step, error) {
	data, err := providers.PackApprove(product.Contract, required)
	if err != nil {
		return types.Step{}, fmt.Errorf("pack approve: %w", err)
	}

	return types.Step{
		Kind:    types.StepApproval,
		Name:    fmt.Sprintf("Approve %s", product.Price.Currency().Symbol),
		Network: product.Network,
		Tx: types.TransactionRequest{
			To:    product.TokenAddress(),
			Value: new(big.Int),
			Data:  data,
		},
	}, nil
}

// nativeDue is the native amount the purchase transaction must carry: the
// item total when natively priced, plus the platform fee.
func (pl *Planner) nativeDue(product *types.Product, quantity int64) (*big.Int, error) {
	due := new(big.Int)
	if !product.TokenPriced() {
		due.Set(product.Price.MulInt(quantity).Raw())
	}

	fee := product.PlatformFee
	if fee.Currency().Symbol == "" {
		return due, nil
	}
	if !fee.IsNative() {
		return nil, types.NewError(types.ErrInvalidInput,
			"platform fee must be native, got %s", fee.Currency().Symbol)
	}
	return due.Add(due, fee.Raw()), nil
}

func productLabel(product *types.Product) string {
	if product.Name != "" {
		return product.Name
	}
	return product.ID
}
