package providers

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `
[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "owner", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "allowance",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "owner", "type": "address" },
      { "name": "spender", "type": "address" }
    ],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "approve",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "spender", "type": "address" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "name": "", "type": "bool" }]
  }
]
`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

func callUint256(ctx context.Context, p ReadProvider, contract common.Address, method string, args ...any) (*big.Int, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := p.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := erc20ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	result, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned unexpected type %T", method, values[0])
	}
	return result, nil
}

// TokenBalance reads an ERC-20 balance.
func TokenBalance(ctx context.Context, p ReadProvider, token, owner common.Address) (*big.Int, error) {
	return callUint256(ctx, p, token, "balanceOf", owner)
}

// TokenAllowance reads the amount spender is currently approved to move
// from owner's balance.
func TokenAllowance(ctx context.Context, p ReadProvider, token, owner, spender common.Address) (*big.Int, error) {
	return callUint256(ctx, p, token, "allowance", owner, spender)
}

// PackApprove builds calldata granting spender permission over amount.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}

// PackUint256Result encodes a uint256 the way a contract call returns it.
// Test fakes use it to stand in for real CallContract responses.
func PackUint256Result(v *big.Int) []byte {
	out := make([]byte, 32)
	b := v.Bytes()
	copy(out[32-len(b):], b)
	return out
}
