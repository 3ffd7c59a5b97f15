package providers

import (
	"context"
	"math/big"

	"github.com/mintgate/mintgate/types"
)

// ChainIDFunc reads a candidate's currently active chain id.
type ChainIDFunc[P any] func(ctx context.Context, p P) (*big.Int, error)

// SwitchFunc attempts to move a candidate onto the target chain. Returning
// false without error means the candidate declined the switch.
type SwitchFunc[P any] func(ctx context.Context, p P, chainID uint64) (bool, error)

// RunWithFallback iterates candidates in order and runs op against the first
// one connected (or switchable) to the target chain. Candidates on the wrong
// chain with no usable switch are skipped without running op. The first op
// that succeeds wins; per-candidate failures are swallowed until every
// candidate has been exhausted, at which point the last observed error is
// surfaced. An empty candidate list fails with UNSUPPORTED_NETWORK.
func RunWithFallback[P, T any](
	ctx context.Context,
	target uint64,
	candidates []P,
	readChainID ChainIDFunc[P],
	switchNetwork SwitchFunc[P],
	op func(ctx context.Context, p P) (T, error),
) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, types.NewError(types.ErrUnsupportedNetwork,
			"no providers registered for chain %d", target)
	}

	var lastErr error
	for _, candidate := range candidates {
		chainID, err := readChainID(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}

		if chainID.Uint64() != target {
			if switchNetwork == nil {
				continue
			}
			switched, err := switchNetwork(ctx, candidate, target)
			if err != nil {
				lastErr = err
				continue
			}
			if !switched {
				continue
			}
		}

		result, err := op(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return zero, types.NewError(types.ErrUnsupportedNetwork,
		"no provider connected to chain %d", target)
}

// Run executes a read operation against the registry's provider list for a
// network, with fallback. Read providers cannot switch networks, so
// mismatched endpoints are simply skipped.
func Run[T any](
	ctx context.Context,
	reg *Registry,
	network types.Network,
	op func(ctx context.Context, p ReadProvider) (T, error),
) (T, error) {
	var zero T
	target, ok := network.ChainID()
	if !ok {
		return zero, types.NewError(types.ErrUnsupportedNetwork, "unknown network %s", network)
	}
	return RunWithFallback(ctx, target, reg.Providers(network),
		func(ctx context.Context, p ReadProvider) (*big.Int, error) { return p.ChainID(ctx) },
		nil, op)
}

// RunSigner executes a write operation against a single signer after
// validating it is on the target network. Signers that implement
// NetworkSwitcher get one chance to switch; all others must already be on
// the right chain.
func RunSigner[T any](
	ctx context.Context,
	signer SigningAccount,
	network types.Network,
	op func(ctx context.Context, s SigningAccount) (T, error),
) (T, error) {
	var zero T
	target, ok := network.ChainID()
	if !ok {
		return zero, types.NewError(types.ErrUnsupportedNetwork, "unknown network %s", network)
	}

	var switchFn SwitchFunc[SigningAccount]
	if _, ok := signer.(NetworkSwitcher); ok {
		switchFn = func(ctx context.Context, s SigningAccount, chainID uint64) (bool, error) {
			return s.(NetworkSwitcher).SwitchNetwork(ctx, chainID)
		}
	}

	result, err := RunWithFallback(ctx, target, []SigningAccount{signer},
		func(ctx context.Context, s SigningAccount) (*big.Int, error) { return s.ChainID(ctx) },
		switchFn, op)
	if err != nil {
		if e, ok := err.(*types.Error); ok && e.Code == types.ErrUnsupportedNetwork {
			return zero, types.NewError(types.ErrUnsupportedNetwork,
				"signer is not connected to %s (chain %d)", network, target)
		}
		return zero, err
	}
	return result, nil
}
