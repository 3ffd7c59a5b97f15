// Package providers abstracts RPC endpoints and wallet signers behind small
// capability interfaces and runs operations against them with ordered
// fallback. The library never pools or mutates caller-supplied providers.
package providers

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mintgate/mintgate/types"
)

// ReadProvider is the read-only RPC capability the engine consumes.
// *ethclient.Client satisfies it directly.
type ReadProvider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

var _ ReadProvider = (*ethclient.Client)(nil)

// SigningAccount submits prepared transactions on behalf of a wallet.
// Implementations wrap a concrete signing library; the engine only ever
// asks for the active chain id, the signer address, and submission.
type SigningAccount interface {
	Address() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.TransactionRequest) (common.Hash, error)
}

// NetworkSwitcher is an optional capability: signers backed by a wallet UI
// may be able to switch their active network. Returning false means the
// switch was declined.
type NetworkSwitcher interface {
	SwitchNetwork(ctx context.Context, chainID uint64) (bool, error)
}

type closer interface {
	Close()
}

// Registry holds the ordered per-network provider lists supplied by the
// caller. It is created once per client and torn down with it.
type Registry struct {
	mu        sync.RWMutex
	providers map[types.Network][]ReadProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[types.Network][]ReadProvider)}
}

// Add appends providers for a network, preserving caller order. Earlier
// providers are tried first.
func (r *Registry) Add(network types.Network, providers ...ReadProvider) error {
	if !network.IsSupported() {
		return types.NewError(types.ErrUnsupportedNetwork, "unknown network %s", network)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[network] = append(r.providers[network], providers...)
	return nil
}

// Dial connects RPC endpoints for a network and registers them in order.
func (r *Registry) Dial(network types.Network, rpcURLs ...string) error {
	for _, url := range rpcURLs {
		client, err := ethclient.Dial(url)
		if err != nil {
			return fmt.Errorf("failed to connect to %s RPC %s: %w", network, url, err)
		}
		if err := r.Add(network, client); err != nil {
			client.Close()
			return err
		}
	}
	return nil
}

// Providers returns the ordered candidate list for a network.
func (r *Registry) Providers(network types.Network) []ReadProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ReadProvider, len(r.providers[network]))
	copy(out, r.providers[network])
	return out
}

// Close releases every provider that owns a connection.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, list := range r.providers {
		for _, p := range list {
			if c, ok := p.(closer); ok {
				c.Close()
			}
		}
	}
	r.providers = make(map[types.Network][]ReadProvider)
}
