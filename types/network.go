package types

// Network identifies a supported blockchain network.
type Network string

const (
	NetworkEthereum    Network = "ethereum"
	NetworkSepolia     Network = "sepolia" // testnet
	NetworkPolygon     Network = "polygon"
	NetworkPolygonAmoy Network = "polygon-amoy" // testnet
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia" // testnet
	NetworkOptimism    Network = "optimism"
)

var networkChainIDs = map[Network]uint64{
	NetworkEthereum:    1,
	NetworkSepolia:     11155111,
	NetworkPolygon:     137,
	NetworkPolygonAmoy: 80002,
	NetworkBase:        8453,
	NetworkBaseSepolia: 84532,
	NetworkOptimism:    10,
}

// ChainID returns the EVM chain id for the network. The second return is
// false for networks this library does not know.
func (n Network) ChainID() (uint64, bool) {
	id, ok := networkChainIDs[n]
	return id, ok
}

// NetworkFromChainID resolves a chain id back to its network identifier.
func NetworkFromChainID(chainID uint64) (Network, bool) {
	for n, id := range networkChainIDs {
		if id == chainID {
			return n, true
		}
	}
	return "", false
}

func (n Network) IsSupported() bool {
	_, ok := networkChainIDs[n]
	return ok
}

func (n Network) IsTestnet() bool {
	return n == NetworkSepolia || n == NetworkPolygonAmoy || n == NetworkBaseSepolia
}

func (n Network) String() string {
	return string(n)
}

// NativeSymbol returns the network's base asset symbol.
func (n Network) NativeSymbol() string {
	switch n {
	case NetworkPolygon, NetworkPolygonAmoy:
		return "POL"
	default:
		return "ETH"
	}
}
