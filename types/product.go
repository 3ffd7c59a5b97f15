package types

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mintgate/mintgate/money"
)

// ProductKind discriminates the closed set of purchasable product variants.
type ProductKind string

const (
	// ProductBlindMint is a randomized mint from an unrevealed pool.
	ProductBlindMint ProductKind = "blind-mint"
	// ProductEdition is an open or limited edition with a fixed artwork.
	ProductEdition ProductKind = "edition"
)

// UnlimitedQuantity is the sentinel for "no limit" in supply and allocation
// fields.
const UnlimitedQuantity int64 = -1

// ProductStatus is the coarse sale state derived from timing and supply.
type ProductStatus string

const (
	StatusUpcoming ProductStatus = "upcoming"
	StatusActive   ProductStatus = "active"
	StatusEnded    ProductStatus = "ended"
	StatusSoldOut  ProductStatus = "sold-out"
)

// Supply tracks how many items exist and how many have been minted.
// Total of UnlimitedQuantity means an open edition.
type Supply struct {
	Total  int64 `json:"total"`
	Minted int64 `json:"minted"`
}

// Remaining returns how many items can still be minted, or
// UnlimitedQuantity for an open edition.
func (s Supply) Remaining() int64 {
	if s.Total == UnlimitedQuantity {
		return UnlimitedQuantity
	}
	if s.Minted >= s.Total {
		return 0
	}
	return s.Total - s.Minted
}

// Allowlist restricts purchasing to known addresses, each with its own
// allocation. Addresses are stored lowercased.
type Allowlist struct {
	Entries map[string]int64 `json:"entries"`
}

// AllocationFor returns the allocation granted to addr and whether the
// address is on the list at all.
func (a *Allowlist) AllocationFor(addr common.Address) (int64, bool) {
	if a == nil || len(a.Entries) == 0 {
		return 0, false
	}
	alloc, ok := a.Entries[strings.ToLower(addr.Hex())]
	return alloc, ok
}

// Product is the structured configuration the catalog resolves for a
// purchasable item. The purchase engine treats it as read-only.
type Product struct {
	ID       string         `json:"id" validate:"required"`
	Kind     ProductKind    `json:"kind" validate:"required,oneof=blind-mint edition"`
	Name     string         `json:"name"`
	Network  Network        `json:"network" validate:"required"`
	Contract common.Address `json:"contract"`

	// Price is the per-item price; a zero native value means a free claim.
	Price money.Value `json:"price"`
	// PlatformFee is charged per purchase in the network's native currency.
	PlatformFee money.Value `json:"platformFee"`

	// StartTime/EndTime bound the sale window; a zero time leaves that
	// side of the window open.
	StartTime time.Time `json:"startTime,omitempty"`
	EndTime   time.Time `json:"endTime,omitempty"`

	Supply Supply `json:"supply"`

	// WalletLimit caps the quantity a single wallet may buy (editions only).
	// Zero means no per-wallet limit.
	WalletLimit int64 `json:"walletLimit,omitempty"`

	Allowlist *Allowlist `json:"allowlist,omitempty"`
}

// TokenPriced reports whether purchasing requires an ERC-20 transfer and
// therefore a possible approval step.
func (p *Product) TokenPriced() bool {
	return p.Price.IsERC20()
}

// TokenAddress returns the pricing token's contract address. Only meaningful
// when TokenPriced is true.
func (p *Product) TokenAddress() common.Address {
	return common.HexToAddress(p.Price.Currency().Address)
}
