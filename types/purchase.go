package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mintgate/mintgate/money"
)

// StepKind tags the planned unit of on-chain work.
type StepKind string

const (
	StepApproval StepKind = "approval"
	StepPurchase StepKind = "purchase"
	StepBridge   StepKind = "bridge"
)

// TransactionRequest is the prepared, not-yet-signed transaction a step
// submits. GasLimit of zero lets the signer estimate.
type TransactionRequest struct {
	To       common.Address `json:"to"`
	Value    *big.Int       `json:"value"`
	Data     []byte         `json:"data"`
	GasLimit uint64         `json:"gasLimit,omitempty"`
}

// Step is one planned transaction in a purchase. Steps are produced in the
// exact order they must be submitted; a later step depends on the on-chain
// state produced by the earlier ones.
type Step struct {
	Kind    StepKind           `json:"kind"`
	Name    string             `json:"name"`
	Network Network            `json:"network"`
	Tx      TransactionRequest `json:"tx"`
}

// EligibilityResult reports whether a buyer may purchase and how much.
// Quantity of UnlimitedQuantity means no per-buyer cap applies.
type EligibilityResult struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
	Quantity int64  `json:"quantity"`
}

// CostBreakdown aggregates everything a purchase will cost, partitioned
// into the native bucket and per-token buckets. TotalNative always equals
// the sum of the native-denominated buckets, TotalByToken the sum of the
// token-denominated ones.
type CostBreakdown struct {
	ItemPrice    money.Value   `json:"itemPrice"`
	PlatformFee  money.Value   `json:"platformFee"`
	GasEstimate  money.Value   `json:"gasEstimate"`
	TotalNative  money.Value   `json:"totalNative"`
	TotalByToken []money.Value `json:"totalByToken,omitempty"`
	USDEstimate  string        `json:"usdEstimate,omitempty"`
}

// PreparedPurchase is a point-in-time quote: the planned steps, their cost,
// and the eligibility state that was checked. Price and eligibility may go
// stale between preparation and execution; callers should expect execution
// to fail with INSUFFICIENT_FUNDS or SOLD_OUT in that case.
type PreparedPurchase struct {
	ProductID   string            `json:"productId"`
	Buyer       common.Address    `json:"buyer"`
	Quantity    int64             `json:"quantity"`
	Steps       []Step            `json:"steps"`
	Cost        CostBreakdown     `json:"cost"`
	Eligibility EligibilityResult `json:"eligibility"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Receipt records one executed step. Receipts are append-only; the
// orchestrator never mutates one after producing it.
type Receipt struct {
	StepKind      StepKind `json:"stepKind"`
	StepName      string   `json:"stepName"`
	Network       Network  `json:"network"`
	TxHash        string   `json:"txHash"`
	BlockNumber   uint64   `json:"blockNumber"`
	Confirmations uint64   `json:"confirmations"`
}

// OrderStatus is derived from receipt count, never set directly.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

// Order aggregates the receipts of an executed purchase.
type Order struct {
	ID           string         `json:"id"`
	ProductID    string         `json:"productId"`
	Buyer        common.Address `json:"buyer"`
	PlannedSteps int            `json:"plannedSteps"`
	Receipts     []Receipt      `json:"receipts"`
}

// Status reports completed only when every planned step has a receipt.
func (o *Order) Status() OrderStatus {
	if o.PlannedSteps > 0 && len(o.Receipts) == o.PlannedSteps {
		return OrderCompleted
	}
	return OrderPending
}
