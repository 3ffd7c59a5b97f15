// Package execution drives planned purchase steps against the chain:
// submit through the signer, await the requested confirmation depth via
// the provider fallback path, and produce append-only receipts.
package execution

import (
	"context"
	"errors"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/mintgate/mintgate/logger"
	"github.com/mintgate/mintgate/metrics"
	"github.com/mintgate/mintgate/providers"
	"github.com/mintgate/mintgate/types"
)

// Observer receives step lifecycle notifications. Each hook fires at most
// once per step, in order: submitted, then confirmed.
type Observer interface {
	OnStepSubmitted(step types.Step, txHash string)
	OnStepConfirmed(step types.Step, receipt types.Receipt)
}

type NoopObserver struct{}

func (NoopObserver) OnStepSubmitted(types.Step, string)        {}
func (NoopObserver) OnStepConfirmed(types.Step, types.Receipt) {}

// Options tune a single execution call. Zero values fall back to the
// executor's configuration.
type Options struct {
	Observer      Observer
	Confirmations uint64
}

// Executor runs steps sequentially. It holds no per-purchase state; the
// immutable PreparedPurchase and the Order being built are the only state
// across suspension points.
type Executor struct {
	reg           *providers.Registry
	log           logger.Logger
	rec           metrics.Recorder
	confirmations uint64
	pollInterval  time.Duration
}

func NewExecutor(reg *providers.Registry, log logger.Logger, rec metrics.Recorder, confirmations uint64, pollInterval time.Duration) *Executor {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if confirmations == 0 {
		confirmations = 1
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Executor{
		reg:           reg,
		log:           log,
		rec:           rec,
		confirmations: confirmations,
		pollInterval:  pollInterval,
	}
}

// ExecuteStep submits one step and waits for it to confirm. The signer is
// validated against the step's network before submission; signers that
// cannot switch networks must already be on the right chain. Failures carry
// the step's identity so the caller can retry from that exact step.
func (e *Executor) ExecuteStep(ctx context.Context, step types.Step, signer providers.SigningAccount, opts *Options) (*types.Receipt, error) {
	observer, confirmations := e.resolveOptions(opts)
	start := time.Now()
	labels := map[string]string{"network": step.Network.String()}

	txHash, err := providers.RunSigner(ctx, signer, step.Network,
		func(ctx context.Context, s providers.SigningAccount) (common.Hash, error) {
			return s.SendTransaction(ctx, &step.Tx)
		})
	if err != nil {
		e.rec.IncCounter("step_failed", labels)
		return nil, types.WrapStepError(step.Name, err)
	}

	e.log.Info("step submitted", map[string]any{
		"step":    step.Name,
		"network": step.Network.String(),
		"txHash":  txHash.Hex(),
	})
	observer.OnStepSubmitted(step, txHash.Hex())

	chainReceipt, confirmed, err := e.awaitConfirmations(ctx, step.Network, txHash, confirmations)
	if err != nil {
		e.rec.IncCounter("step_failed", labels)
		return nil, types.WrapStepError(step.Name, err)
	}

	receipt := types.Receipt{
		StepKind:      step.Kind,
		StepName:      step.Name,
		Network:       step.Network,
		TxHash:        txHash.Hex(),
		BlockNumber:   chainReceipt.BlockNumber.Uint64(),
		Confirmations: confirmed,
	}
	observer.OnStepConfirmed(step, receipt)

	e.rec.IncCounter("step_confirmed", labels)
	e.rec.ObserveLatency("execute_step", time.Since(start), labels)
	return &receipt, nil
}

// Purchase executes every planned step in order, aggregating receipts into
// an Order. It stops at the first failing step; receipts for steps that
// already confirmed stay on the returned Order alongside the error.
func (e *Executor) Purchase(ctx context.Context, signer providers.SigningAccount, prepared *types.PreparedPurchase, opts *Options) (*types.Order, error) {
	order := &types.Order{
		ID:           uuid.NewString(),
		ProductID:    prepared.ProductID,
		Buyer:        prepared.Buyer,
		PlannedSteps: len(prepared.Steps),
	}

	for _, step := range prepared.Steps {
		receipt, err := e.ExecuteStep(ctx, step, signer, opts)
		if err != nil {
			return order, err
		}
		order.Receipts = append(order.Receipts, *receipt)
	}
	return order, nil
}

func (e *Executor) resolveOptions(opts *Options) (Observer, uint64) {
	var observer Observer = NoopObserver{}
	confirmations := e.confirmations
	if opts != nil {
		if opts.Observer != nil {
			observer = opts.Observer
		}
		if opts.Confirmations > 0 {
			confirmations = opts.Confirmations
		}
	}
	return observer, confirmations
}

// awaitConfirmations polls the read providers until the transaction is
// buried under the requested depth. Reverted transactions fail the step.
func (e *Executor) awaitConfirmations(ctx context.Context, network types.Network, txHash common.Hash, want uint64) (*gethtypes.Receipt, uint64, error) {
	for {
		receipt, err := providers.Run(ctx, e.reg, network,
			func(ctx context.Context, p providers.ReadProvider) (*gethtypes.Receipt, error) {
				return p.TransactionReceipt(ctx, txHash)
			})
		switch {
		case errors.Is(err, ethereum.NotFound):
			// not yet included, keep polling
		case err != nil:
			return nil, 0, err
		case receipt.Status == gethtypes.ReceiptStatusFailed:
			return nil, 0, errors.New("transaction reverted on-chain")
		default:
			head, err := providers.Run(ctx, e.reg, network,
				func(ctx context.Context, p providers.ReadProvider) (uint64, error) {
					return p.BlockNumber(ctx)
				})
			if err != nil {
				return nil, 0, err
			}
			included := receipt.BlockNumber.Uint64()
			if head >= included {
				if confirmed := head - included + 1; confirmed >= want {
					return receipt, confirmed, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}
