// Package mintgate lets a host application purchase blockchain-native
// digital items through one interface regardless of pricing model (native,
// ERC-20, free), transaction count, or which RPC endpoints and signing
// library the host supplies.
package mintgate

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/mintgate/mintgate/catalog"
	"github.com/mintgate/mintgate/eligibility"
	"github.com/mintgate/mintgate/execution"
	"github.com/mintgate/mintgate/logger"
	"github.com/mintgate/mintgate/metrics"
	"github.com/mintgate/mintgate/planner"
	"github.com/mintgate/mintgate/pricing"
	"github.com/mintgate/mintgate/providers"
	"github.com/mintgate/mintgate/types"
)

var validate = validator.New()

// Client is the engine's entry point. It owns the provider registry and the
// rate cache; both live exactly as long as the client.
type Client struct {
	config   *types.Config
	registry *providers.Registry
	resolver catalog.Resolver
	oracle   pricing.PriceOracle

	checker   *eligibility.Checker
	calc      *pricing.Calculator
	planner   *planner.Planner
	executor  *execution.Executor
	rateCache *pricing.RateCache

	log logger.Logger
	rec metrics.Recorder

	timeout      time.Duration
	pollInterval time.Duration
}

// New builds a client from configuration plus functional options. The
// caller registers networks afterwards with AddNetwork.
func New(config *types.Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = &types.Config{}
	}
	if err := validate.Struct(config); err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "invalid config: %v", err)
	}

	timeout := 30 * time.Second
	if config.DefaultTimeout > 0 {
		timeout = config.DefaultTimeout
	}
	rateTTL := time.Minute
	if config.RateCacheTTL > 0 {
		rateTTL = config.RateCacheTTL
	}

	c := &Client{
		config:       config,
		registry:     providers.NewRegistry(),
		checker:      eligibility.NewChecker(),
		rateCache:    pricing.NewRateCache(rateTTL),
		log:          logger.NoopLogger{},
		rec:          metrics.NoopRecorder{},
		timeout:      timeout,
		pollInterval: 2 * time.Second,
	}
	if config.LogLevel != "" {
		c.log = logger.NewZapLogger(config.LogLevel)
	}
	if config.EnableMetrics {
		c.rec = metrics.NewPrometheusRecorder()
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.resolver == nil {
		if config.CatalogBaseURL == "" {
			return nil, types.NewError(types.ErrInvalidInput,
				"either catalogBaseUrl or a custom resolver is required")
		}
		c.resolver = catalog.NewHTTPResolver(config.CatalogBaseURL, timeout)
	}

	c.calc = pricing.NewCalculator(c.registry, c.oracle, c.rateCache, config.OracleTimeout, c.log)
	c.planner = planner.NewPlanner(c.registry, c.log)
	c.executor = execution.NewExecutor(c.registry, c.log, c.rec, config.Confirmations, c.pollInterval)
	return c, nil
}

// AddNetwork dials the given RPC endpoints for a network and registers them
// in order; earlier endpoints are preferred, later ones are fallbacks.
func (c *Client) AddNetwork(network types.Network, rpcURLs ...string) error {
	return c.registry.Dial(network, rpcURLs...)
}

// AddProvider registers pre-built read providers for a network, preserving
// order. Hosts with their own connection management use this instead of
// AddNetwork.
func (c *Client) AddProvider(network types.Network, provider ...providers.ReadProvider) error {
	return c.registry.Add(network, provider...)
}

// Prepare runs eligibility, cost calculation, the buyer balance precheck,
// and step planning, in that order, failing fast before any transaction is
// built. The result is a point-in-time quote.
func (c *Client) Prepare(ctx context.Context, req *types.PrepareRequest) (*types.PreparedPurchase, error) {
	if req == nil {
		return nil, types.NewError(types.ErrInvalidInput, "prepare request is required")
	}
	if err := validate.Struct(req); err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "invalid prepare request: %v", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	product, handler, err := c.resolveProduct(opCtx, req.ProductID)
	if err != nil {
		return nil, err
	}

	prepared, err := handler.Prepare(opCtx, product, common.HexToAddress(req.Buyer), req.Quantity, req.GasBuffer)
	if err != nil {
		c.rec.IncCounter("prepare_failed", map[string]string{"network": product.Network.String()})
		return nil, err
	}

	c.rec.IncCounter("prepare", map[string]string{"network": product.Network.String()})
	c.rec.ObserveLatency("prepare", time.Since(start), map[string]string{"network": product.Network.String()})
	c.log.Info("purchase prepared", map[string]any{
		"product":  product.ID,
		"buyer":    req.Buyer,
		"quantity": req.Quantity,
		"steps":    len(prepared.Steps),
	})
	return prepared, nil
}

// GetAllocation reports how many items the recipient may purchase right
// now, with a human-readable reason when the answer is none.
func (c *Client) GetAllocation(ctx context.Context, productID, recipient string) (*types.EligibilityResult, error) {
	if !common.IsHexAddress(recipient) {
		return nil, types.NewError(types.ErrInvalidInput, "invalid recipient address %q", recipient)
	}

	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	product, handler, err := c.resolveProduct(opCtx, productID)
	if err != nil {
		return nil, err
	}
	return handler.Allocation(product, common.HexToAddress(recipient)), nil
}

// GetStatus derives the product's coarse sale state.
func (c *Client) GetStatus(ctx context.Context, productID string) (types.ProductStatus, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	product, handler, err := c.resolveProduct(opCtx, productID)
	if err != nil {
		return "", err
	}
	return handler.Status(product), nil
}

// ExecuteStep runs a single planned step. Steps must be executed in the
// order they were planned; a step whose submission failed before inclusion
// is safe to retry individually.
func (c *Client) ExecuteStep(ctx context.Context, step types.Step, signer providers.SigningAccount, opts *execution.Options) (*types.Receipt, error) {
	return c.executor.ExecuteStep(ctx, step, signer, opts)
}

// Purchase executes every planned step sequentially, aggregating receipts
// into an Order. The first failing step fails the Order; receipts for
// already-confirmed steps are preserved on the returned Order.
func (c *Client) Purchase(ctx context.Context, signer providers.SigningAccount, prepared *types.PreparedPurchase) (*types.Order, error) {
	if prepared == nil || len(prepared.Steps) == 0 {
		return nil, types.NewError(types.ErrInvalidInput, "prepared purchase has no steps")
	}

	order, err := c.executor.Purchase(ctx, signer, prepared, nil)
	labels := map[string]string{"network": prepared.Steps[0].Network.String()}
	if err != nil {
		c.rec.IncCounter("order_failed", labels)
		return order, err
	}
	c.rec.IncCounter("order_completed", labels)
	return order, nil
}

// Close tears the client down: provider connections and the rate cache.
func (c *Client) Close() {
	c.registry.Close()
	c.rateCache.Purge()
}

func (c *Client) resolveProduct(ctx context.Context, productID string) (*types.Product, productHandler, error) {
	product, err := c.resolver.Resolve(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	handler, err := c.handlerFor(product)
	if err != nil {
		return nil, nil, err
	}
	return product, handler, nil
}

// balancePrecheck fails fast when the buyer cannot cover the totals, before
// any transaction is planned or submitted.
func (c *Client) balancePrecheck(ctx context.Context, product *types.Product, buyer common.Address, cost *types.CostBreakdown) error {
	nativeBalance, err := providers.Run(ctx, c.registry, product.Network,
		func(ctx context.Context, p providers.ReadProvider) (*big.Int, error) {
			return p.BalanceAt(ctx, buyer, nil)
		})
	if err != nil {
		return err
	}
	if nativeBalance.Cmp(cost.TotalNative.Raw()) < 0 {
		return types.NewError(types.ErrInsufficientFunds,
			"need %s but balance is %s wei", cost.TotalNative.Format(), nativeBalance.String())
	}

	for _, tokenTotal := range cost.TotalByToken {
		token := common.HexToAddress(tokenTotal.Currency().Address)
		balance, err := providers.Run(ctx, c.registry, product.Network,
			func(ctx context.Context, p providers.ReadProvider) (*big.Int, error) {
				return providers.TokenBalance(ctx, p, token, buyer)
			})
		if err != nil {
			return err
		}
		if balance.Cmp(tokenTotal.Raw()) < 0 {
			return types.NewError(types.ErrInsufficientFunds,
				"need %s but token balance is %s", tokenTotal.Format(), balance.String())
		}
	}
	return nil
}
