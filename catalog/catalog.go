// Package catalog resolves external product identifiers into the structured
// configuration the purchase engine consumes. The backend itself is an
// external collaborator; this package only speaks its boundary.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/mintgate/mintgate/money"
	"github.com/mintgate/mintgate/pricing"
	"github.com/mintgate/mintgate/types"
)

var validate = validator.New()

// Resolver turns a product id into its purchase configuration.
type Resolver interface {
	Resolve(ctx context.Context, productID string) (*types.Product, error)
}

// ProductIDFromURL extracts the product id from a shareable product URL,
// which ends in /p/<id> or /products/<id>.
func ProductIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", types.NewError(types.ErrInvalidInput, "invalid product url: %v", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return "", types.NewError(types.ErrInvalidInput, "url %q does not contain a product id", raw)
	}
	return segments[len(segments)-1], nil
}

// StaticResolver serves products from memory. Hosts embedding a fixed
// product set and tests use it instead of the HTTP backend.
type StaticResolver struct {
	products map[string]*types.Product
}

func NewStaticResolver(products ...*types.Product) *StaticResolver {
	m := make(map[string]*types.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &StaticResolver{products: m}
}

func (r *StaticResolver) Resolve(_ context.Context, productID string) (*types.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, types.NewError(types.ErrInvalidInput, "unknown product %q", productID)
	}
	return p, nil
}

// productPayload is the backend's wire form of a product.
type productPayload struct {
	ID       string `json:"id" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=blind-mint edition"`
	Name     string `json:"name"`
	Network  string `json:"network" validate:"required"`
	Contract string `json:"contract" validate:"required,eth_addr"`

	Price struct {
		// Amount in the currency's smallest unit, as a decimal string.
		Amount       string `json:"amount" validate:"required"`
		Symbol       string `json:"symbol" validate:"required"`
		Decimals     int32  `json:"decimals"`
		TokenAddress string `json:"tokenAddress,omitempty" validate:"omitempty,eth_addr"`
	} `json:"price"`

	// PlatformFee in native smallest units, per purchase.
	PlatformFee string `json:"platformFee,omitempty"`

	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	Supply struct {
		Total  int64 `json:"total"`
		Minted int64 `json:"minted"`
	} `json:"supply"`

	WalletLimit int64            `json:"walletLimit,omitempty"`
	Allowlist   map[string]int64 `json:"allowlist,omitempty"`
}

// HTTPResolver fetches products from the catalog backend.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, productID string) (*types.Product, error) {
	endpoint := fmt.Sprintf("%s/products/%s", r.baseURL, url.PathEscape(productID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apiError("build catalog request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, apiError("catalog request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, types.NewError(types.ErrInvalidInput, "unknown product %q", productID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("catalog returned status %d", resp.StatusCode)
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apiError("decode catalog response: %v", err)
	}
	return payload.toProduct()
}

func (p *productPayload) toProduct() (*types.Product, error) {
	if err := validate.Struct(p); err != nil {
		return nil, apiError("catalog payload validation failed: %v", err)
	}

	network := types.Network(p.Network)
	if !network.IsSupported() {
		return nil, types.NewError(types.ErrUnsupportedNetwork, "catalog product on unknown network %q", p.Network)
	}

	price, err := p.priceValue(network)
	if err != nil {
		return nil, err
	}

	native := money.Native(network.NativeSymbol(), pricing.NativeDecimals)
	fee := money.Zero(native, network.String())
	if p.PlatformFee != "" {
		raw, ok := new(big.Int).SetString(p.PlatformFee, 10)
		if !ok || raw.Sign() < 0 {
			return nil, apiError("invalid platform fee %q", p.PlatformFee)
		}
		fee = money.New(raw, native, network.String())
	}

	product := &types.Product{
		ID:          p.ID,
		Kind:        types.ProductKind(p.Kind),
		Name:        p.Name,
		Network:     network,
		Contract:    common.HexToAddress(p.Contract),
		Price:       price,
		PlatformFee: fee,
		Supply:      types.Supply{Total: p.Supply.Total, Minted: p.Supply.Minted},
		WalletLimit: p.WalletLimit,
	}
	if p.StartTime != nil {
		product.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		product.EndTime = *p.EndTime
	}
	if p.Allowlist != nil {
		entries := make(map[string]int64, len(p.Allowlist))
		for addr, alloc := range p.Allowlist {
			entries[strings.ToLower(addr)] = alloc
		}
		product.Allowlist = &types.Allowlist{Entries: entries}
	}
	return product, nil
}

func (p *productPayload) priceValue(network types.Network) (money.Value, error) {
	raw, ok := new(big.Int).SetString(p.Price.Amount, 10)
	if !ok || raw.Sign() < 0 {
		return money.Value{}, apiError("invalid price amount %q", p.Price.Amount)
	}

	if p.Price.TokenAddress != "" {
		cur := money.ERC20(p.Price.TokenAddress, p.Price.Symbol, p.Price.Decimals)
		return money.New(raw, cur, network.String()), nil
	}

	decimals := p.Price.Decimals
	if decimals == 0 {
		decimals = pricing.NativeDecimals
	}
	return money.New(raw, money.Native(p.Price.Symbol, decimals), network.String()), nil
}

func apiError(format string, args ...any) *types.Error {
	return types.NewError(types.ErrAPIError, format, args...)
}
