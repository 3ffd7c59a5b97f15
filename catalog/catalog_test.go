package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/mintgate/money"
	"github.com/mintgate/mintgate/types"
)

func TestProductIDFromURL(t *testing.T) {
	id, err := ProductIDFromURL("https://shop.example.com/p/abc-123")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)

	id, err = ProductIDFromURL("https://shop.example.com/collections/spring/products/xyz/")
	require.NoError(t, err)
	assert.Equal(t, "xyz", id)

	_, err = ProductIDFromURL("https://shop.example.com/")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}

func TestStaticResolver(t *testing.T) {
	p := &types.Product{ID: "known", Network: types.NetworkBase}
	r := NewStaticResolver(p)

	got, err := r.Resolve(context.Background(), "known")
	require.NoError(t, err)
	assert.Same(t, p, got)

	_, err = r.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}

const editionJSON = `{
	"id": "drop-1",
	"kind": "edition",
	"name": "Spring Drop",
	"network": "base",
	"contract": "0x384Aa214be0B279cbf211e9b2C992d8633F77848",
	"price": {"amount": "5000000", "symbol": "USDC", "decimals": 6,
		"tokenAddress": "0x036CbD53842c5426634e7929541eC2318f3dCF7e"},
	"platformFee": "500",
	"supply": {"total": 100, "minted": 25},
	"walletLimit": 3,
	"allowlist": {"0xF39Fd6e51aad88F6F4ce6aB8827279cffFb92266": 2}
}`

func TestHTTPResolverDecodesProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/drop-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(editionJSON))
	}))
	defer srv.Close()

	product, err := NewHTTPResolver(srv.URL, time.Second).Resolve(context.Background(), "drop-1")
	require.NoError(t, err)

	assert.Equal(t, "drop-1", product.ID)
	assert.Equal(t, types.ProductEdition, product.Kind)
	assert.Equal(t, types.NetworkBase, product.Network)
	assert.True(t, product.TokenPriced())
	assert.Equal(t, "5000000", product.Price.Raw().String())
	assert.Equal(t, "500", product.PlatformFee.Raw().String())
	assert.True(t, product.PlatformFee.IsNative())
	assert.Equal(t, int64(75), product.Supply.Remaining())

	// allowlist keys are normalized to lowercase on the way in
	alloc, ok := product.Allowlist.AllocationFor(product.Contract)
	assert.False(t, ok)
	assert.Zero(t, alloc)
	require.NotNil(t, product.Allowlist)
	assert.Equal(t, int64(2), product.Allowlist.Entries["0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"])
}

func TestHTTPResolverNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	_, err := NewHTTPResolver(srv.URL, time.Second).Resolve(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}

func TestHTTPResolverServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPResolver(srv.URL, time.Second).Resolve(context.Background(), "drop-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrAPIError, types.CodeOf(err))
}

func TestPayloadValidation(t *testing.T) {
	p := &productPayload{ID: "x", Kind: "mystery-box", Network: "base",
		Contract: "0x384Aa214be0B279cbf211e9b2C992d8633F77848"}
	p.Price.Amount = "1"
	p.Price.Symbol = "ETH"

	_, err := p.toProduct()
	require.Error(t, err)
	assert.Equal(t, types.ErrAPIError, types.CodeOf(err))
}

func TestPayloadRejectsUnknownNetwork(t *testing.T) {
	p := &productPayload{ID: "x", Kind: "edition", Network: "dogechain",
		Contract: "0x384Aa214be0B279cbf211e9b2C992d8633F77848"}
	p.Price.Amount = "1"
	p.Price.Symbol = "ETH"

	_, err := p.toProduct()
	require.Error(t, err)
	assert.Equal(t, types.ErrUnsupportedNetwork, types.CodeOf(err))
}

func TestPayloadNativePriceDefaultsDecimals(t *testing.T) {
	p := &productPayload{ID: "x", Kind: "edition", Network: "base",
		Contract: "0x384Aa214be0B279cbf211e9b2C992d8633F77848"}
	p.Price.Amount = "1000000000000000000"
	p.Price.Symbol = "ETH"

	product, err := p.toProduct()
	require.NoError(t, err)
	assert.False(t, product.TokenPriced())
	assert.Equal(t, "1 ETH", product.Price.Format())
	assert.Equal(t, money.Native("ETH", 18), product.Price.Currency())
}
