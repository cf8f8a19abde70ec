package ebay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealwatch/internal/domain/listing"
)

const searchFixture = `{
	"itemSummaries": [
		{
			"itemId": "v1|123456789012|0",
			"legacyItemId": "123456789012",
			"title": "NVIDIA RTX 3080 Founders Edition",
			"price": {"value": "420.00", "currency": "USD"},
			"conditionId": "3000",
			"condition": "Used",
			"seller": {"username": "gpuseller", "feedbackScore": 512, "feedbackPercentage": "99.6"},
			"buyingOptions": ["FIXED_PRICE", "BEST_OFFER"],
			"shippingOptions": [
				{"shippingCostType": "FIXED", "shippingCost": {"value": "0.00", "currency": "USD"}}
			],
			"itemCreationDate": "2026-08-20T14:03:11.000Z",
			"itemWebUrl": "https://www.ebay.com/itm/123456789012",
			"image": {"imageUrl": "https://i.ebayimg.com/images/g/abc/s-l1600.jpg"},
			"listingMarketplaceId": "EBAY_US"
		},
		{
			"itemId": "v1|bad|0",
			"legacyItemId": "not-a-number",
			"title": "record without usable id"
		},
		{
			"itemId": "v1|222|0",
			"legacyItemId": "222",
			"title": "auction with stray best offer",
			"price": {"value": "50.00", "currency": "USD"},
			"buyingOptions": ["AUCTION", "BEST_OFFER"]
		}
	]
}`

func newTestClient(t *testing.T, search http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var tokenRequests int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenRequests, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-id", user)
		assert.Equal(t, "cert-id", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   7200,
		})
	}))
	t.Cleanup(tokenSrv.Close)

	searchSrv := httptest.NewServer(search)
	t.Cleanup(searchSrv.Close)

	c := NewClient(Config{
		AppID:       "app-id",
		CertID:      "cert-id",
		Marketplace: "EBAY_US",
		Limit:       50,
		HTTPTimeout: 5 * time.Second,
	})
	c.tokenURL = tokenSrv.URL
	c.searchURL = searchSrv.URL
	return c, &tokenRequests
}

func TestSearchCategory(t *testing.T) {
	c, tokenRequests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "EBAY_US", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))

		q := r.URL.Query()
		assert.Equal(t, "27386", q.Get("category_ids"))
		assert.Equal(t, "newlyListed", q.Get("sort"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "buyingOptions:{FIXED_PRICE|AUCTION},price:[150..400],priceCurrency:USD", q.Get("filter"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchFixture))
	})

	min := decimal.NewFromInt(150)
	max := decimal.NewFromInt(400)
	listings := c.SearchCategory(context.Background(), 27386, PriceFilter(&min, &max))

	// The record without a numeric id is dropped.
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, int64(123456789012), first.ItemID)
	assert.Equal(t, "v1|123456789012|0", first.FullItemID)
	assert.Equal(t, "NVIDIA RTX 3080 Founders Edition", first.Title)
	require.NotNil(t, first.Price.Value)
	assert.Equal(t, "420", first.Price.Value.String())
	require.NotNil(t, first.Condition.ID)
	assert.Equal(t, int64(3000), *first.Condition.ID)
	assert.Equal(t, "gpuseller", first.Seller.Username)
	require.NotNil(t, first.Seller.FeedbackPercent)
	assert.InDelta(t, 99.6, *first.Seller.FeedbackPercent, 0.001)
	assert.True(t, first.HasBuyingOption(listing.BuyingOptionFixedPrice))
	assert.True(t, first.HasBuyingOption(listing.BuyingOptionBestOffer))
	require.Len(t, first.Shipping, 1)
	assert.Equal(t, listing.ShippingFixed, first.Shipping[0].Type)
	assert.Equal(t, "EBAY_US", first.Marketplace)
	assert.False(t, first.CreatedAt.IsZero())

	// BEST_OFFER without FIXED_PRICE is suppressed.
	second := listings[1]
	assert.Equal(t, int64(222), second.ItemID)
	assert.True(t, second.HasBuyingOption(listing.BuyingOptionAuction))
	assert.False(t, second.HasBuyingOption(listing.BuyingOptionBestOffer))

	assert.Equal(t, int32(1), atomic.LoadInt32(tokenRequests))
}

func TestSearchCategory_TokenIsCached(t *testing.T) {
	c, tokenRequests := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"itemSummaries": []}`))
	})

	c.SearchCategory(context.Background(), 1, "")
	c.SearchCategory(context.Background(), 2, "")

	assert.Equal(t, int32(1), atomic.LoadInt32(tokenRequests), "second search reuses the cached token")
}

func TestSearchCategory_AuthRejectionInvalidatesToken(t *testing.T) {
	c, tokenRequests := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	assert.Nil(t, c.SearchCategory(context.Background(), 1, ""))
	assert.Nil(t, c.SearchCategory(context.Background(), 1, ""))

	// Each rejection clears the cache, so every call refreshes.
	assert.Equal(t, int32(2), atomic.LoadInt32(tokenRequests))
}

func TestSearchCategory_ServerErrorYieldsNoListings(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Nil(t, c.SearchCategory(context.Background(), 1, ""))
}

func TestSearchCategory_TokenEndpointFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("search must not be called without a token")
	})
	c.tokenURL = "http://127.0.0.1:1/unreachable"

	assert.Nil(t, c.SearchCategory(context.Background(), 1, ""))
}

func TestPriceFilter(t *testing.T) {
	min := decimal.NewFromInt(150)
	max := decimal.NewFromInt(400)

	assert.Equal(t, ",price:[150..400],priceCurrency:USD", PriceFilter(&min, &max))
	assert.Equal(t, ",price:[150..],priceCurrency:USD", PriceFilter(&min, nil))
	assert.Equal(t, ",price:[..400],priceCurrency:USD", PriceFilter(nil, &max))
	assert.Equal(t, "", PriceFilter(nil, nil))
}
