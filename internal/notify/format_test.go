package notify

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"dealwatch/internal/domain/deal"
	"dealwatch/internal/domain/listing"
	"dealwatch/internal/domain/rule"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$249.99", FormatPrice(dec("249.99")))
	assert.Equal(t, "$1,250", FormatPrice(dec("1250")))
	assert.Equal(t, "$0.5", FormatPrice(dec("0.50")))
	assert.Equal(t, "Price unavailable", FormatPrice(nil))
}

func TestListingTypeDisplay(t *testing.T) {
	tests := []struct {
		name string
		opts []listing.BuyingOption
		want string
	}{
		{"fixed only", []listing.BuyingOption{listing.BuyingOptionFixedPrice}, "Buy It Now"},
		{"fixed with offer", []listing.BuyingOption{listing.BuyingOptionFixedPrice, listing.BuyingOptionBestOffer}, "Buy It Now / Best Offer"},
		{"all three", []listing.BuyingOption{listing.BuyingOptionFixedPrice, listing.BuyingOptionBestOffer, listing.BuyingOptionAuction}, "Buy It Now / Best Offer / Auction"},
		{"auction only", []listing.BuyingOption{listing.BuyingOptionAuction}, "Auction"},
		{"offer without fixed is hidden", []listing.BuyingOption{listing.BuyingOptionBestOffer, listing.BuyingOptionAuction}, "Auction"},
		{"none", nil, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &listing.Listing{BuyingOptions: tt.opts}
			assert.Equal(t, tt.want, ListingTypeDisplay(l))
		})
	}
}

func TestShippingLine(t *testing.T) {
	calculated := &listing.Listing{Shipping: []listing.ShippingOption{{Type: listing.ShippingCalculated}}}
	assert.Equal(t, "Calculated at Checkout", ShippingLine(calculated))

	free := &listing.Listing{Shipping: []listing.ShippingOption{{
		Type: listing.ShippingFixed,
		Cost: listing.Price{Value: dec("0"), Currency: "USD"},
	}}}
	assert.Equal(t, "Free Shipping", ShippingLine(free))

	paid := &listing.Listing{Shipping: []listing.ShippingOption{{
		Type: listing.ShippingFixed,
		Cost: listing.Price{Value: dec("12.50"), Currency: "USD"},
	}}}
	assert.Equal(t, "$12.5", ShippingLine(paid))

	none := &listing.Listing{}
	assert.Equal(t, "Unknown", ShippingLine(none))
}

func TestFormatMessage(t *testing.T) {
	score := int64(512)
	pct := 99.6
	ev := Event{
		Listing: &listing.Listing{
			ItemID:        123,
			Title:         "RTX 3080 <10GB> & box",
			Price:         listing.Price{Value: dec("420"), Currency: "USD"},
			Condition:     listing.Condition{Name: "Used"},
			Seller:        listing.Seller{Username: "gpuseller", FeedbackScore: &score, FeedbackPercent: &pct},
			BuyingOptions: []listing.BuyingOption{listing.BuyingOptionFixedPrice},
			URL:           "https://www.ebay.com/itm/123",
		},
		Rule:  &rule.WatchRule{Name: "gpu-deals"},
		Match: rule.MatchResult{Matched: true, Label: "RTX 3080", MinPrice: dec("150"), MaxPrice: dec("400")},
		Tier:  deal.TierFire,
	}

	msg := FormatMessage(ev)

	assert.Contains(t, msg, "FIRE DEAL")
	assert.Contains(t, msg, "RTX 3080 &lt;10GB&gt; &amp; box", "title is HTML-escaped")
	assert.Contains(t, msg, "Price: $420")
	assert.Contains(t, msg, "Type: Buy It Now")
	assert.Contains(t, msg, "Condition: Used")
	assert.Contains(t, msg, "Seller: gpuseller (99.6%, 512)")
	assert.Contains(t, msg, "Criteria: $150 to $400")
	assert.Contains(t, msg, "Rule: gpu-deals / RTX 3080")
	assert.Contains(t, msg, "https://www.ebay.com/itm/123")
}

func TestFormatMessage_UnknownTierHasNoBanner(t *testing.T) {
	ev := Event{
		Listing: &listing.Listing{Title: "thing", URL: "https://example.com"},
		Rule:    &rule.WatchRule{Name: "r"},
		Tier:    deal.TierUnknown,
	}

	msg := FormatMessage(ev)
	assert.NotContains(t, msg, "DEAL")
	assert.Contains(t, msg, "Price: Price unavailable")
}

func TestMulti_CollectsSinkFailures(t *testing.T) {
	okSink := NewLog()
	failing := notifierFunc(func() error { return assert.AnError })

	ev := Event{
		Listing: &listing.Listing{Title: "x"},
		Rule:    &rule.WatchRule{Name: "r"},
	}

	multi := NewMulti(okSink, failing, failing)
	err := multi.Notify(context.Background(), ev)
	assert.Error(t, err)

	allOK := NewMulti(okSink)
	assert.NoError(t, allOK.Notify(context.Background(), ev))
}

type notifierFunc func() error

func (f notifierFunc) Notify(_ context.Context, _ Event) error { return f() }
