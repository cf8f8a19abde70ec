package listing

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuyingOption is one of the marketplace purchase modes offered on a listing.
type BuyingOption string

const (
	BuyingOptionFixedPrice BuyingOption = "FIXED_PRICE"
	BuyingOptionBestOffer  BuyingOption = "BEST_OFFER"
	BuyingOptionAuction    BuyingOption = "AUCTION"
)

// ShippingType describes how a shipping option's cost is determined.
type ShippingType string

const (
	ShippingFixed      ShippingType = "FIXED"
	ShippingCalculated ShippingType = "CALCULATED"
	ShippingUnknown    ShippingType = "UNKNOWN"
)

// Price is a monetary amount with its currency. Either part may be absent
// on a raw record; absent amounts stay nil instead of defaulting to zero.
type Price struct {
	Value    *decimal.Decimal
	Currency string
}

// Seller is the listing seller's public profile data.
type Seller struct {
	Username        string
	FeedbackScore   *int64
	FeedbackPercent *float64
}

// Condition is the marketplace condition classification of an item.
type Condition struct {
	ID   *int64
	Name string
}

// ShippingOption is one shipping offer attached to a listing.
type ShippingOption struct {
	Type        ShippingType
	Cost        Price
	MinDelivery *time.Time
	MaxDelivery *time.Time
}

// Listing is an immutable snapshot of one marketplace record, normalized from
// the raw search response. It is never mutated after construction.
type Listing struct {
	ItemID        int64
	FullItemID    string
	Title         string
	Price         Price
	Condition     Condition
	Seller        Seller
	BuyingOptions []BuyingOption
	Shipping      []ShippingOption
	CreatedAt     time.Time
	URL           string
	ImageURL      string
	Marketplace   string
}

// HasBuyingOption reports whether the listing offers the given purchase mode
func (l *Listing) HasBuyingOption(opt BuyingOption) bool {
	for _, o := range l.BuyingOptions {
		if o == opt {
			return true
		}
	}
	return false
}

// ShippingCost returns the cost of the first fixed-cost shipping option,
// or nil when shipping is calculated, free-without-amount, or absent.
func (l *Listing) ShippingCost() *decimal.Decimal {
	for _, s := range l.Shipping {
		if s.Type == ShippingFixed && s.Cost.Value != nil {
			v := *s.Cost.Value
			return &v
		}
	}
	return nil
}

// EffectivePrice returns the item price, optionally with the fixed shipping
// cost added. Returns nil when the listing has no price.
func (l *Listing) EffectivePrice(includeShipping bool) *decimal.Decimal {
	if l.Price.Value == nil {
		return nil
	}
	p := *l.Price.Value
	if includeShipping {
		if sc := l.ShippingCost(); sc != nil {
			p = p.Add(*sc)
		}
	}
	return &p
}
