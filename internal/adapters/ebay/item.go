package ebay

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"dealwatch/internal/domain/listing"
)

// Wire types for the Browse API item summary search response. Amounts come
// back as strings; everything is optional in practice, so normalization
// leaves malformed fields absent instead of failing.

type searchResponse struct {
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

type itemSummary struct {
	ItemID               string           `json:"itemId"`
	LegacyItemID         string           `json:"legacyItemId"`
	Title                string           `json:"title"`
	Price                *convertedAmount `json:"price"`
	ConditionID          string           `json:"conditionId"`
	Condition            string           `json:"condition"`
	Seller               *sellerInfo      `json:"seller"`
	BuyingOptions        []string         `json:"buyingOptions"`
	ShippingOptions      []shippingOption `json:"shippingOptions"`
	ItemCreationDate     string           `json:"itemCreationDate"`
	ItemWebURL           string           `json:"itemWebUrl"`
	Image                *imageInfo       `json:"image"`
	ListingMarketplaceID string           `json:"listingMarketplaceId"`
}

type convertedAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type sellerInfo struct {
	Username           string `json:"username"`
	FeedbackScore      *int64 `json:"feedbackScore"`
	FeedbackPercentage string `json:"feedbackPercentage"`
}

type shippingOption struct {
	ShippingCostType         string           `json:"shippingCostType"`
	ShippingCost             *convertedAmount `json:"shippingCost"`
	MinEstimatedDeliveryDate string           `json:"minEstimatedDeliveryDate"`
	MaxEstimatedDeliveryDate string           `json:"maxEstimatedDeliveryDate"`
}

type imageInfo struct {
	ImageURL string `json:"imageUrl"`
}

// toListing normalizes one raw item summary into a domain listing. Returns
// false when the record carries no usable numeric item id; such records
// cannot be tracked in the seen ledger and are dropped.
func (raw *itemSummary) toListing() (listing.Listing, bool) {
	id, err := strconv.ParseInt(raw.LegacyItemID, 10, 64)
	if err != nil || id == 0 {
		return listing.Listing{}, false
	}

	l := listing.Listing{
		ItemID:        id,
		FullItemID:    raw.ItemID,
		Title:         raw.Title,
		Price:         parseAmount(raw.Price),
		Condition:     parseCondition(raw.ConditionID, raw.Condition),
		Seller:        parseSeller(raw.Seller),
		BuyingOptions: parseBuyingOptions(raw.BuyingOptions),
		Shipping:      parseShipping(raw.ShippingOptions),
		URL:           raw.ItemWebURL,
		Marketplace:   raw.ListingMarketplaceID,
	}

	if raw.Image != nil {
		l.ImageURL = raw.Image.ImageURL
	}
	if t, err := time.Parse(time.RFC3339, raw.ItemCreationDate); err == nil {
		l.CreatedAt = t
	}
	return l, true
}

func parseAmount(a *convertedAmount) listing.Price {
	if a == nil {
		return listing.Price{}
	}
	p := listing.Price{Currency: a.Currency}
	if v, err := decimal.NewFromString(a.Value); err == nil {
		p.Value = &v
	}
	return p
}

func parseCondition(id, name string) listing.Condition {
	c := listing.Condition{Name: name}
	if v, err := strconv.ParseInt(id, 10, 64); err == nil {
		c.ID = &v
	}
	return c
}

func parseSeller(s *sellerInfo) listing.Seller {
	if s == nil {
		return listing.Seller{}
	}
	out := listing.Seller{
		Username:      s.Username,
		FeedbackScore: s.FeedbackScore,
	}
	if v, err := strconv.ParseFloat(s.FeedbackPercentage, 64); err == nil {
		out.FeedbackPercent = &v
	}
	return out
}

// parseBuyingOptions keeps only known options and drops BEST_OFFER when
// FIXED_PRICE is absent: a best offer without a buy-now price is meaningless.
func parseBuyingOptions(raw []string) []listing.BuyingOption {
	var out []listing.BuyingOption
	hasFixed := false

	for _, o := range raw {
		switch listing.BuyingOption(o) {
		case listing.BuyingOptionFixedPrice:
			hasFixed = true
			out = append(out, listing.BuyingOptionFixedPrice)
		case listing.BuyingOptionBestOffer:
			out = append(out, listing.BuyingOptionBestOffer)
		case listing.BuyingOptionAuction:
			out = append(out, listing.BuyingOptionAuction)
		}
	}

	if !hasFixed {
		filtered := out[:0]
		for _, o := range out {
			if o != listing.BuyingOptionBestOffer {
				filtered = append(filtered, o)
			}
		}
		out = filtered
	}
	return out
}

func parseShipping(raw []shippingOption) []listing.ShippingOption {
	out := make([]listing.ShippingOption, 0, len(raw))

	for _, o := range raw {
		opt := listing.ShippingOption{
			Type: listing.ShippingUnknown,
			Cost: parseAmount(o.ShippingCost),
		}
		switch listing.ShippingType(o.ShippingCostType) {
		case listing.ShippingFixed:
			opt.Type = listing.ShippingFixed
		case listing.ShippingCalculated:
			opt.Type = listing.ShippingCalculated
		}
		if t, err := time.Parse(time.RFC3339, o.MinEstimatedDeliveryDate); err == nil {
			opt.MinDelivery = &t
		}
		if t, err := time.Parse(time.RFC3339, o.MaxEstimatedDeliveryDate); err == nil {
			opt.MaxDelivery = &t
		}
		out = append(out, opt)
	}
	return out
}
