package notify

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"dealwatch/internal/domain/deal"
	"dealwatch/internal/domain/listing"
)

// FormatPrice renders a price with thousands separators, or a placeholder
// when the amount is unknown.
func FormatPrice(v *decimal.Decimal) string {
	if v == nil {
		return "Price unavailable"
	}
	f, _ := v.Float64()
	return "$" + humanize.CommafWithDigits(f, 2)
}

// ListingTypeDisplay renders the buying options of a listing. Best Offer is
// only shown alongside a buy-now price.
func ListingTypeDisplay(l *listing.Listing) string {
	hasFixed := l.HasBuyingOption(listing.BuyingOptionFixedPrice)

	var parts []string
	if hasFixed {
		parts = append(parts, "Buy It Now")
	}
	if hasFixed && l.HasBuyingOption(listing.BuyingOptionBestOffer) {
		parts = append(parts, "Best Offer")
	}
	if l.HasBuyingOption(listing.BuyingOptionAuction) {
		parts = append(parts, "Auction")
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " / ")
}

// ShippingLine renders the shipping cost of a listing
func ShippingLine(l *listing.Listing) string {
	for _, opt := range l.Shipping {
		switch opt.Type {
		case listing.ShippingCalculated:
			return "Calculated at Checkout"
		case listing.ShippingFixed:
			if opt.Cost.Value == nil {
				continue
			}
			if opt.Cost.Value.IsZero() {
				return "Free Shipping"
			}
			return FormatPrice(opt.Cost.Value)
		}
	}
	return "Unknown"
}

// TierDisplay renders a deal tier with its marker emoji
func TierDisplay(t deal.Tier) string {
	switch t {
	case deal.TierFire:
		return "🔥 FIRE DEAL"
	case deal.TierGreat:
		return "💰 Great Deal"
	case deal.TierGood:
		return "👍 Good Deal"
	case deal.TierOk:
		return "🙂 OK Deal"
	default:
		return ""
	}
}

// FormatMessage renders the full notification text for a match event
func FormatMessage(ev Event) string {
	var b strings.Builder

	if tier := TierDisplay(ev.Tier); tier != "" {
		fmt.Fprintf(&b, "%s\n", tier)
	}
	fmt.Fprintf(&b, "<b>%s</b>\n\n", htmlEscape(ev.Listing.Title))
	fmt.Fprintf(&b, "Price: %s\n", FormatPrice(ev.Listing.Price.Value))
	fmt.Fprintf(&b, "Shipping: %s\n", ShippingLine(ev.Listing))
	fmt.Fprintf(&b, "Type: %s\n", ListingTypeDisplay(ev.Listing))

	if ev.Listing.Condition.Name != "" {
		fmt.Fprintf(&b, "Condition: %s\n", htmlEscape(ev.Listing.Condition.Name))
	}
	if ev.Listing.Seller.Username != "" {
		fmt.Fprintf(&b, "Seller: %s", htmlEscape(ev.Listing.Seller.Username))
		if ev.Listing.Seller.FeedbackPercent != nil {
			fmt.Fprintf(&b, " (%.1f%%", *ev.Listing.Seller.FeedbackPercent)
			if ev.Listing.Seller.FeedbackScore != nil {
				fmt.Fprintf(&b, ", %d", *ev.Listing.Seller.FeedbackScore)
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}

	if !ev.Listing.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Listed: %s\n", ev.Listing.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	if ev.Match.MinPrice != nil || ev.Match.MaxPrice != nil {
		fmt.Fprintf(&b, "Criteria: %s\n", boundsLine(ev.Match.MinPrice, ev.Match.MaxPrice))
	}

	fmt.Fprintf(&b, "\nRule: %s", ev.Rule.Name)
	if ev.Match.Label != "" {
		fmt.Fprintf(&b, " / %s", ev.Match.Label)
	}
	fmt.Fprintf(&b, "\n%s", ev.Listing.URL)

	return b.String()
}

func boundsLine(min, max *decimal.Decimal) string {
	switch {
	case min != nil && max != nil:
		return FormatPrice(min) + " to " + FormatPrice(max)
	case min != nil:
		return "from " + FormatPrice(min)
	default:
		return "up to " + FormatPrice(max)
	}
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
