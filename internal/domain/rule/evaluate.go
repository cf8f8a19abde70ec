package rule

import (
	"dealwatch/internal/domain/listing"
)

// Evaluate decides whether a listing matches a watch rule.
//
// The keyword list is scanned in order. A keyword whose pattern matches the
// title is still skipped, with scanning continuing at later keywords, when the
// listing's price falls outside that keyword's bounds or its condition id is
// globally blocklisted. After a keyword accepts, the rejection checks are
// absolute: exclude patterns, the global blocklist (unless reclaimed by a
// blocklist override), the seller blocklist, and listings without a
// fixed-price buying option all produce a non-match.
func Evaluate(l *listing.Listing, r *WatchRule, g *Globals) MatchResult {
	var won *KeywordRule

	for i := range r.Keywords {
		kw := &r.Keywords[i]
		if !kw.Pattern.Matches(l.Title) {
			continue
		}

		if price := l.EffectivePrice(g.IncludeShippingInPriceFilter); price != nil {
			if kw.MinPrice != nil && price.LessThan(*kw.MinPrice) {
				continue
			}
			if kw.MaxPrice != nil && price.GreaterThan(*kw.MaxPrice) {
				continue
			}
		}

		if l.Condition.ID != nil && g.ConditionBlocked(*l.Condition.ID) {
			continue
		}

		won = kw
		break
	}

	if won == nil {
		return MatchResult{}
	}

	// Exclusions are absolute; overrides never reclaim them.
	if r.Exclude.AnyMatch(l.Title) {
		return MatchResult{}
	}

	if g.Blocklist.AnyMatch(l.Title) && !r.BlocklistOverride.AnyMatch(l.Title) {
		return MatchResult{}
	}

	if l.Seller.Username != "" && g.SellerBlocklist.AnyMatch(l.Seller.Username) {
		return MatchResult{}
	}

	// Auction-only listings are out of scope for price-bound matching.
	if !l.HasBuyingOption(listing.BuyingOptionFixedPrice) {
		return MatchResult{}
	}

	return MatchResult{
		Matched:     true,
		Label:       won.Label,
		MinPrice:    won.MinPrice,
		MaxPrice:    won.MaxPrice,
		TargetPrice: won.TargetPrice,
		Ranges:      won.Ranges,
	}
}
