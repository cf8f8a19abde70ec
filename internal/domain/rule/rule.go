package rule

import (
	"sort"

	"github.com/shopspring/decimal"

	"dealwatch/internal/domain/deal"
)

// KeywordRule is a single match clause inside a watch rule. The pattern
// decides whether a title is interesting; the optional price bounds and deal
// ranges govern filtering and tier classification for listings it accepts.
type KeywordRule struct {
	Pattern     Pattern
	Label       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	TargetPrice *decimal.Decimal
	Ranges      *deal.Ranges
}

// WatchRule is a named watch configuration: the categories to poll and the
// ordered keyword rules to match against their listings. Keyword order is
// significant: the first matching keyword supplies the price bounds and
// deal ranges. Channel is the notification target, opaque to matching.
type WatchRule struct {
	Name              string
	Categories        []int64
	Channel           string
	Keywords          []KeywordRule
	Exclude           Patterns
	BlocklistOverride Patterns
}

// Globals holds the matching configuration shared by every watch rule.
type Globals struct {
	Blocklist          Patterns
	SellerBlocklist    Patterns
	ConditionBlocklist []int64

	// IncludeShippingInPriceFilter adds fixed shipping cost to the price
	// before comparing against keyword min/max bounds. Independent of the
	// deal-tier shipping toggle applied by the cycle runner.
	IncludeShippingInPriceFilter bool
}

// ConditionBlocked reports whether a condition id is globally blocklisted
func (g *Globals) ConditionBlocked(id int64) bool {
	for _, c := range g.ConditionBlocklist {
		if c == id {
			return true
		}
	}
	return false
}

// Set is one loaded generation of watch rules plus globals. Reloads build a
// fresh Set and swap it between cycles; a Set itself is never mutated.
type Set struct {
	Rules   []*WatchRule
	Globals Globals
}

// CategoryIDs returns the sorted union of category ids across all rules
func (s *Set) CategoryIDs() []int64 {
	seen := make(map[int64]struct{})
	for _, r := range s.Rules {
		for _, c := range r.Categories {
			seen[c] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PriceBounds returns the widest price span covering every keyword rule in
// the set. A bound is nil as soon as any keyword leaves that side open, so
// server-side filtering on the bounds never hides a matchable listing.
func (s *Set) PriceBounds() (min, max *decimal.Decimal) {
	first := true
	for _, r := range s.Rules {
		for i := range r.Keywords {
			kw := &r.Keywords[i]
			if first {
				min, max = kw.MinPrice, kw.MaxPrice
				first = false
				continue
			}
			if min != nil && (kw.MinPrice == nil || kw.MinPrice.LessThan(*min)) {
				min = kw.MinPrice
			}
			if max != nil && (kw.MaxPrice == nil || kw.MaxPrice.GreaterThan(*max)) {
				max = kw.MaxPrice
			}
		}
	}
	return min, max
}

// MatchResult is the outcome of evaluating a listing against a watch rule.
// When Matched is false the remaining fields carry no data.
type MatchResult struct {
	Matched     bool
	Label       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	TargetPrice *decimal.Decimal
	Ranges      *deal.Ranges
}
