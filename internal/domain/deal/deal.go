package deal

import (
	"github.com/shopspring/decimal"
)

// Tier is the coarse "how good is this price" classification of a listing.
type Tier string

const (
	TierUnknown Tier = "unknown"
	TierFire    Tier = "fire"
	TierGreat   Tier = "great"
	TierGood    Tier = "good"
	TierOk      Tier = "ok"
)

// String returns the tier as a label-safe string
func (t Tier) String() string {
	return string(t)
}

// Range is a price interval, inclusive on both ends.
type Range struct {
	Start decimal.Decimal
	End   decimal.Decimal
}

// Contains reports whether price falls inside the range
func (r Range) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Start) && price.LessThanOrEqual(r.End)
}

// Ranges holds the four explicit deal intervals for a keyword rule.
// The intervals need not be contiguous or exhaustive; a price outside
// all four classifies as TierUnknown.
type Ranges struct {
	Fire  Range
	Great Range
	Good  Range
	Ok    Range
}

// Tier returns the tier whose range contains price. Fire wins over great,
// great over good, good over ok, so overlapping ranges stay deterministic.
func (r *Ranges) Tier(price decimal.Decimal) Tier {
	switch {
	case r.Fire.Contains(price):
		return TierFire
	case r.Great.Contains(price):
		return TierGreat
	case r.Good.Contains(price):
		return TierGood
	case r.Ok.Contains(price):
		return TierOk
	default:
		return TierUnknown
	}
}

var four = decimal.NewFromInt(4)

// Classify maps a price to a deal tier. Explicit ranges take priority; without
// them the [min, max] span is split into four equal quarters, cheapest quarter
// first. Each quarter's upper bound is inclusive. A nil price, missing bounds,
// or a price outside the span all yield TierUnknown, never an error.
func Classify(price, minPrice, maxPrice *decimal.Decimal, ranges *Ranges) Tier {
	if price == nil {
		return TierUnknown
	}

	if ranges != nil {
		return ranges.Tier(*price)
	}

	if minPrice == nil || maxPrice == nil {
		return TierUnknown
	}
	if price.LessThan(*minPrice) || price.GreaterThan(*maxPrice) {
		return TierUnknown
	}

	quarter := maxPrice.Sub(*minPrice).Div(four)

	switch {
	case price.LessThanOrEqual(minPrice.Add(quarter)):
		return TierFire
	case price.LessThanOrEqual(minPrice.Add(quarter.Mul(decimal.NewFromInt(2)))):
		return TierGreat
	case price.LessThanOrEqual(minPrice.Add(quarter.Mul(decimal.NewFromInt(3)))):
		return TierGood
	default:
		return TierOk
	}
}
