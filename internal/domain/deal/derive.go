package deal

import (
	"github.com/shopspring/decimal"

	"dealwatch/pkg/errors"
)

// DeriveRanges builds the four deal intervals from a minimum and a target
// price, for keyword rules that configure a target instead of hand-tuned
// ranges. The great interval hugs the target ([target-10, target-1]), fire
// covers everything below it down to the minimum, and the span above the
// target up to the derived maximum (target + 5%, capped at +25) is split
// between good and ok. Returns the ranges and the derived maximum price.
func DeriveRanges(minPrice, targetPrice int64) (Ranges, int64, error) {
	if targetPrice <= minPrice {
		return Ranges{}, 0, errors.Wrapf(errors.ErrInvalidInput, "target price %d must exceed min price %d", targetPrice, minPrice)
	}

	margin := targetPrice / 20
	if margin > 25 {
		margin = 25
	}
	maxPrice := targetPrice + margin

	greatStart := targetPrice - 10
	greatEnd := targetPrice - 1
	fireStart := minPrice
	fireEnd := greatStart - 1
	goodStart := greatEnd + 1
	goodEnd := goodStart + (maxPrice-goodStart)/2
	okStart := goodEnd + 1
	okEnd := maxPrice

	if fireEnd < fireStart {
		return Ranges{}, 0, errors.Wrapf(errors.ErrInvalidInput, "target price %d too close to min price %d", targetPrice, minPrice)
	}

	r := Ranges{
		Fire:  Range{Start: decimal.NewFromInt(fireStart), End: decimal.NewFromInt(fireEnd)},
		Great: Range{Start: decimal.NewFromInt(greatStart), End: decimal.NewFromInt(greatEnd)},
		Good:  Range{Start: decimal.NewFromInt(goodStart), End: decimal.NewFromInt(goodEnd)},
		Ok:    Range{Start: decimal.NewFromInt(okStart), End: decimal.NewFromInt(okEnd)},
	}
	return r, maxPrice, nil
}
