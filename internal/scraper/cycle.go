package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dealwatch/internal/adapters/ebay"
	"dealwatch/internal/domain/deal"
	"dealwatch/internal/domain/listing"
	"dealwatch/internal/domain/rule"
	"dealwatch/internal/metrics"
	"dealwatch/internal/notify"
	"dealwatch/pkg/logger"
)

// Fetcher retrieves the newest listings for one category. Implementations
// never fail the cycle: a failed fetch yields no listings.
type Fetcher interface {
	SearchCategory(ctx context.Context, categoryID int64, priceFilter string) []listing.Listing
}

// SeenLedger tracks which listing ids were already processed
type SeenLedger interface {
	IsSeen(ctx context.Context, itemID int64) bool
	MarkSeen(ctx context.Context, itemID int64, ruleName, title string) error
}

// Runner executes one scrape cycle: fetch every watched category, evaluate
// unseen listings against the rules, notify matches, and record every
// processed listing in the ledger.
type Runner struct {
	fetch    Fetcher
	seen     SeenLedger
	notifier notify.Notifier

	// pace spreads notifications out so downstream sinks are not burst at.
	pace *rate.Limiter

	includeShippingInDeal bool
	log                   *logger.Logger
}

// NewRunner creates a cycle runner
func NewRunner(f Fetcher, s SeenLedger, n notify.Notifier, notifyInterval time.Duration, includeShippingInDeal bool) *Runner {
	if notifyInterval <= 0 {
		notifyInterval = time.Second
	}
	return &Runner{
		fetch:                 f,
		seen:                  s,
		notifier:              n,
		pace:                  rate.NewLimiter(rate.Every(notifyInterval), 1),
		includeShippingInDeal: includeShippingInDeal,
		log:                   logger.Get().With("component", "cycle_runner"),
	}
}

// Run executes a single cycle over the given rule set
func (r *Runner) Run(ctx context.Context, set *rule.Set) error {
	started := time.Now()
	cycleID := uuid.NewString()[:8]
	log := r.log.With("cycle_id", cycleID)

	categories := set.CategoryIDs()
	priceFilter := ebay.PriceFilter(set.PriceBounds())

	log.Infow("Cycle started", "categories", len(categories), "rules", len(set.Rules))

	byCategory := r.fetchAll(ctx, categories, priceFilter)

	var processed, matched int
	for _, wr := range set.Rules {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, m := r.runRule(ctx, log, wr, &set.Globals, byCategory)
		processed += p
		matched += m
	}

	elapsed := time.Since(started)
	metrics.CycleDuration.Observe(elapsed.Seconds())

	log.Infow("Cycle completed",
		"processed", processed,
		"matched", matched,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return ctx.Err()
}

// fetchAll retrieves every category concurrently. Each category is fetched
// exactly once no matter how many rules watch it.
func (r *Runner) fetchAll(ctx context.Context, categories []int64, priceFilter string) map[int64][]listing.Listing {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[int64][]listing.Listing, len(categories))
	)

	for _, cat := range categories {
		wg.Add(1)
		go func(cat int64) {
			defer wg.Done()
			listings := r.fetch.SearchCategory(ctx, cat, priceFilter)
			mu.Lock()
			out[cat] = listings
			mu.Unlock()
		}(cat)
	}

	wg.Wait()
	return out
}

func (r *Runner) runRule(
	ctx context.Context,
	log *logger.Logger,
	wr *rule.WatchRule,
	globals *rule.Globals,
	byCategory map[int64][]listing.Listing,
) (processed, matched int) {
	// A listing can appear in more than one of the rule's categories.
	inRule := make(map[int64]struct{})

	for _, cat := range wr.Categories {
		for i := range byCategory[cat] {
			l := &byCategory[cat][i]

			if _, dup := inRule[l.ItemID]; dup {
				continue
			}
			inRule[l.ItemID] = struct{}{}

			if r.seen.IsSeen(ctx, l.ItemID) {
				continue
			}

			processed++
			metrics.ListingsProcessed.Inc()

			res := rule.Evaluate(l, wr, globals)
			if res.Matched {
				matched++
				tier := deal.Classify(
					l.EffectivePrice(r.includeShippingInDeal),
					res.MinPrice, res.MaxPrice, res.Ranges,
				)
				metrics.MatchesFound.WithLabelValues(wr.Name, string(tier)).Inc()

				r.deliver(ctx, log, notify.Event{
					Listing: l,
					Rule:    wr,
					Match:   res,
					Tier:    tier,
				})
			}

			if err := r.seen.MarkSeen(ctx, l.ItemID, wr.Name, l.Title); err != nil {
				log.Errorw("Mark seen failed", "item_id", l.ItemID, "error", err)
			}
		}
	}
	return processed, matched
}

// deliver sends one notification, pacing sends and swallowing sink errors so
// a broken sink never fails the cycle.
func (r *Runner) deliver(ctx context.Context, log *logger.Logger, ev notify.Event) {
	if err := r.pace.Wait(ctx); err != nil {
		return
	}
	if err := r.notifier.Notify(ctx, ev); err != nil {
		log.Errorw("Notification failed",
			"rule", ev.Rule.Name,
			"item_id", ev.Listing.ItemID,
			"error", err,
		)
	}
}
