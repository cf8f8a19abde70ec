package notify

import (
	"context"

	"dealwatch/internal/domain/deal"
	"dealwatch/internal/domain/listing"
	"dealwatch/internal/domain/rule"
	"dealwatch/pkg/errors"
	"dealwatch/pkg/logger"
)

// Event is a matched listing ready for delivery
type Event struct {
	Listing *listing.Listing
	Rule    *rule.WatchRule
	Match   rule.MatchResult
	Tier    deal.Tier
}

// Notifier delivers a match event to a sink
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every configured sink. A failing sink does not
// stop delivery to the others; all failures are collected into one error.
type Multi struct {
	sinks []Notifier
}

// NewMulti creates a fan-out notifier
func NewMulti(sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Notify(ctx context.Context, ev Event) error {
	multi := &errors.MultiError{}
	for _, s := range m.sinks {
		if err := s.Notify(ctx, ev); err != nil {
			multi.Add(err)
		}
	}
	return multi.ToError()
}

// Log is a sink that only writes the match to the application log. Used as
// the fallback when no external sink is enabled.
type Log struct {
	log *logger.Logger
}

// NewLog creates a log-only sink
func NewLog() *Log {
	return &Log{log: logger.Get().With("component", "log_notifier")}
}

func (l *Log) Notify(_ context.Context, ev Event) error {
	l.log.Infow("Match found",
		"rule", ev.Rule.Name,
		"label", ev.Match.Label,
		"tier", string(ev.Tier),
		"item_id", ev.Listing.ItemID,
		"title", ev.Listing.Title,
		"price", FormatPrice(ev.Listing.Price.Value),
		"url", ev.Listing.URL,
	)
	return nil
}
