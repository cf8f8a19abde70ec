package scraper

import "time"

// BrowseAPIDailyLimit is the free-tier daily call allowance for the
// marketplace search API.
const BrowseAPIDailyLimit = 5000

// CallEstimate projects daily marketplace API usage for a configuration
type CallEstimate struct {
	ActivePerDay     time.Duration
	PollsPerDay      int
	UniqueCategories int
	CallsPerDay      int
}

// EstimateDailyCalls projects how many search calls a day the given poll
// interval and category set will make. The window, when set, subtracts the
// daily quiet period from the active time.
func EstimateDailyCalls(interval time.Duration, uniqueCategories int, window *SleepWindow) CallEstimate {
	active := 24 * time.Hour
	if window != nil {
		active = window.ActiveDuration()
	}

	polls := 0
	if interval > 0 {
		polls = int(active / interval)
	}

	return CallEstimate{
		ActivePerDay:     active,
		PollsPerDay:      polls,
		UniqueCategories: uniqueCategories,
		CallsPerDay:      polls * uniqueCategories,
	}
}

// ExceedsLimit reports whether the projection is over the daily allowance
func (e CallEstimate) ExceedsLimit() bool {
	return e.CallsPerDay > BrowseAPIDailyLimit
}
