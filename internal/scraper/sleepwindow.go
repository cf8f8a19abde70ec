package scraper

import (
	"fmt"
	"time"

	"dealwatch/pkg/errors"
)

// sleepTimeLayout parses a wall-clock time with a fixed UTC offset, for
// example "23:00-05:00" meaning 23:00 at UTC minus five hours.
const sleepTimeLayout = "15:04-07:00"

// SleepWindow is a daily quiet period during which no cycles run. The window
// may span midnight (start later than end).
type SleepWindow struct {
	startMin int
	endMin   int
	loc      *time.Location
}

// ParseSleepWindow builds a window from start and end clock times. Both
// carry a UTC offset; the start's offset decides the window's zone.
func ParseSleepWindow(start, end string) (*SleepWindow, error) {
	st, err := time.Parse(sleepTimeLayout, start)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "parse sleep start %q: %v", start, err)
	}
	et, err := time.Parse(sleepTimeLayout, end)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "parse sleep end %q: %v", end, err)
	}

	w := &SleepWindow{
		startMin: st.Hour()*60 + st.Minute(),
		endMin:   et.Hour()*60 + et.Minute(),
		loc:      st.Location(),
	}
	if w.startMin == w.endMin {
		return nil, errors.Wrap(errors.ErrInvalidInput, "sleep window start equals end")
	}
	return w, nil
}

// Contains reports whether t falls inside the window
func (w *SleepWindow) Contains(t time.Time) bool {
	lt := t.In(w.loc)
	m := lt.Hour()*60 + lt.Minute()

	if w.startMin < w.endMin {
		return m >= w.startMin && m < w.endMin
	}
	// Spans midnight.
	return m >= w.startMin || m < w.endMin
}

// UntilEnd returns how long after t the window closes. Zero when t is
// outside the window.
func (w *SleepWindow) UntilEnd(t time.Time) time.Duration {
	if !w.Contains(t) {
		return 0
	}

	lt := t.In(w.loc)
	m := lt.Hour()*60 + lt.Minute()

	var remaining int
	if m < w.endMin {
		remaining = w.endMin - m
	} else {
		remaining = (24*60 - m) + w.endMin
	}
	return time.Duration(remaining)*time.Minute - time.Duration(lt.Second())*time.Second
}

// SleepDuration returns the daily length of the window
func (w *SleepWindow) SleepDuration() time.Duration {
	var mins int
	if w.startMin < w.endMin {
		mins = w.endMin - w.startMin
	} else {
		mins = (24*60 - w.startMin) + w.endMin
	}
	return time.Duration(mins) * time.Minute
}

// ActiveDuration returns the daily time outside the window
func (w *SleepWindow) ActiveDuration() time.Duration {
	return 24*time.Hour - w.SleepDuration()
}

func (w *SleepWindow) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d %s",
		w.startMin/60, w.startMin%60,
		w.endMin/60, w.endMin%60,
		w.loc,
	)
}
