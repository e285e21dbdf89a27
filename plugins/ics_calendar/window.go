package icscalendar

import "time"

// Layouts the plugin renders. The layout drives both how far the
// recurrence engine expands series and how wide the final time filter is.
const (
	layoutDefault      = "default"
	layoutTodayOnly    = "today_only"
	layoutWeek         = "week"
	layoutMonth        = "month"
	layoutRollingMonth = "rolling_month"
	layoutSchedule     = "schedule"
)

// window holds the ranges the engine works with. expandStart and
// expandEnd bound recurrence expansion; filterMin and filterMax bound
// the final inclusion check on normalized events. Expansion is wider
// than the filter so that overrides of out-of-window occurrences still
// resolve against their series. cutoff is a second lower bound that
// drops elapsed events: the list layouts cut at the current moment
// unless the user keeps past events, the grid layouts cut at midnight
// unless past events are requested.
type window struct {
	expandStart time.Time
	expandEnd   time.Time
	filterMin   time.Time
	filterMax   time.Time
	cutoff      time.Time
}

// computeWindow derives the ranges from the layout, the current moment
// in the user's time zone, and the include-past-events preference.
func computeWindow(layout string, now time.Time, includePast bool) window {
	loc := now.Location()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)

	var w window

	switch layout {
	case layoutWeek:
		w.expandStart = dayStart.AddDate(0, 0, -7)
	case layoutMonth:
		w.expandStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	case layoutRollingMonth:
		w.expandStart = startOfWeek(dayStart)
	default:
		w.expandStart = dayStart
	}

	var lookahead int

	switch layout {
	case layoutMonth, layoutRollingMonth:
		lookahead = 30
	case layoutSchedule:
		lookahead = 14
	default:
		lookahead = 7
	}

	w.filterMax = dayEnd.AddDate(0, 0, lookahead)

	if layout == layoutTodayOnly {
		w.expandEnd = dayStart.AddDate(0, 0, 2)
	} else {
		w.expandEnd = w.filterMax
	}

	var lookback int

	switch layout {
	case layoutMonth, layoutRollingMonth:
		lookback = 30
	default:
		lookback = 7
	}

	w.filterMin = dayStart.AddDate(0, 0, -lookback)
	w.cutoff = cutoff(layout, now, dayStart, w.filterMin, includePast)

	// Recurring series must expand at least as far back as the cutoff
	// admits, or kept past occurrences would never materialize.
	if w.cutoff.Before(w.expandStart) {
		w.expandStart = w.cutoff
	}

	return w
}

// cutoff resolves the elapsed-event bound for one layout.
func cutoff(layout string, now, dayStart, timeMin time.Time, includePast bool) time.Time {
	switch layout {
	case layoutDefault, layoutTodayOnly:
		if includePast {
			return dayStart
		}

		return now
	case layoutWeek, layoutMonth, layoutRollingMonth:
		if includePast {
			return timeMin
		}

		return dayStart
	default:
		return dayStart
	}
}

// startOfWeek returns the most recent Monday at midnight, counting the
// given day itself when it is a Monday.
func startOfWeek(dayStart time.Time) time.Time {
	offset := int(dayStart.Weekday()-time.Monday+7) % 7

	return dayStart.AddDate(0, 0, -offset)
}

// contains reports whether a normalized event belongs in the final
// result. All-day events are judged on their date alone; timed events
// match when either their start or their end falls inside the range,
// so an in-progress event survives the elapsed cutoff.
func (w window) contains(ev Event) bool {
	if ev.AllDay {
		cutoffDay := time.Date(w.cutoff.Year(), w.cutoff.Month(), w.cutoff.Day(), 0, 0, 0, 0, w.cutoff.Location())

		return !ev.DateTime.Before(cutoffDay) && inRange(ev.DateTime, w.filterMin, w.filterMax)
	}

	if ev.DateTime.Before(w.cutoff) && ev.EndFull.Before(w.cutoff) {
		return false
	}

	return inRange(ev.DateTime, w.filterMin, w.filterMax) || inRange(ev.EndFull, w.filterMin, w.filterMax)
}

func inRange(t, min, max time.Time) bool {
	return !t.Before(min) && !t.After(max)
}
