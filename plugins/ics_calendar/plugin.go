// Package icscalendar renders events from one or more subscribed ICS
// feeds, expanding recurring series in the user's time zone.
package icscalendar

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
)

const defaultDaysToShow = 7

type Plugin struct{}

func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Description() string {
	return "Displays upcoming events from ICS calendar subscriptions"
}

func (p *Plugin) Locals(ctx context.Context, rt *runtime.Runtime) (map[string]any, error) {
	layout := rt.SettingString("event_layout", layoutDefault)

	eng := newEngine(rt, layout)

	events, err := eng.Events(ctx)
	if err != nil {
		return nil, err
	}

	locals := map[string]any{
		"events":              events,
		"event_layout":        layout,
		"include_description": rt.SettingString("include_description", "no"),
		"include_event_time":  rt.SettingString("include_event_time", "yes"),
		"include_past_events": rt.SettingString("include_past_events", "no"),
		"fixed_week":          rt.SettingString("fixed_week", "no"),
		"first_day":           firstDayIndex(rt.SettingString("first_day", "")),
		"scroll_time":         rt.SettingString("scroll_time", "08:00:00"),
		"scroll_time_end":     rt.SettingString("scroll_time_end", "20:00:00"),
		"time_format":         rt.SettingString("time_format", "am/pm"),
		"today_in_tz":         eng.now.Format("2006-01-02"),
		"zoom_mode":           rt.SettingString("zoom_mode", "no"),
	}

	if layout == layoutDefault || layout == layoutSchedule {
		label := dateLayout(rt.SettingString("date_format", ""))

		locals["grouped_events"] = groupByDay(events, eng.now, daysToShow(rt), func(t time.Time) string {
			return t.Format(label)
		})
	}

	return locals, nil
}

func daysToShow(rt *runtime.Runtime) int {
	raw := rt.SettingString("days_to_show", "")

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return defaultDaysToShow
	}

	return n
}

// firstDayIndex maps a weekday name onto its index with Sunday as zero,
// matching what the grid layouts expect. Unknown names mean Monday.
func firstDayIndex(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return 0
	case "tuesday":
		return 2
	case "wednesday":
		return 3
	case "thursday":
		return 4
	case "friday":
		return 5
	case "saturday":
		return 6
	default:
		return 1
	}
}
