package icscalendar

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
)

// ErrNoCalendars is returned when none of the configured ICS URLs
// yielded a parseable calendar.
var ErrNoCalendars = errors.New("the ICS URL is invalid, please check your URL and verify the calendar is public")

// Some feed generators emit a TZID of "Customized Time Zone" that no
// zoneinfo database knows. Rewriting it to the user's zone before
// parsing keeps those feeds usable.
const customizedTZID = "Customized Time Zone"

// overrideKeyLayout keys modified occurrences by their local wall time,
// so an override matches its slot regardless of the offset the feed
// encoded it with.
const overrideKeyLayout = "2006-01-02T15:04:05"

const defaultEventDuration = time.Hour

// source pairs a parsed calendar with its display name. One URL can
// carry several VCALENDAR blocks that all share a name.
type source struct {
	name string
	cal  *ical.Calendar
}

type engine struct {
	log logrus.FieldLogger
	rt  *runtime.Runtime

	now    time.Time
	loc    *time.Location
	layout string
	win    window

	ignorePhrases []string
	confirmedOnly bool
	timeLayout    string
}

func newEngine(rt *runtime.Runtime, layout string) *engine {
	user := rt.User()
	includePast := rt.SettingString("include_past_events", "") == "yes"

	return &engine{
		log:           rt.Log().WithField("component", "icscalendar_engine"),
		rt:            rt,
		now:           user.Now(),
		loc:           user.Location(),
		layout:        layout,
		win:           computeWindow(layout, user.Now(), includePast),
		ignorePhrases: runtime.SplitLines(rt.SettingString("ignore_phrases_exact_match", "")),
		confirmedOnly: rt.SettingString("event_status_filter", "") == "confirmed_only",
		timeLayout:    timeLayout(rt.SettingString("time_format", "")),
	}
}

// Events fetches every configured calendar, expands recurring series,
// and returns the normalized, filtered, deduplicated events sorted by
// start time.
func (e *engine) Events(ctx context.Context) ([]Event, error) {
	urls := runtime.SplitLines(e.rt.SettingString("ics_url", ""))
	headers := parseHeaders(e.rt.SettingString("headers", ""))

	sources := e.fetchCalendars(ctx, urls, headers)
	if len(sources) == 0 {
		return nil, ErrNoCalendars
	}

	overrides := e.overrideIndex(sources)

	var events []Event

	for _, src := range sources {
		for _, ev := range src.cal.Events() {
			if ev.Props.Get(ical.PropRecurrenceID) != nil {
				continue
			}

			if rule := ev.Props.Get(ical.PropRecurrenceRule); rule != nil {
				events = append(events, e.expand(ev, rule.Value, overrides, src.name)...)

				continue
			}

			events = append(events, e.single(ev, src.name)...)
		}
	}

	events = e.filter(events)
	events = dedup(events)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DateTime.Before(events[j].DateTime)
	})

	return events, nil
}

func (e *engine) fetchCalendars(ctx context.Context, urls []string, headers map[string]string) []source {
	var sources []source

	for _, raw := range urls {
		u := strings.ReplaceAll(raw, "webcal://", "https://")

		// A dead feed should not eat the invocation budget retrying.
		resp := e.rt.Fetch(ctx, u, runtime.FetchOptions{Headers: headers, Retry: false})
		if !resp.OK() {
			e.log.WithFields(logrus.Fields{
				"url":    u,
				"status": resp.StatusCode,
			}).Warn("Failed to fetch calendar")

			continue
		}

		body := strings.ReplaceAll(string(resp.Body), customizedTZID, e.loc.String())

		cals := e.parse(body, u)
		name := calendarName(cals, u)

		for _, cal := range cals {
			sources = append(sources, source{name: name, cal: cal})
		}
	}

	return sources
}

func (e *engine) parse(body, u string) []*ical.Calendar {
	var cals []*ical.Calendar

	dec := ical.NewDecoder(strings.NewReader(body))

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}

		if err != nil {
			e.log.WithError(err).WithField("url", u).Warn("Failed to parse calendar")

			break
		}

		cals = append(cals, cal)
	}

	return cals
}

func calendarName(cals []*ical.Calendar, u string) string {
	for _, cal := range cals {
		if prop := cal.Props.Get("X-WR-CALNAME"); prop != nil && prop.Value != "" {
			return prop.Value
		}
	}

	if parsed, err := url.Parse(u); err == nil {
		base := path.Base(parsed.Path)
		if base != "" && base != "." && base != "/" {
			return strings.TrimSuffix(base, path.Ext(base))
		}
	}

	return "Calendar"
}

// overrideIndex collects every event carrying a RECURRENCE-ID, keyed by
// UID and the overridden occurrence's local wall time.
func (e *engine) overrideIndex(sources []source) map[string]ical.Event {
	overrides := make(map[string]ical.Event)

	for _, src := range sources {
		for _, ev := range src.cal.Events() {
			rid := ev.Props.Get(ical.PropRecurrenceID)
			if rid == nil {
				continue
			}

			t, err := rid.DateTime(e.loc)
			if err != nil {
				continue
			}

			overrides[e.overrideKey(propText(ev, ical.PropUID), t)] = ev
		}
	}

	return overrides
}

func (e *engine) overrideKey(uid string, t time.Time) string {
	return uid + "-" + t.In(e.loc).Format(overrideKeyLayout)
}

// expand materializes one occurrence per recurrence inside the
// expansion window, substituting the override event where one exists
// for that slot. A rule that fails to parse degrades to the base event.
func (e *engine) expand(ev ical.Event, rule string, overrides map[string]ical.Event, calName string) []Event {
	start, ok := propTime(ev, ical.PropDateTimeStart, e.loc)
	if !ok {
		return nil
	}

	end, ok := propTime(ev, ical.PropDateTimeEnd, e.loc)
	if !ok {
		end = start.Add(defaultEventDuration)
	}

	duration := end.Sub(start)

	set, err := recurrenceSet(rule, start, e.exceptionDates(ev))
	if err != nil {
		e.log.WithError(err).WithField("uid", propText(ev, ical.PropUID)).Warn("Failed to parse recurrence rule")

		return e.single(ev, calName)
	}

	uid := propText(ev, ical.PropUID)

	var events []Event

	for _, occ := range set.Between(e.win.expandStart, e.win.expandEnd, true) {
		occ = occ.In(e.loc)

		base := ev
		occStart := occ
		occEnd := occ.Add(duration)

		if ov, found := overrides[e.overrideKey(uid, occ)]; found {
			base = ov

			if s, sok := propTime(ov, ical.PropDateTimeStart, e.loc); sok {
				occStart = s
				occEnd = s.Add(duration)
			}

			if en, eok := propTime(ov, ical.PropDateTimeEnd, e.loc); eok {
				occEnd = en
			}
		}

		if norm, keep := e.normalize(base, occStart, occEnd, calName); keep {
			events = append(events, norm)
		}
	}

	return events
}

func recurrenceSet(rule string, start time.Time, exdates []time.Time) (*rrule.Set, error) {
	roption, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, err
	}

	roption.Dtstart = start

	r, err := rrule.NewRRule(*roption)
	if err != nil {
		return nil, err
	}

	set := &rrule.Set{}
	set.DTStart(start)
	set.RRule(r)

	for _, ex := range exdates {
		set.ExDate(ex)
	}

	return set, nil
}

func (e *engine) exceptionDates(ev ical.Event) []time.Time {
	var exdates []time.Time

	for _, prop := range ev.Props.Values(ical.PropExceptionDates) {
		if t, err := prop.DateTime(e.loc); err == nil {
			exdates = append(exdates, t)
		}
	}

	return exdates
}

// single normalizes a non-recurring event. An EXDATE matching the
// event's own start cancels it outright.
func (e *engine) single(ev ical.Event, calName string) []Event {
	start, ok := propTime(ev, ical.PropDateTimeStart, e.loc)
	if !ok {
		return nil
	}

	for _, ex := range e.exceptionDates(ev) {
		if ex.Equal(start) {
			return nil
		}
	}

	end, ok := propTime(ev, ical.PropDateTimeEnd, e.loc)
	if !ok {
		end = start.Add(defaultEventDuration)
	}

	norm, keep := e.normalize(ev, start, end, calName)
	if !keep {
		return nil
	}

	return []Event{norm}
}

func (e *engine) normalize(ev ical.Event, start, end time.Time, calName string) (Event, bool) {
	summary := strings.TrimSpace(propText(ev, ical.PropSummary))

	for _, phrase := range e.ignorePhrases {
		if summary == phrase {
			return Event{}, false
		}
	}

	status := propText(ev, ical.PropStatus)

	if !strings.EqualFold(status, "CONFIRMED") && e.confirmedOnly {
		return Event{}, false
	}

	allDay := isAllDay(ev, start)

	norm := Event{
		Summary:     summary,
		Description: sanitizeDescription(propText(ev, ical.PropDescription)),
		Status:      status,
		DateTime:    start,
		AllDay:      allDay,
		StartFull:   start,
		EndFull:     end,
		CalName:     calName,
	}

	if !allDay {
		norm.Start = start.Format(e.timeLayout)
		norm.End = end.Format(e.timeLayout)
	}

	return norm, true
}

func (e *engine) filter(events []Event) []Event {
	kept := make([]Event, 0, len(events))

	for _, ev := range events {
		if e.win.contains(ev) {
			kept = append(kept, ev)
		}
	}

	return kept
}

// dedup collapses events that are identical in everything but their
// calendar name. The first occurrence wins.
func dedup(events []Event) []Event {
	seen := make(map[string]struct{}, len(events))
	unique := make([]Event, 0, len(events))

	for _, ev := range events {
		key := ev.dedupKey()
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		unique = append(unique, ev)
	}

	return unique
}

func propText(ev ical.Event, name string) string {
	if prop := ev.Props.Get(name); prop != nil {
		return prop.Value
	}

	return ""
}

func propTime(ev ical.Event, name string, loc *time.Location) (time.Time, bool) {
	prop := ev.Props.Get(name)
	if prop == nil {
		return time.Time{}, false
	}

	t, err := prop.DateTime(loc)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}

	return t.In(loc), true
}

// isAllDay reports whether an event is a date-only entry: either its
// start carries VALUE=DATE or it begins at local midnight.
func isAllDay(ev ical.Event, start time.Time) bool {
	if prop := ev.Props.Get(ical.PropDateTimeStart); prop != nil {
		if prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
			return true
		}
	}

	return start.Hour() == 0 && start.Minute() == 0 && start.Second() == 0
}

// parseHeaders turns one "Name: Value" pair per line into a header map.
// A "=" separator is accepted too.
func parseHeaders(raw string) map[string]string {
	lines := runtime.SplitLines(raw)
	if len(lines) == 0 {
		return nil
	}

	headers := make(map[string]string, len(lines))

	for _, line := range lines {
		sep := strings.IndexAny(line, ":=")
		if sep < 0 {
			continue
		}

		name := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])

		if name != "" {
			headers[name] = value
		}
	}

	return headers
}
