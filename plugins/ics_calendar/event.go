package icscalendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Event is a normalized calendar entry: either a singular event or one
// expanded occurrence of a recurring series. An occurrence inherits
// summary, description, and status from its parent but owns its own
// computed start and end time.
type Event struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	DateTime    time.Time `json:"date_time"`
	AllDay      bool      `json:"all_day"`
	StartFull   time.Time `json:"start_full"`
	EndFull     time.Time `json:"end_full"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	CalName     string    `json:"calname"`
}

// dedupKey covers every field except the calendar name: the same event
// appearing on two subscribed calendars collapses to one entry.
func (e Event) dedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%t|%s|%s|%s|%s",
		e.Summary,
		e.Description,
		e.Status,
		e.DateTime.Format(time.RFC3339),
		e.AllDay,
		e.StartFull.Format(time.RFC3339),
		e.EndFull.Format(time.RFC3339),
		e.Start,
		e.End,
	)
}

// DayGroup is one bucket of events sharing a calendar date.
type DayGroup struct {
	Label  string  `json:"label"`
	Events []Event `json:"events"`
}

// groupByDay partitions sorted events into one bucket per date in
// [today, today+daysToShow), keyed by a formatted date label. An event
// lands in the bucket whose calendar date equals its normalized date.
func groupByDay(events []Event, today time.Time, daysToShow int, label func(time.Time) string) []DayGroup {
	groups := make([]DayGroup, 0, daysToShow)

	for i := 0; i < daysToShow; i++ {
		date := today.AddDate(0, 0, i)

		day := DayGroup{Label: label(date), Events: []Event{}}

		for _, ev := range events {
			y1, m1, d1 := ev.DateTime.Date()
			y2, m2, d2 := date.Date()

			if y1 == y2 && m1 == m2 && d1 == d2 {
				day.Events = append(day.Events, ev)
			}
		}

		groups = append(groups, day)
	}

	return groups
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// sanitizeDescription strips HTML tags and surrounding whitespace.
func sanitizeDescription(description string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(description, ""))
}
