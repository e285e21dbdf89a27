package icscalendar

import (
	"reflect"
	"testing"
	"time"
)

func TestConvertStrftime(t *testing.T) {
	ref := time.Date(2025, 6, 8, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		format string
		want   string
	}{
		{"%A, %B %-d", "Sunday, June 8"},
		{"%a %b %d", "Sun Jun 08"},
		{"%Y-%m-%d", "2025-06-08"},
		{"%H:%M", "15:04"},
		{"%-I:%M %p", "3:04 PM"},
		{"%R", "15:04"},
		{"100%% done", "100% done"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			layout := convertStrftime(tt.format)

			if got := ref.Format(layout); got != tt.want {
				t.Errorf("Format(%q -> %q) = %q, want %q", tt.format, layout, got, tt.want)
			}
		})
	}
}

func TestTimeLayout(t *testing.T) {
	ref := time.Date(2025, 6, 8, 14, 30, 0, 0, time.UTC)

	if got := ref.Format(timeLayout("")); got != "2:30 PM" {
		t.Errorf("default time format = %q, want 2:30 PM", got)
	}

	if got := ref.Format(timeLayout("am/pm")); got != "2:30 PM" {
		t.Errorf("am/pm time format = %q, want 2:30 PM", got)
	}

	if got := ref.Format(timeLayout("24h")); got != "14:30" {
		t.Errorf("24h time format = %q, want 14:30", got)
	}
}

func TestDateLayout(t *testing.T) {
	ref := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)

	if got := ref.Format(dateLayout("")); got != "Sunday, June 8" {
		t.Errorf("default date format = %q, want Sunday, June 8", got)
	}

	if got := ref.Format(dateLayout("short")); got != "Sun Jun 8" {
		t.Errorf("short date format = %q, want Sun Jun 8", got)
	}

	if got := ref.Format(dateLayout("%d.%m.%Y")); got != "08.06.2025" {
		t.Errorf("custom date format = %q, want 08.06.2025", got)
	}
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "colon separated",
			input: "Authorization: Bearer abc\nX-Custom: yes",
			want:  map[string]string{"Authorization": "Bearer abc", "X-Custom": "yes"},
		},
		{
			name:  "equals separated",
			input: "X-Token=secret",
			want:  map[string]string{"X-Token": "secret"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseHeaders(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseHeaders(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestGroupByDay(t *testing.T) {
	today := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)

	events := []Event{
		{Summary: "Monday One", DateTime: time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)},
		{Summary: "Monday Two", DateTime: time.Date(2025, 6, 16, 15, 0, 0, 0, time.UTC)},
		{Summary: "Wednesday", DateTime: time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)},
		{Summary: "Out Of Range", DateTime: time.Date(2025, 6, 25, 9, 0, 0, 0, time.UTC)},
	}

	groups := groupByDay(events, today, 3, func(t time.Time) string {
		return t.Format("2006-01-02")
	})

	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	if groups[0].Label != "2025-06-16" || len(groups[0].Events) != 2 {
		t.Errorf("groups[0] = %s with %d events, want 2025-06-16 with 2", groups[0].Label, len(groups[0].Events))
	}

	if len(groups[1].Events) != 0 {
		t.Errorf("groups[1] has %d events, want empty bucket", len(groups[1].Events))
	}

	if len(groups[2].Events) != 1 || groups[2].Events[0].Summary != "Wednesday" {
		t.Errorf("groups[2] = %+v, want the Wednesday event", groups[2].Events)
	}
}
