package icscalendar

import "strings"

// timeLayout maps the user-facing time format choice onto a Go layout.
// The 12-hour clock is the default.
func timeLayout(setting string) string {
	if setting == "" || setting == "am/pm" {
		return "3:04 PM"
	}

	return "15:04"
}

// dateLayout maps the user-facing date format choice onto a Go layout.
// "short" is a compact preset; any other non-empty value is treated as
// a strftime pattern.
func dateLayout(setting string) string {
	switch setting {
	case "":
		return "Monday, January 2"
	case "short":
		return "Mon Jan 2"
	default:
		return convertStrftime(setting)
	}
}

var strftimeDirectives = map[string]string{
	"%A":  "Monday",
	"%a":  "Mon",
	"%B":  "January",
	"%b":  "Jan",
	"%d":  "02",
	"%-d": "2",
	"%e":  "_2",
	"%m":  "01",
	"%-m": "1",
	"%Y":  "2006",
	"%y":  "06",
	"%H":  "15",
	"%M":  "04",
	"%S":  "05",
	"%I":  "03",
	"%-I": "3",
	"%p":  "PM",
	"%P":  "pm",
	"%R":  "15:04",
	"%%":  "%",
}

// convertStrftime translates the strftime directives that appear in
// calendar settings into a Go time layout. Unknown directives pass
// through untouched.
func convertStrftime(format string) string {
	var b strings.Builder

	for i := 0; i < len(format); {
		if format[i] != '%' {
			b.WriteByte(format[i])
			i++

			continue
		}

		matched := false

		for width := 3; width >= 2; width-- {
			if i+width > len(format) {
				continue
			}

			if layout, ok := strftimeDirectives[format[i:i+width]]; ok {
				b.WriteString(layout)
				i += width
				matched = true

				break
			}
		}

		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}

	return b.String()
}
