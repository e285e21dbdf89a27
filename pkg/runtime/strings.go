package runtime

import (
	"regexp"
	"strings"
)

var lineSplitPattern = regexp.MustCompile(`[\r\n]+`)

// SplitCSV splits a comma-separated string into trimmed, non-empty
// elements. A positive limit caps the number of elements returned.
func SplitCSV(s string, limit int) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		out = append(out, p)

		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out
}

// SplitLines splits a line-separated string into trimmed, non-empty lines.
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := lineSplitPattern.Split(s, -1)
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		out = append(out, p)
	}

	return out
}
