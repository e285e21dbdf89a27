package githubgraph

import "math"

// DayCount is one day of the contribution calendar, in calendar order
// with the most recent day last.
type DayCount struct {
	Date  string
	Count int
}

// LongestStreak returns the length of the longest run of consecutive
// days with at least one contribution.
func LongestStreak(days []DayCount) int {
	var longest, run int

	for _, day := range days {
		if day.Count > 0 {
			run++

			if run > longest {
				longest = run
			}

			continue
		}

		run = 0
	}

	return longest
}

// CurrentStreak returns the length of the streak ending today. Today
// extends the streak when it has contributions, but an empty today does
// not break a streak carried in from yesterday.
func CurrentStreak(days []DayCount) int {
	if len(days) == 0 {
		return 0
	}

	var streak int

	if days[len(days)-1].Count > 0 {
		streak++
	}

	for i := len(days) - 2; i >= 0; i-- {
		if days[i].Count == 0 {
			break
		}

		streak++
	}

	return streak
}

// AverageContributions returns the mean daily contribution count
// rounded to two decimal places.
func AverageContributions(days []DayCount) float64 {
	if len(days) == 0 {
		return 0.0
	}

	var total int

	for _, day := range days {
		total += day.Count
	}

	avg := float64(total) / float64(len(days))

	return math.Round(avg*100) / 100
}

// MaxContributions returns the highest single-day contribution count.
func MaxContributions(days []DayCount) int {
	var max int

	for _, day := range days {
		if day.Count > max {
			max = day.Count
		}
	}

	return max
}
