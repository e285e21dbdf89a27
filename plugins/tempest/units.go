package tempest

import "math"

// SmartRound converts a Celsius reading to Fahrenheit unless the user
// asked for metric, then rounds to the nearest whole degree.
func SmartRound(celsius float64, units string) int {
	if units == "metric" {
		return int(math.Round(celsius))
	}

	return int(math.Round(celsius*9/5 + 32))
}
