// Package tempest renders current conditions and a short forecast from
// a WeatherFlow Tempest station.
package tempest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

const defaultBaseURL = "https://swd.weatherflow.com/swd/rest"

type Plugin struct {
	apiKey  string
	baseURL string

	// apiURL overrides the WeatherFlow endpoint in tests.
	apiURL string
}

// New builds the plugin with a fallback API token and the server's base
// URL, used to serve locally hosted icon overrides.
func New(apiKey, baseURL string) *Plugin {
	return &Plugin{apiKey: apiKey, baseURL: baseURL, apiURL: defaultBaseURL}
}

func (p *Plugin) Description() string {
	return "Displays weather conditions from a Tempest weather station"
}

func (p *Plugin) Locals(ctx context.Context, rt *runtime.Runtime) (map[string]any, error) {
	stationID := rt.SettingString("station_id", "")
	latLon := rt.SettingString("lat_lon", "")

	if stationID == "" && latLon == "" {
		return nil, errors.New("station_id or lat_lon is required")
	}

	token := rt.SettingString("api_token", p.apiKey)
	if token == "" {
		return nil, errors.New("a Tempest API token is required")
	}

	units := rt.SettingString("units", "imperial")
	unitsWind := rt.SettingString("units_wind", "mph")
	unitsPrecip := rt.SettingString("units_precip", "in")

	query := map[string]string{"units_precip": unitsPrecip}

	if stationID != "" {
		query["station_id"] = stationID
		query["units_wind"] = unitsWind
		query["token"] = token
	} else {
		lat, lon, err := splitLatLon(latLon)
		if err != nil {
			return nil, err
		}

		query["lat"] = lat
		query["lon"] = lon
		query["snap_to_nearest_owned_station"] = "true"
		query["api_key"] = token
	}

	resp := rt.Fetch(ctx, p.apiURL+"/better_forecast", runtime.FetchOptions{
		Query: query,
		Retry: true,
	})
	if !resp.OK() {
		return nil, fmt.Errorf("fetching forecast: %s", resp.ErrMsg())
	}

	forecast := resp.JSON()
	current := forecast.Get("current_conditions")

	now := rt.User().Now()
	loc := rt.User().Location()

	today := findDay(forecast, now, loc)
	tomorrow := findDay(forecast, now.AddDate(0, 0, 1), loc)

	todayHigh, todayLow := dayExtremes(today)

	// The forecast payload starts showing tomorrow before the local day
	// is over. Station statistics still carry today's extremes.
	if stationID != "" && (!todayHigh.Exists() || !todayLow.Exists()) {
		todayHigh, todayLow = p.fetchStatsExtremes(ctx, rt, stationID, token)
	}

	icon := current.Get("icon").String()

	locals := map[string]any{
		"temperature":            SmartRound(current.Get("air_temperature").Float(), units),
		"feels_like":             SmartRound(current.Get("feels_like").Float(), units),
		"humidity":               current.Get("relative_humidity").Int(),
		"conditions":             current.Get("conditions").String(),
		"forecast":               forecast.Get("forecast.daily").Value(),
		"weather_image":          p.iconURL(icon),
		"today_weather_image":    p.iconURL(today.Get("icon").String()),
		"tomorrow_weather_image": p.iconURL(tomorrow.Get("icon").String()),
		"today_high":             roundTemp(todayHigh, units),
		"today_low":              roundTemp(todayLow, units),
		"tomorrow_high":          roundTemp(tomorrow.Get("air_temp_high"), units),
		"tomorrow_low":           roundTemp(tomorrow.Get("air_temp_low"), units),
		"max_uv":                 maxUV(forecast, now, loc),
		"tomorrow_max_uv":        maxUV(forecast, now.AddDate(0, 0, 1), loc),
		"sunrise":                localClock(today.Get("sunrise"), loc),
		"sunset":                 localClock(today.Get("sunset"), loc),
		"sunrise_unix":           unixOrEmpty(today.Get("sunrise")),
		"sunset_unix":            unixOrEmpty(today.Get("sunset")),
		"wind": map[string]any{
			"direction_cardinal": current.Get("wind_direction_cardinal").String(),
			"gust":               current.Get("wind_gust").Float(),
			"units":              unitsWind,
		},
		"today_precip": map[string]any{
			"icon":        today.Get("precip_icon").String(),
			"probability": today.Get("precip_probability").Int(),
			"amount":      current.Get("precip_accum_local_day").Float(),
			"units":       unitsPrecip,
		},
		"tomorrow_precip": map[string]any{
			"icon":        tomorrow.Get("precip_icon").String(),
			"probability": tomorrow.Get("precip_probability").Int(),
		},
	}

	return locals, nil
}

// Options lists the caller's stations for the station_id form field.
// Only stations carrying a Tempest device (type ST) are offered.
func (p *Plugin) Options(ctx context.Context, rt *runtime.Runtime, field string) ([]types.Option, error) {
	if field != "station_id" {
		return nil, fmt.Errorf("no dynamic options for field %s", field)
	}

	token := rt.SettingString("api_token", p.apiKey)
	if token == "" {
		return nil, errors.New("a Tempest API token is required")
	}

	resp := rt.Fetch(ctx, p.apiURL+"/stations", runtime.FetchOptions{
		Query: map[string]string{"token": token},
	})
	if !resp.OK() {
		return nil, fmt.Errorf("fetching stations: %s", resp.ErrMsg())
	}

	var opts []types.Option

	resp.JSON().Get("stations").ForEach(func(_, station gjson.Result) bool {
		name := station.Get("name").String()
		id := station.Get("station_id").String()

		station.Get("devices").ForEach(func(_, device gjson.Result) bool {
			if device.Get("device_type").String() != "ST" {
				return true
			}

			opts = append(opts, types.Option{
				Label: fmt.Sprintf("%s (ST %s)", name, device.Get("device_id").String()),
				Value: id,
			})

			return true
		})

		return true
	})

	return opts, nil
}

func splitLatLon(latLon string) (lat, lon string, err error) {
	parts := strings.SplitN(latLon, ",", 2)
	if len(parts) != 2 {
		return "", "", errors.New(`lat_lon must be "lat,lon"`)
	}

	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// findDay picks the daily forecast entry whose local start falls on the
// same calendar date as the given moment.
func findDay(forecast gjson.Result, moment time.Time, loc *time.Location) gjson.Result {
	y, m, d := moment.In(loc).Date()

	var match gjson.Result

	forecast.Get("forecast.daily").ForEach(func(_, day gjson.Result) bool {
		start := time.Unix(day.Get("day_start_local").Int(), 0).In(loc)

		dy, dm, dd := start.Date()
		if dy == y && dm == m && dd == d {
			match = day

			return false
		}

		return true
	})

	return match
}

func dayExtremes(day gjson.Result) (high, low gjson.Result) {
	return day.Get("air_temp_high"), day.Get("air_temp_low")
}

// fetchStatsExtremes falls back to the station statistics endpoint when
// the forecast omits today's extremes. The last stats_day row is today;
// index 4 holds the low and index 5 the high.
func (p *Plugin) fetchStatsExtremes(ctx context.Context, rt *runtime.Runtime, stationID, token string) (high, low gjson.Result) {
	resp := rt.Fetch(ctx, p.apiURL+"/stats/station/"+stationID, runtime.FetchOptions{
		Query: map[string]string{"token": token},
		Retry: true,
	})
	if !resp.OK() {
		rt.Log().WithField("status", resp.StatusCode).Warn("Failed to fetch station statistics")

		return gjson.Result{}, gjson.Result{}
	}

	days := resp.JSON().Get("stats_day").Array()
	if len(days) == 0 {
		return gjson.Result{}, gjson.Result{}
	}

	today := days[len(days)-1]

	return today.Get("5"), today.Get("4")
}

func roundTemp(value gjson.Result, units string) any {
	if !value.Exists() {
		return nil
	}

	return SmartRound(value.Float(), units)
}

// localClock formats a unix timestamp as a local wall-clock time, or an
// empty string when the payload omits it.
func localClock(value gjson.Result, loc *time.Location) string {
	if !value.Exists() {
		return ""
	}

	return time.Unix(value.Int(), 0).In(loc).Format("15:04")
}

func unixOrEmpty(value gjson.Result) any {
	if !value.Exists() {
		return ""
	}

	return value.Int()
}

// maxUV returns the highest forecast UV index for the local day holding
// the given moment. Whole numbers come back as integers, anything else
// rounded to one decimal place.
func maxUV(forecast gjson.Result, moment time.Time, loc *time.Location) any {
	local := moment.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)

	var max float64

	forecast.Get("forecast.hourly").ForEach(func(_, hour gjson.Result) bool {
		t := time.Unix(hour.Get("time").Int(), 0).In(loc)
		if t.Before(dayStart) || t.After(dayEnd) {
			return true
		}

		if uv := hour.Get("uv").Float(); uv > max {
			max = uv
		}

		return true
	})

	if max == float64(int(max)) {
		return int(max)
	}

	return float64(int(max*10+0.5)) / 10
}

func (p *Plugin) iconURL(icon string) string {
	if icon == "" {
		return ""
	}

	switch icon {
	case "clear-day":
		return p.baseURL + "/images/plugins/weather/wi-day-sunny.svg"
	case "clear-night":
		return p.baseURL + "/images/plugins/weather/wi-night-clear.svg"
	}

	return "https://tempestwx.com/images/Updated/" + icon + ".svg"
}
