// Package githubgraph renders a user's GitHub contribution calendar
// with streak and volume statistics.
package githubgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
)

const graphqlEndpoint = "https://api.github.com/graphql"

const contributionsQuery = `query($login: String!) {
  user(login: $login) {
    contributionsCollection {
      contributionCalendar {
        totalContributions
        weeks {
          contributionDays {
            date
            contributionCount
          }
        }
      }
    }
  }
}`

type Plugin struct {
	apiKey string

	// endpoint overrides the GraphQL URL in tests.
	endpoint string
}

// New builds the plugin with a fallback API key. A token supplied in
// the user's settings takes precedence.
func New(apiKey string) *Plugin {
	return &Plugin{apiKey: apiKey, endpoint: graphqlEndpoint}
}

func (p *Plugin) Description() string {
	return "Displays a GitHub contribution graph with streak statistics"
}

func (p *Plugin) Locals(ctx context.Context, rt *runtime.Runtime) (map[string]any, error) {
	username := rt.SettingString("github_username", "")
	if username == "" {
		return nil, errors.New("github_username is required")
	}

	token := rt.SettingString("personal_access_token", p.apiKey)
	if token == "" {
		return nil, errors.New("a GitHub access token is required")
	}

	calendar, err := p.fetchCalendar(ctx, rt, username, token)
	if err != nil {
		return nil, err
	}

	days := flattenDays(calendar)

	return map[string]any{
		"username":              username,
		"weeks":                 calendar.Get("weeks").Value(),
		"total_contributions":   calendar.Get("totalContributions").Int(),
		"longest_streak":        LongestStreak(days),
		"current_streak":        CurrentStreak(days),
		"average_contributions": AverageContributions(days),
		"max_contributions":     MaxContributions(days),
	}, nil
}

func (p *Plugin) fetchCalendar(ctx context.Context, rt *runtime.Runtime, username, token string) (gjson.Result, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     contributionsQuery,
		"variables": map[string]string{"login": username},
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := rt.HTTPClient().Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("querying GitHub: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	if msg := gjson.GetBytes(body, "errors.0.message"); msg.Exists() {
		return gjson.Result{}, fmt.Errorf("GitHub API error: %s", msg.String())
	}

	calendar := gjson.GetBytes(body, "data.user.contributionsCollection.contributionCalendar")
	if !calendar.Exists() {
		return gjson.Result{}, fmt.Errorf("no contribution data for user %s", username)
	}

	return calendar, nil
}

func flattenDays(calendar gjson.Result) []DayCount {
	var days []DayCount

	calendar.Get("weeks").ForEach(func(_, week gjson.Result) bool {
		week.Get("contributionDays").ForEach(func(_, day gjson.Result) bool {
			days = append(days, DayCount{
				Date:  day.Get("date").String(),
				Count: int(day.Get("contributionCount").Int()),
			})

			return true
		})

		return true
	})

	return days
}
