package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/oauth"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

type staticRefresher struct {
	token string
	err   error
}

func (s *staticRefresher) Refresh(_ context.Context, _, _ string) (string, error) {
	return s.token, s.err
}

func newTestProjector(refresher oauth.Refresher) *Projector {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewProjector(log, oauth.NewCache(log, refresher))
}

func TestProjectCheckboxes(t *testing.T) {
	raw := map[string]any{
		"include_description": true,
		"zoom_mode":           false,
		"ics_url":             "https://example.com/cal.ics",
		"days_to_show":        float64(7),
	}

	projected := ProjectCheckboxes(raw)

	if got := projected["include_description"]; got != "yes" {
		t.Errorf("include_description = %v, want %q", got, "yes")
	}

	if got := projected["zoom_mode"]; got != "no" {
		t.Errorf("zoom_mode = %v, want %q", got, "no")
	}

	if got := projected["ics_url"]; got != "https://example.com/cal.ics" {
		t.Errorf("ics_url = %v, want passthrough", got)
	}

	if got := projected["days_to_show"]; got != float64(7) {
		t.Errorf("days_to_show = %v, want passthrough", got)
	}
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	raw := map[string]any{"enabled": true}

	projector := newTestProjector(&staticRefresher{token: "at"})
	projector.Project(context.Background(), raw, types.ExecutionContext{})

	if raw["enabled"] != true {
		t.Errorf("input mutated: enabled = %v, want true", raw["enabled"])
	}
}

func TestProjectInjectsOAuthCredentials(t *testing.T) {
	projector := newTestProjector(&staticRefresher{token: "fresh-access"})

	execCtx := types.ExecutionContext{
		User: types.User{ID: "user1"},
		OAuthTokens: map[string]types.OAuthToken{
			"google": {RefreshToken: "google-rt"},
		},
	}

	projected := projector.Project(context.Background(), map[string]any{}, execCtx)

	for _, key := range []string{"google_analytics", "youtube_analytics", "google_calendar"} {
		creds, ok := projected[key].(map[string]any)
		if !ok {
			t.Fatalf("%s = %T, want credentials map", key, projected[key])
		}

		if creds["refresh_token"] != "google-rt" {
			t.Errorf("%s refresh_token = %v, want %q", key, creds["refresh_token"], "google-rt")
		}

		if creds["access_token"] != "fresh-access" {
			t.Errorf("%s access_token = %v, want %q", key, creds["access_token"], "fresh-access")
		}
	}

	if _, ok := projected["todoist"]; ok {
		t.Error("todoist credentials injected without a todoist token")
	}
}

func TestProjectSkipsInjectionWithoutUser(t *testing.T) {
	projector := newTestProjector(&staticRefresher{token: "fresh-access"})

	execCtx := types.ExecutionContext{
		OAuthTokens: map[string]types.OAuthToken{
			"google": {RefreshToken: "google-rt"},
		},
	}

	projected := projector.Project(context.Background(), map[string]any{}, execCtx)

	if len(projected) != 0 {
		t.Errorf("projected = %v, want no injection without a user ID", projected)
	}
}

func TestProjectOmitsAccessTokenOnRefreshFailure(t *testing.T) {
	projector := newTestProjector(&staticRefresher{err: errors.New("invalid_grant")})

	execCtx := types.ExecutionContext{
		User: types.User{ID: "user1"},
		OAuthTokens: map[string]types.OAuthToken{
			"todoist": {RefreshToken: "todoist-rt"},
		},
	}

	projected := projector.Project(context.Background(), map[string]any{}, execCtx)

	creds, ok := projected["todoist"].(map[string]any)
	if !ok {
		t.Fatalf("todoist = %T, want credentials map", projected["todoist"])
	}

	if creds["refresh_token"] != "todoist-rt" {
		t.Errorf("refresh_token = %v, want %q", creds["refresh_token"], "todoist-rt")
	}

	if _, present := creds["access_token"]; present {
		t.Error("access_token present after refresh failure, want omitted")
	}
}
