package options

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/oauth"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/plugin"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/settings"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

type listPlugin struct {
	calls *int
}

func (p *listPlugin) Locals(context.Context, *runtime.Runtime) (map[string]any, error) {
	return map[string]any{}, nil
}

func (p *listPlugin) Options(_ context.Context, _ *runtime.Runtime, field string) ([]types.Option, error) {
	*p.calls++

	return []types.Option{{Label: "Primary " + field, Value: "1"}}, nil
}

type plainPlugin struct{}

func (plainPlugin) Locals(context.Context, *runtime.Runtime) (map[string]any, error) {
	return map[string]any{}, nil
}

type nullRefresher struct{}

func (nullRefresher) Refresh(context.Context, string, string) (string, error) {
	return "", context.Canceled
}

func newTestService(t *testing.T, calls *int) *Service {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	registry := plugin.NewRegistry(log)
	if err := registry.Register("lister", func() any { return &listPlugin{calls: calls} }); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := registry.Register("plain", func() any { return plainPlugin{} }); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	projector := settings.NewProjector(log, oauth.NewCache(log, nullRefresher{}))

	return NewService(log, registry, projector, "")
}

func TestFetchReturnsProviderOptions(t *testing.T) {
	var calls int

	svc := newTestService(t, &calls)

	execCtx := types.ExecutionContext{User: types.User{ID: "u1"}}

	result, err := svc.Fetch(context.Background(), "lister", "calendar", execCtx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(result.Options) != 1 || result.Options[0].Label != "Primary calendar" {
		t.Fatalf("Options = %+v, want one Primary calendar entry", result.Options)
	}

	if result.FromCache {
		t.Error("FromCache = true on first fetch")
	}

	// The second fetch for the same user and field is served from cache.
	cached, err := svc.Fetch(context.Background(), "lister", "calendar", execCtx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !cached.FromCache {
		t.Error("FromCache = false on second fetch")
	}

	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
}

func TestFetchRejectsNonProvider(t *testing.T) {
	var calls int

	svc := newTestService(t, &calls)

	_, err := svc.Fetch(context.Background(), "plain", "calendar", types.ExecutionContext{})
	if err == nil {
		t.Error("Fetch() = nil, want error for a plugin without dynamic options")
	}
}
