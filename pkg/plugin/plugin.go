// Package plugin defines the plugin contract, the registry of compiled-in
// plugins, and the executor that runs one invocation per inbound request.
package plugin

import (
	"context"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

// Factory constructs a fresh plugin instance for one invocation. A new
// instance per call is the isolation discipline: no symbol or state from
// one invocation can leak into the next.
type Factory func() any

// LocalsProducer is the primary plugin capability: produce the
// string-keyed locals mapping for template consumption.
type LocalsProducer interface {
	Locals(ctx context.Context, rt *runtime.Runtime) (map[string]any, error)
}

// SettingsExecutor is an alternative entry point for plugins that only
// need raw settings and no runtime capabilities.
type SettingsExecutor interface {
	Execute(ctx context.Context, settings map[string]any) (map[string]any, error)
}

// Callable is the lowest-priority entry point: a directly callable unit.
type Callable interface {
	Call(ctx context.Context, settings map[string]any) (map[string]any, error)
}

// OptionsProvider is an optional capability for plugins whose form fields
// carry dynamic options (calendar lists, project lists) fetched from the
// third-party service.
type OptionsProvider interface {
	Options(ctx context.Context, rt *runtime.Runtime, field string) ([]types.Option, error)
}

// Describer is an optional capability exposing a human-readable plugin
// description for the discovery surface.
type Describer interface {
	Description() string
}

// entryKind identifies which capability a registered plugin satisfies.
// Resolved once at registration time, not per call.
type entryKind int

const (
	kindLocals entryKind = iota
	kindExecute
	kindCall
)

// resolveKind checks capabilities in priority order: Locals, Execute, Call.
func resolveKind(instance any) (entryKind, bool) {
	switch instance.(type) {
	case LocalsProducer:
		return kindLocals, true
	case SettingsExecutor:
		return kindExecute, true
	case Callable:
		return kindCall, true
	default:
		return 0, false
	}
}

// invoke dispatches to the resolved entry point on a fresh instance.
func invoke(ctx context.Context, kind entryKind, instance any, rt *runtime.Runtime) (map[string]any, error) {
	switch kind {
	case kindLocals:
		return instance.(LocalsProducer).Locals(ctx, rt)
	case kindExecute:
		return instance.(SettingsExecutor).Execute(ctx, rt.Settings())
	case kindCall:
		return instance.(Callable).Call(ctx, rt.Settings())
	default:
		return nil, &ContractError{Name: rt.Name()}
	}
}
