package plugin

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

// entry is one registered plugin: its factory and the entry-point kind
// resolved at registration time.
type entry struct {
	factory Factory
	kind    entryKind
}

// Registry maps plugin identifiers to compiled-in implementations.
// Identifiers resolve to factories so every invocation gets a fresh,
// isolated instance.
type Registry struct {
	log     logrus.FieldLogger
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates a new plugin registry.
func NewRegistry(log logrus.FieldLogger) *Registry {
	return &Registry{
		log:     log.WithField("component", "plugin_registry"),
		entries: make(map[string]entry, 8),
	}
}

// Register adds a plugin under the given identifier. The capability
// check happens here, once: a probe instance is constructed and tested
// for Locals, Execute, then Call, in that order. A plugin with no usable
// entry point is rejected with a ContractError.
func (r *Registry) Register(name string, factory Factory) error {
	kind, ok := resolveKind(factory())
	if !ok {
		return &ContractError{Name: name}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = entry{factory: factory, kind: kind}
	r.log.WithField("plugin", name).Debug("Registered plugin")

	return nil
}

// Names returns the identifiers of all registered plugins, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// lookup returns the entry for an identifier.
func (r *Registry) lookup(name string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]

	return e, ok
}

// NewInstance constructs a fresh instance for an identifier, or a
// NotFoundError when nothing is registered under it.
func (r *Registry) NewInstance(name string) (any, error) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}

	return e.factory(), nil
}

// Describe returns discovery metadata for every registered plugin,
// reading form-field schemas from schemaDir.
func (r *Registry) Describe(schemaDir string) []types.PluginInfo {
	names := r.Names()
	infos := make([]types.PluginInfo, 0, len(names))

	for _, name := range names {
		info := types.PluginInfo{Name: name}

		if instance, err := r.NewInstance(name); err == nil {
			if d, ok := instance.(Describer); ok {
				info.Description = d.Description()
			}
		}

		if schemaDir != "" {
			fields, err := runtime.LoadFormFields(schemaDir, name)
			if err != nil {
				r.log.WithError(err).WithField("plugin", name).Warn("Failed to load form fields")
			} else {
				info.FormFields = fields
			}
		}

		infos = append(infos, info)
	}

	return infos
}
