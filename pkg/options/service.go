package options

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/plugin"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/settings"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

// Result carries fetched options plus cache provenance.
type Result struct {
	Options   []types.Option `json:"options"`
	FieldName string         `json:"field_name"`
	Plugin    string         `json:"plugin"`
	CachedAt  time.Time      `json:"cached_at"`
	FromCache bool           `json:"from_cache"`
}

// Service fetches dynamic form-field options from plugins implementing
// the OptionsProvider capability, caching results per (user, plugin,
// field) for a few minutes.
type Service struct {
	log       logrus.FieldLogger
	registry  *plugin.Registry
	projector *settings.Projector
	cache     *Cache
	schemaDir string
}

// NewService creates an options service over the given registry.
func NewService(
	log logrus.FieldLogger,
	registry *plugin.Registry,
	projector *settings.Projector,
	schemaDir string,
) *Service {
	return &Service{
		log:       log.WithField("component", "options_service"),
		registry:  registry,
		projector: projector,
		cache:     NewCache(),
		schemaDir: schemaDir,
	}
}

// Fetch returns the options for one plugin form field, serving from
// cache when possible. OAuth credentials from the execution context are
// injected into the plugin's settings the same way a normal execution
// would see them.
func (s *Service) Fetch(
	ctx context.Context,
	pluginName, field string,
	execCtx types.ExecutionContext,
) (*Result, error) {
	userID := execCtx.User.ID
	if userID == "" {
		userID = "anonymous"
	}

	if opts, cachedAt, ok := s.cache.Get(userID, pluginName, field); ok {
		s.log.WithFields(logrus.Fields{
			"plugin": pluginName,
			"field":  field,
		}).Debug("Returning cached options")

		return &Result{
			Options:   opts,
			FieldName: field,
			Plugin:    pluginName,
			CachedAt:  cachedAt,
			FromCache: true,
		}, nil
	}

	instance, err := s.registry.NewInstance(pluginName)
	if err != nil {
		return nil, err
	}

	provider, ok := instance.(plugin.OptionsProvider)
	if !ok {
		return nil, fmt.Errorf("plugin %s does not support fetching %s", pluginName, field)
	}

	projected := s.projector.Project(ctx, map[string]any{}, execCtx)

	rt := runtime.New(s.log, runtime.Config{
		PluginName: pluginName,
		Settings:   projected,
		Context:    execCtx,
		SchemaDir:  s.schemaDir,
	})
	defer rt.Reset()

	opts, err := provider.Options(ctx, rt, field)
	if err != nil {
		return nil, fmt.Errorf("fetching options for %s.%s: %w", pluginName, field, err)
	}

	s.cache.Set(userID, pluginName, field, opts)

	return &Result{
		Options:   opts,
		FieldName: field,
		Plugin:    pluginName,
		CachedAt:  time.Now(),
		FromCache: false,
	}, nil
}
