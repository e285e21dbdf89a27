package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/config"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/oauth"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/options"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/plugin"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/settings"
	githubgraph "github.com/rmitchellscott/stationmaster-plugins/plugins/github_commit_graph"
	icscalendar "github.com/rmitchellscott/stationmaster-plugins/plugins/ics_calendar"
	"github.com/rmitchellscott/stationmaster-plugins/plugins/tempest"
)

// Components groups the executable core shared by the HTTP service and
// the CLI test command.
type Components struct {
	Registry  *plugin.Registry
	Executor  *plugin.Executor
	Projector *settings.Projector
	Options   *options.Service
}

// Builder constructs and wires all dependencies for the plugin server.
type Builder struct {
	log logrus.FieldLogger
	cfg *config.Config
}

// NewBuilder creates a new server builder.
func NewBuilder(log logrus.FieldLogger, cfg *config.Config) *Builder {
	return &Builder{
		log: log.WithField("component", "builder"),
		cfg: cfg,
	}
}

// Components builds the plugin registry, executor, settings projector,
// and options service from configuration.
func (b *Builder) Components() (*Components, error) {
	registry := plugin.NewRegistry(b.log)

	if err := b.registerPlugins(registry); err != nil {
		return nil, fmt.Errorf("registering plugins: %w", err)
	}

	tokens := oauth.NewCache(b.log, oauth.NewProviderRefresher(b.log, b.cfg))
	projector := settings.NewProjector(b.log, tokens)

	executor := plugin.NewExecutor(b.log, registry, plugin.ExecutorConfig{
		Timeout:   b.cfg.Executor.Timeout,
		SchemaDir: b.cfg.PluginsDir,
	})

	optionsSvc := options.NewService(b.log, registry, projector, b.cfg.PluginsDir)

	b.log.WithField("plugin_count", len(registry.Names())).Info("Plugin registry built")

	return &Components{
		Registry:  registry,
		Executor:  executor,
		Projector: projector,
		Options:   optionsSvc,
	}, nil
}

// Build constructs all dependencies and returns the server service.
func (b *Builder) Build() (Service, error) {
	components, err := b.Components()
	if err != nil {
		return nil, err
	}

	return NewService(
		b.log,
		b.cfg.Server,
		b.cfg.RateLimiting,
		components.Executor,
		components.Registry,
		components.Projector,
		components.Options,
		b.cfg.PluginsDir,
	), nil
}

// registerPlugins registers every compiled-in plugin. Factories capture
// their server-level credentials; a fresh instance is still created per
// invocation.
func (b *Builder) registerPlugins(registry *plugin.Registry) error {
	factories := map[string]plugin.Factory{
		"ics_calendar": func() any {
			return icscalendar.New()
		},
		"github_commit_graph": func() any {
			return githubgraph.New(b.cfg.APIKey("github"))
		},
		"tempest": func() any {
			return tempest.New(b.cfg.APIKey("tempest"), b.cfg.Server.BaseURL)
		},
	}

	for name, factory := range factories {
		if err := registry.Register(name, factory); err != nil {
			return fmt.Errorf("registering plugin %s: %w", name, err)
		}
	}

	return nil
}
