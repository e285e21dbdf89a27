package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/observability"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/runtime"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

// ExecutorConfig configures the plugin executor.
type ExecutorConfig struct {
	// Timeout bounds one plugin invocation end to end, including outbound
	// HTTP calls and retries. Defaults to 60 seconds.
	Timeout time.Duration

	// SchemaDir is where per-plugin form_fields.yaml files live.
	SchemaDir string

	// HTTPClient is shared by all invocations for outbound fetches.
	HTTPClient *http.Client
}

// ApplyDefaults sets default values for the executor config.
func (c *ExecutorConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
}

// Executor resolves plugin identifiers and runs each invocation exactly
// once against a fresh instance. Failures are converted into uniform
// failure results; they never propagate as process crashes.
type Executor struct {
	log      logrus.FieldLogger
	cfg      ExecutorConfig
	registry *Registry
}

// NewExecutor creates a new executor backed by the given registry.
func NewExecutor(log logrus.FieldLogger, registry *Registry, cfg ExecutorConfig) *Executor {
	cfg.ApplyDefaults()

	return &Executor{
		log:      log.WithField("component", "plugin_executor"),
		cfg:      cfg,
		registry: registry,
	}
}

// Execute resolves name, instantiates the plugin with the projected
// settings and execution context, invokes its entry point, and tears the
// instance down. The returned error, when non-nil, is one of the
// taxonomy types (NotFoundError, ContractError, ExecutionError) and is
// mirrored in the PluginResult.
func (e *Executor) Execute(
	ctx context.Context,
	name string,
	settings map[string]any,
	execCtx types.ExecutionContext,
) (types.PluginResult, error) {
	executionID := uuid.NewString()

	log := e.log.WithFields(logrus.Fields{
		"plugin":       name,
		"execution_id": executionID,
	})

	ent, ok := e.registry.lookup(name)
	if !ok {
		err := &NotFoundError{Name: name}
		log.Warn("Plugin not found")
		observability.PluginExecutionsTotal.WithLabelValues(name, "not_found").Inc()

		return failure(err), err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	rt := runtime.New(log, runtime.Config{
		PluginName: name,
		Settings:   settings,
		Context:    execCtx,
		SchemaDir:  e.cfg.SchemaDir,
		HTTPClient: e.cfg.HTTPClient,
	})
	defer rt.Reset()

	start := time.Now()
	data, err := e.run(ctx, ent, rt)
	elapsed := time.Since(start)

	observability.PluginExecutionDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		var contractErr *ContractError
		if !errors.As(err, &contractErr) {
			err = &ExecutionError{Name: name, Err: err}
		}

		log.WithError(err).WithField("duration", elapsed).Error("Plugin execution failed")
		observability.PluginExecutionsTotal.WithLabelValues(name, "error").Inc()

		return failure(err), err
	}

	log.WithFields(logrus.Fields{
		"duration": elapsed,
		"keys":     len(data),
	}).Info("Plugin executed")
	observability.PluginExecutionsTotal.WithLabelValues(name, "success").Inc()

	return types.PluginResult{Success: true, Data: data}, nil
}

// run invokes the resolved entry point on a fresh instance, converting
// panics inside plugin logic into errors.
func (e *Executor) run(ctx context.Context, ent entry, rt *runtime.Runtime) (data map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return invoke(ctx, ent.kind, ent.factory(), rt)
}

func failure(err error) types.PluginResult {
	return types.PluginResult{Success: false, Error: err.Error()}
}
