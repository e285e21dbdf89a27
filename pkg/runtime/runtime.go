// Package runtime provides the capability surface every plugin can rely
// on during an invocation: settings access, HTTP fetch with retry, user
// and timezone context, plugin metadata, and string helpers.
package runtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

// Config configures a Runtime for a single plugin invocation.
type Config struct {
	// PluginName is the identifier of the plugin being executed.
	PluginName string

	// Settings are the projected, plugin-ready settings for this call.
	Settings map[string]any

	// Context is the execution context supplied by the caller.
	Context types.ExecutionContext

	// SchemaDir is the directory holding per-plugin form_fields.yaml
	// schemas. Empty disables metadata lookup.
	SchemaDir string

	// HTTPClient is used for outbound fetches. Defaults to a client with
	// a 30 second timeout.
	HTTPClient *http.Client

	// Now overrides the time source. Defaults to time.Now.
	Now func() time.Time
}

// Runtime is the per-invocation capability object handed to plugins.
// It is owned by exactly one invocation and discarded afterwards.
type Runtime struct {
	log      logrus.FieldLogger
	name     string
	settings map[string]any
	execCtx  types.ExecutionContext

	schemaDir  string
	httpClient *http.Client
	now        func() time.Time

	mu   sync.Mutex
	user *UserContext
	meta *types.PluginInfo
}

// New creates a Runtime for one plugin invocation.
func New(log logrus.FieldLogger, cfg Config) *Runtime {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Settings == nil {
		cfg.Settings = map[string]any{}
	}

	return &Runtime{
		log:        log.WithField("plugin", cfg.PluginName),
		name:       cfg.PluginName,
		settings:   cfg.Settings,
		execCtx:    cfg.Context,
		schemaDir:  cfg.SchemaDir,
		httpClient: cfg.HTTPClient,
		now:        cfg.Now,
	}
}

// Name returns the plugin identifier this runtime was built for.
func (r *Runtime) Name() string { return r.name }

// Log returns the invocation-scoped logger.
func (r *Runtime) Log() logrus.FieldLogger { return r.log }

// Settings returns the full projected settings map.
func (r *Runtime) Settings() map[string]any { return r.settings }

// Context returns the execution context for this invocation.
func (r *Runtime) Context() types.ExecutionContext { return r.execCtx }

// HTTPClient exposes the outbound HTTP client for plugins that need a
// verb other than GET (the Fetch helper covers the common case).
func (r *Runtime) HTTPClient() *http.Client { return r.httpClient }

// Setting looks up a settings value by key, returning def when absent.
func (r *Runtime) Setting(key string, def any) any {
	if v, ok := r.settings[key]; ok && v != nil {
		return v
	}

	return def
}

// SettingString looks up a settings value and returns it as a string,
// or def when the key is absent or not a string.
func (r *Runtime) SettingString(key, def string) string {
	if v, ok := r.settings[key].(string); ok && v != "" {
		return v
	}

	return def
}

// SettingsMeta exposes plugin-instance metadata derived from the
// execution context.
type SettingsMeta struct {
	ID        string
	CreatedAt time.Time
}

// PluginSettings returns the plugin-instance metadata. CreatedAt falls
// back to the current time when absent or unparsable.
func (r *Runtime) PluginSettings() SettingsMeta {
	meta := SettingsMeta{ID: r.execCtx.PluginSettings.ID}

	created, err := time.Parse(time.RFC3339, r.execCtx.PluginSettings.CreatedAt)
	if err != nil {
		created = r.now()
	}

	meta.CreatedAt = created

	return meta
}

// Plugin returns descriptive metadata for the executing plugin, including
// its declared form fields from the external schema file. Errors reading
// the schema degrade to empty fields.
func (r *Runtime) Plugin() types.PluginInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.meta != nil {
		return *r.meta
	}

	info := types.PluginInfo{Name: r.name}

	if r.schemaDir != "" {
		fields, err := LoadFormFields(r.schemaDir, r.name)
		if err != nil {
			r.log.WithError(err).Warn("Failed to load plugin form fields")
		} else {
			info.FormFields = fields
		}
	}

	r.meta = &info

	return info
}

// Reset clears memoized state. The executor calls this after every
// invocation so nothing carries over between calls.
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.user = nil
	r.meta = nil
}
