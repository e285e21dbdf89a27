// Package types provides shared types used across the plugin server
// and plugins to avoid circular dependencies.
package types

// User describes the account a plugin invocation runs on behalf of.
type User struct {
	// ID is the caller-supplied user identifier.
	ID string `json:"id"`
	// TimeZoneIANA is the user's timezone name (e.g. "America/New_York").
	TimeZoneIANA string `json:"time_zone_iana"`
	// Locale is the user's locale code (e.g. "en").
	Locale string `json:"locale"`
}

// PluginSettingsMeta carries metadata about the plugin instance being
// executed: its identifier and when it was created.
type PluginSettingsMeta struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// OAuthToken is a provider refresh/access token pair supplied with a request.
type OAuthToken struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token,omitempty"`
}

// ExecutionContext holds everything the caller knows about the invocation.
// It is owned exclusively by a single plugin call and must not be mutated
// once execution starts.
type ExecutionContext struct {
	User           User                  `json:"user"`
	PluginSettings PluginSettingsMeta    `json:"plugin_settings"`
	OAuthTokens    map[string]OAuthToken `json:"oauth_tokens,omitempty"`
}

// PluginResult is the uniform contract every plugin invocation produces.
// Exactly one of Data or Error is meaningful, selected by Success.
type PluginResult struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Option is a single choice for a dynamic select form field.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FormField describes one entry of a plugin's settings schema, read from
// the plugin's declarative form_fields.yaml file.
type FormField struct {
	Keyname     string   `yaml:"keyname" json:"keyname"`
	Name        string   `yaml:"name" json:"name"`
	FieldType   string   `yaml:"field_type" json:"field_type"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Optional    bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	HelpText    string   `yaml:"help_text,omitempty" json:"help_text,omitempty"`
	Options     []string `yaml:"-" json:"options,omitempty"`
}

// PluginInfo is the descriptive metadata a plugin exposes to the
// discovery surface.
type PluginInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	FormFields  []FormField `json:"form_fields"`
}
