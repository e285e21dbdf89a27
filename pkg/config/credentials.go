package config

import (
	"os"
	"strings"
)

// ProviderCredentials resolves OAuth client credentials for a provider.
// Environment variables take precedence over the config file, so a
// deployment can wire credentials without editing config.yaml:
// GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET, TODOIST_CLIENT_ID, and so on.
// The second return value reports whether both halves are present;
// absence means the provider is unavailable, not an error.
func (c *Config) ProviderCredentials(provider string) (Provider, bool) {
	base := c.Providers[provider]

	cred := Provider{
		ClientID:     resolveCredential(provider, "client_id", base.ClientID),
		ClientSecret: resolveCredential(provider, "client_secret", base.ClientSecret),
	}

	return cred, cred.ClientID != "" && cred.ClientSecret != ""
}

// APIKey resolves a static API key for a service. Environment variables
// (SERVICE_API_TOKEN, then SERVICE_API_KEY) take precedence over the
// config file. An empty result means the dependent plugin is unavailable.
func (c *Config) APIKey(service string) string {
	upper := strings.ToUpper(service)

	if v := os.Getenv(upper + "_API_TOKEN"); v != "" {
		return v
	}

	if v := os.Getenv(upper + "_API_KEY"); v != "" {
		return v
	}

	return c.APIKeys[service]
}

// resolveCredential returns the environment override for service/key if
// set, otherwise the base value from the config file.
func resolveCredential(service, key, base string) string {
	envName := strings.ToUpper(service) + "_" + strings.ToUpper(key)
	if v := os.Getenv(envName); v != "" {
		return v
	}

	return base
}
